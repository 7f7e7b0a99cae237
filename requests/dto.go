package requests

// InvocationDTO is the JSON representation of [commands.Invocation]
//
// Ex.
//
//	{"command":"file.newFile","selection":["/ws/src"],"params":{"name":"main.go"}}
type InvocationDTO struct {
	ID        *string           `json:"id,omitempty"` // Optional invocation UUID (Default random)
	Command   string            `json:"command"`
	Selection []string          `json:"selection,omitempty"`
	Params    map[string]string `json:"params,omitempty"` // See contrib for the parameters each command reads
}

// ScriptDTO is the object form of a batch of invocations. A bare JSON array
// of invocations is accepted as well
type ScriptDTO struct {
	Invocations []InvocationDTO `json:"invocations"`
}
