package requests

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/xpomul/workspacefs/commands"
)

var ErrMissingCommand = errors.New("invocation is missing \"command\"")

// UnmarshalInvocation parses a single invocation
func UnmarshalInvocation(data []byte) (commands.Invocation, error) {
	var dto InvocationDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return commands.Invocation{}, err
	}
	return convertInvocationDTO(dto)
}

// UnmarshalScript parses either a JSON array of invocations or a [ScriptDTO]
func UnmarshalScript(data []byte) ([]commands.Invocation, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid script JSON")
	}

	var dtos []InvocationDTO
	if gjson.ParseBytes(data).IsArray() {
		if err := json.Unmarshal(data, &dtos); err != nil {
			return nil, err
		}
	} else {
		var script ScriptDTO
		if err := json.Unmarshal(data, &script); err != nil {
			return nil, err
		}
		dtos = script.Invocations
	}

	invs := make([]commands.Invocation, 0, len(dtos))
	for i, dto := range dtos {
		inv, err := convertInvocationDTO(dto)
		if err != nil {
			return nil, fmt.Errorf("invocation %d: %w", i, err)
		}
		invs = append(invs, inv)
	}
	return invs, nil
}

// Conversion logic with defaults in the unmarshaling layer
func convertInvocationDTO(dto InvocationDTO) (commands.Invocation, error) {
	if dto.Command == "" {
		return commands.Invocation{}, ErrMissingCommand
	}
	id := uuid.New()
	if dto.ID != nil {
		parsed, err := uuid.Parse(*dto.ID)
		if err != nil {
			return commands.Invocation{}, fmt.Errorf("invocation id %q: %w", *dto.ID, err)
		}
		id = parsed
	}
	params := dto.Params
	if params == nil {
		params = map[string]string{}
	}
	return commands.Invocation{
		ID:      id,
		Command: dto.Command,
		Args:    commands.Args{Selection: dto.Selection, Params: params},
	}, nil
}
