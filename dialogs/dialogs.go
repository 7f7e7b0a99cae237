// Package dialogs defines the user interaction the workspace commands need
// and a line-based terminal implementation
package dialogs

import "context"

// PromptOptions configures a single-line input prompt
type PromptOptions struct {
	Title   string
	Initial string
	// Validate returns "" for acceptable input, otherwise the message to show
	Validate func(ctx context.Context, input string) string
}

// Dialogs is implemented by whatever front end hosts the commands.
// ok is false when the user cancelled
type Dialogs interface {
	Prompt(ctx context.Context, opts PromptOptions) (value string, ok bool, err error)
	Confirm(ctx context.Context, title, message string) (bool, error)
	PickFolder(ctx context.Context, title string) (dir string, ok bool, err error)
}
