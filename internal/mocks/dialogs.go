package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xpomul/workspacefs/dialogs"
)

// MockDialogs implements dialogs.Dialogs for testing across packages
type MockDialogs struct {
	mock.Mock
}

func (m *MockDialogs) Prompt(ctx context.Context, opts dialogs.PromptOptions) (string, bool, error) {
	args := m.Called(ctx, opts)

	// Handle function return types so tests can run opts.Validate
	if fn, ok := args.Get(0).(func(context.Context, dialogs.PromptOptions) string); ok {
		return fn(ctx, opts), args.Bool(1), args.Error(2)
	}
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockDialogs) Confirm(ctx context.Context, title, message string) (bool, error) {
	args := m.Called(ctx, title, message)
	return args.Bool(0), args.Error(1)
}

func (m *MockDialogs) PickFolder(ctx context.Context, title string) (string, bool, error) {
	args := m.Called(ctx, title)
	return args.String(0), args.Bool(1), args.Error(2)
}

var _ dialogs.Dialogs = (*MockDialogs)(nil)
