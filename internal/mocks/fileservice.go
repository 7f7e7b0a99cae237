package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xpomul/workspacefs"
)

// MockFileService implements workspacefs.FileService for testing across packages
type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) Exists(ctx context.Context, p string) (bool, error) {
	args := m.Called(ctx, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileService) Stat(ctx context.Context, p string) (*workspacefs.FileStat, error) {
	args := m.Called(ctx, p)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(context.Context, string) *workspacefs.FileStat); ok {
		return fn(ctx, p), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workspacefs.FileStat), args.Error(1)
}

func (m *MockFileService) ReadFile(ctx context.Context, p string) ([]byte, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFileService) WriteFile(ctx context.Context, p string, data []byte) error {
	return m.Called(ctx, p, data).Error(0)
}

func (m *MockFileService) CreateFile(ctx context.Context, p string, data []byte) error {
	return m.Called(ctx, p, data).Error(0)
}

func (m *MockFileService) CreateFolder(ctx context.Context, p string) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockFileService) Move(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *MockFileService) Copy(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *MockFileService) Delete(ctx context.Context, p string, opts workspacefs.DeleteOptions) error {
	return m.Called(ctx, p, opts).Error(0)
}

var _ workspacefs.FileService = (*MockFileService)(nil)
