package adapters

import (
	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/filesystem"
)

type BuiltInBackendType = string

const (
	FileBackendType BuiltInBackendType = "file"
	MemBackendType  BuiltInBackendType = "mem"
)

// RegisterBuiltins registers all built-in backends by default
// or only the specific ones if keys are provided
func RegisterBuiltins(r *Registry, backends ...BuiltInBackendType) {
	if len(backends) == 0 {
		backends = append(backends, FileBackendType, MemBackendType)
	}

	for _, key := range backends {
		switch key {
		case FileBackendType:
			r.Register(FileBackendType, func(root string) (workspacefs.FileService, error) {
				fs, err := NewLocalFS(root)
				if err != nil {
					return nil, err
				}
				return fs, nil
			})
		case MemBackendType:
			// root is ignored; the tree starts empty
			r.Register(MemBackendType, func(string) (workspacefs.FileService, error) {
				return filesystem.NewFS(), nil
			})
		}
	}
}
