package workspacefs

import "errors"

var (
	ErrNotFound = errors.New("no such file or directory")
	ErrExists   = errors.New("file already exists")
	ErrNotDir   = errors.New("not a directory")
	ErrIsDir    = errors.New("is a directory")
	ErrNotEmpty = errors.New("directory not empty")
	// ErrInvalidPath is returned for operations that would touch "/" itself
	// or move an entry into its own subtree
	ErrInvalidPath = errors.New("invalid path")
)
