// Package workspacefs contains core domain types and interfaces for workspace
// file and folder commands
package workspacefs

import (
	"context"
)

// FileService defines the filesystem operations the workspace commands delegate to.
// All paths are slash separated and absolute ("/" rooted)
type FileService interface {
	// Exists reports whether an entry exists at p
	Exists(ctx context.Context, p string) (bool, error)

	// Stat returns the entry at p. Directories have their direct children resolved
	Stat(ctx context.Context, p string) (*FileStat, error)

	// ReadFile returns the full content of the file at p
	ReadFile(ctx context.Context, p string) ([]byte, error)

	// WriteFile creates or truncates the file at p. The parent must exist
	WriteFile(ctx context.Context, p string, data []byte) error

	// CreateFile creates a new file at p along with any missing parent directories.
	// Returns ErrExists if an entry is already present at p
	CreateFile(ctx context.Context, p string, data []byte) error

	// CreateFolder is equivalent to `mkdir -p`. Returns ErrExists only if a
	// non-directory is in the way
	CreateFolder(ctx context.Context, p string) error

	// Move renames src to dst. Returns ErrExists if dst is already present
	Move(ctx context.Context, src, dst string) error

	// Copy recursively copies src to dst. Returns ErrExists if dst is already present
	Copy(ctx context.Context, src, dst string) error

	// Delete removes the entry at p. Non-empty directories require opts.Recursive
	Delete(ctx context.Context, p string, opts DeleteOptions) error
}

// DeleteOptions controls [FileService.Delete]
type DeleteOptions struct {
	Recursive bool
}
