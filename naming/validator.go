package naming

import (
	"context"
	"fmt"
	"strings"

	"github.com/xpomul/workspacefs"
	"github.com/xpomul/workspacefs/internal/util"
)

// DefaultMaxDisplayLen is the number of characters of a name shown in messages
const DefaultMaxDisplayLen = 30

// Rejection messages that do not embed the candidate name
const (
	MsgAbsolutePath = "Absolute paths or names that start with / are not allowed."
	MsgWhitespace   = "Leading or trailing whitespace detected in file or folder name."
)

// Validator decides whether a proposed file or folder name is acceptable
// within a parent directory. It holds no mutable state
type Validator struct {
	fs              workspacefs.FileService
	maxDisplayLen   int
	maxNameLen      int
	caseInsensitive bool
}

type Option func(*Validator)

// WithMaxDisplayLen sets how many characters of a name appear in messages
func WithMaxDisplayLen(n int) Option {
	return func(v *Validator) { v.maxDisplayLen = n }
}

// WithMaxNameLen sets the longest accepted segment in bytes
func WithMaxNameLen(n int) Option {
	return func(v *Validator) { v.maxNameLen = n }
}

// WithCaseInsensitive makes names that differ from an existing entry only by
// case count as collisions
func WithCaseInsensitive(enabled bool) Option {
	return func(v *Validator) { v.caseInsensitive = enabled }
}

func NewValidator(fs workspacefs.FileService, opts ...Option) *Validator {
	v := &Validator{
		fs:            fs,
		maxDisplayLen: DefaultMaxDisplayLen,
		maxNameLen:    DefaultMaxNameLen,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CaseInsensitive reports whether existence checks fold case
func (v *Validator) CaseInsensitive() bool {
	return v.caseInsensitive
}

// InvalidNameMessage is the rejection for names that are not valid segments
func (v *Validator) InvalidNameMessage(name string) string {
	return fmt.Sprintf("The name **%s** is not valid as a file or folder name. Please choose a different name.",
		TrimName(name, v.maxDisplayLen))
}

// ExistsMessage is the rejection for names that collide with an existing entry
func (v *Validator) ExistsMessage(name string) string {
	return fmt.Sprintf("A file or folder **%s** already exists at this location. Please choose a different name.",
		TrimName(name, v.maxDisplayLen))
}

// Validate returns "" when name is acceptable under parent, otherwise the
// reason it is not. An empty name is not an error yet.
// With allowNested, name may contain separators and is created recursively
func (v *Validator) Validate(ctx context.Context, name string, parent *workspacefs.FileStat, allowNested bool) string {
	logger := util.GetLogger("Validator.Validate")

	if name == "" {
		return ""
	}
	if hasRootMarker(name) {
		return MsgAbsolutePath
	}
	if strings.TrimSpace(name) != name {
		return MsgWhitespace
	}
	if !allowNested && !isValidFilename(name, v.maxNameLen) {
		return v.InvalidNameMessage(name)
	}
	if allowNested {
		for _, seg := range splitSegments(name) {
			if strings.TrimSpace(seg) == "" || !isValidFilename(seg, v.maxNameLen) {
				return v.InvalidNameMessage(name)
			}
		}
	}

	if parent == nil {
		logger.Debug().Str("name", name).Msg("No parent to check existence against")
		return ""
	}
	if v.exists(ctx, parent, name) {
		return v.ExistsMessage(name)
	}
	return ""
}

// exists resolves name against parent. Lookup failures count as "does not exist"
func (v *Validator) exists(ctx context.Context, parent *workspacefs.FileStat, name string) bool {
	logger := util.GetLogger("Validator.exists")

	target := workspacefs.Join(parent.Path, name)
	ok, err := v.fs.Exists(ctx, target)
	if err != nil {
		logger.Debug().Err(err).Str("path", target).Msg("Existence check failed; treating as absent")
		ok = false
	}
	if ok || !v.caseInsensitive {
		return ok
	}
	return v.existsFolded(ctx, parent, splitSegments(name))
}

// existsFolded walks segs from parent matching each one case-insensitively
func (v *Validator) existsFolded(ctx context.Context, parent *workspacefs.FileStat, segs []string) bool {
	logger := util.GetLogger("Validator.existsFolded")

	dir := parent
	for i, seg := range segs {
		if dir.Children == nil {
			stat, err := v.fs.Stat(ctx, dir.Path)
			if err != nil {
				logger.Debug().Err(err).Str("path", dir.Path).Msg("Stat failed; treating as absent")
				return false
			}
			dir = stat
		}
		match := foldedChild(dir, seg)
		if match == nil {
			return false
		}
		if i == len(segs)-1 {
			return true
		}
		if !match.IsDir {
			return false
		}
		dir = match
	}
	return false
}

func foldedChild(dir *workspacefs.FileStat, name string) *workspacefs.FileStat {
	for _, ch := range dir.Children {
		if strings.EqualFold(ch.Name, name) {
			return ch
		}
	}
	return nil
}

// UniqueChildName is [UniqueName] over parent's children honoring the
// validator's case setting
func (v *Validator) UniqueChildName(parent *workspacefs.FileStat, name, ext string) string {
	return uniqueName(parent.ChildNames(), name, ext, v.caseInsensitive)
}

// CopyName is [CopyName] honoring the validator's case setting
func (v *Validator) CopyName(parent *workspacefs.FileStat, base string, isDir bool) string {
	return copyName(parent.ChildNames(), base, isDir, v.caseInsensitive)
}
