package config

// NamingOptions holds settings for name validation and default names.
type NamingOptions struct {
	MaxDisplayLen     int    // Names longer than this are truncated with "..." in messages (Default 30)
	MaxNameLen        int    // Maximum bytes of a single path segment (Default 255)
	CaseInsensitive   bool   // Also treat case-folded sibling names as collisions (Default false)
	DefaultFileName   string // Base name proposed for new files (Default "Untitled")
	DefaultFileExt    string // Extension proposed for new files (Default ".txt")
	DefaultFolderName string // Base name proposed for new folders (Default "Untitled")
}
