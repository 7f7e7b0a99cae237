package naming

import (
	"regexp"
	"strings"
)

// DefaultMaxNameLen is the longest segment most filesystems accept, in bytes
const DefaultMaxNameLen = 255

var (
	reservedCharsRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	// Windows device names are reserved with any extension ("con.txt" included)
	windowsReservedRe = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
)

// IsValidFilename reports whether name is usable as a single path segment on
// every common filesystem
func IsValidFilename(name string) bool {
	return isValidFilename(name, DefaultMaxNameLen)
}

func isValidFilename(name string, maxLen int) bool {
	if name == "" || len(name) > maxLen {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	if reservedCharsRe.MatchString(name) || windowsReservedRe.MatchString(name) {
		return false
	}
	// Windows silently strips these
	return !strings.HasSuffix(name, ".") && !strings.HasSuffix(name, " ")
}

// TrimName returns name unchanged up to maxLen runes, otherwise its first
// maxLen runes followed by "..."
func TrimName(name string, maxLen int) string {
	r := []rune(name)
	if maxLen < 1 || len(r) <= maxLen {
		return name
	}
	return string(r[:maxLen]) + "..."
}

// hasRootMarker reports whether name starts like an absolute path
func hasRootMarker(name string) bool {
	return strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\")
}

// splitSegments splits name on either separator, keeping empty segments
func splitSegments(name string) []string {
	return strings.Split(strings.ReplaceAll(name, "\\", "/"), "/")
}
