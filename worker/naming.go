package worker

import (
	"path/filepath"
	"regexp"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\v\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// SanitizeName turns a field value into a file name: every whitespace run
// becomes one underscore, then anything outside [A-Za-z0-9_-] is removed.
// Existing underscores are kept as they are.
func SanitizeName(value string) string {
	collapsed := whitespaceRun.ReplaceAllString(value, "_")
	return unsafeChars.ReplaceAllString(collapsed, "")
}

// OutputPath joins the output directory, the sanitized name and ext
func OutputPath(dir, name, ext string) string {
	return filepath.Join(dir, name+ext)
}
