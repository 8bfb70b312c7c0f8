package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Editor and OS artifacts that never sync, even when their name contains the
// filter substring (e.g. "a.codesnippet.swp").
var defaultIgnoreLines = []string{
	".DS_Store",
	"._*",
	"Thumbs.db",
	"*.swp",
	"*.swx",
	"*~",
	".#*",
	"*.tmp",
}

// Filter decides which file names in a watched directory take part in syncing.
// A plain pattern is matched as a substring of the base name; a pattern with
// glob metacharacters is matched with doublestar semantics. An empty pattern
// matches every name.
type Filter struct {
	pattern string
	glob    bool
	ignore  *gitignore.GitIgnore
}

func NewFilter(pattern string, ignoreLines ...string) (*Filter, error) {
	glob := strings.ContainsAny(pattern, "*?[{")
	if glob && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, pattern)
	}

	lines := make([]string, 0, len(defaultIgnoreLines)+len(ignoreLines))
	lines = append(lines, defaultIgnoreLines...)
	for _, line := range ignoreLines {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}

	mode := "substring"
	if glob {
		mode = "glob"
	}
	slog.Debug("name filter", "pattern", pattern, "mode", mode)

	return &Filter{
		pattern: pattern,
		glob:    glob,
		ignore:  gitignore.CompileIgnoreLines(lines...),
	}, nil
}

func (f *Filter) Pattern() string {
	if f == nil {
		return ""
	}
	return f.pattern
}

// Glob reports whether the pattern is matched as a glob rather than a substring.
func (f *Filter) Glob() bool {
	return f != nil && f.glob
}

// Match reports whether the base name of path passes the filter.
func (f *Filter) Match(path string) bool {
	if f == nil {
		return true
	}

	name := filepath.Base(path)
	if f.ignore != nil && f.ignore.MatchesPath(name) {
		return false
	}

	switch {
	case f.pattern == "":
		return true
	case f.glob:
		ok, _ := doublestar.Match(f.pattern, name)
		return ok
	default:
		return strings.Contains(name, f.pattern)
	}
}
