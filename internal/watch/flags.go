package watch

import "strings"

// Flags is the raw change set reported for one path. Several bits may be set
// when the OS (or the coalescing window) folds multiple changes together.
type Flags uint32

const (
	FlagCreated Flags = 1 << iota
	FlagRemoved
	FlagModified
	FlagRenamed
	FlagAttrib
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagCreated, "created"},
	{FlagRemoved, "removed"},
	{FlagModified, "modified"},
	{FlagRenamed, "renamed"},
	{FlagAttrib, "attrib"},
}

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// Event is a single coalesced notification for one absolute path.
type Event struct {
	Path  string
	Flags Flags
}

// Handler receives batches of events. It is called from the source's own
// goroutine and must not call Stop on the same source.
type Handler func(batch []Event)
