package mirror

import (
	"log/slog"

	"github.com/openmined/snipsync/internal/watch"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindCreated
	KindRemoved
	KindModified
	KindRenamed
)

func (k Kind) String() string {
	switch k {
	case KindCreated:
		return "created"
	case KindRemoved:
		return "removed"
	case KindModified:
		return "modified"
	case KindRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent is a classified notification for one file.
type ChangeEvent struct {
	Path string
	Kind Kind
}

// Classify maps a raw flag set to exactly one kind. Compound flag sets resolve
// in the fixed order created, removed, modified, renamed.
func Classify(flags watch.Flags) Kind {
	switch {
	case flags.Has(watch.FlagCreated):
		return KindCreated
	case flags.Has(watch.FlagRemoved):
		return KindRemoved
	case flags.Has(watch.FlagModified):
		return KindModified
	case flags.Has(watch.FlagRenamed):
		return KindRenamed
	default:
		return KindUnknown
	}
}

func ClassifyEvent(ev watch.Event) ChangeEvent {
	kind := Classify(ev.Flags)
	if kind == KindUnknown {
		slog.Debug("unknown event type", "path", ev.Path, "flags", ev.Flags)
	}
	return ChangeEvent{Path: ev.Path, Kind: kind}
}
