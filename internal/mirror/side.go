package mirror

import (
	"path/filepath"

	"github.com/openmined/snipsync/internal/watch"
)

type Side int

const (
	Primary Side = iota
	Mirror
)

func (s Side) String() string {
	if s == Mirror {
		return "mirror"
	}
	return "primary"
}

func (s Side) Other() Side {
	if s == Mirror {
		return Primary
	}
	return Mirror
}

// WatchedDirectory is one half of the mirrored pair.
type WatchedDirectory struct {
	Path   string
	Filter *watch.Filter
}

func (d WatchedDirectory) Join(name string) string {
	return filepath.Join(d.Path, name)
}

// side is the per-direction record: the events seen here are mirrored onto
// peer, and expected holds names whose next event here is our own echo.
type side struct {
	id       Side
	dir      WatchedDirectory
	expected *echoSet
	peer     *side
	source   EventSource
}

func newSidePair(primary, mirror WatchedDirectory) (*side, *side) {
	p := &side{id: Primary, dir: primary, expected: newEchoSet()}
	m := &side{id: Mirror, dir: mirror, expected: newEchoSet()}
	p.peer, m.peer = m, p
	return p, m
}
