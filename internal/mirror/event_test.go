package mirror

import (
	"testing"

	"github.com/openmined/snipsync/internal/watch"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		flags watch.Flags
		want  Kind
	}{
		{"created", watch.FlagCreated, KindCreated},
		{"removed", watch.FlagRemoved, KindRemoved},
		{"modified", watch.FlagModified, KindModified},
		{"renamed", watch.FlagRenamed, KindRenamed},
		{"created wins over everything", watch.FlagCreated | watch.FlagRemoved | watch.FlagModified | watch.FlagRenamed, KindCreated},
		{"removed wins over modified", watch.FlagRemoved | watch.FlagModified, KindRemoved},
		{"modified wins over renamed", watch.FlagModified | watch.FlagRenamed, KindModified},
		{"attrib only", watch.FlagAttrib, KindUnknown},
		{"no flags", 0, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.flags))
		})
	}
}

func TestClassifyEvent(t *testing.T) {
	ev := ClassifyEvent(watch.Event{Path: "/p/a.snip", Flags: watch.FlagRenamed | watch.FlagAttrib})
	assert.Equal(t, ChangeEvent{Path: "/p/a.snip", Kind: KindRenamed}, ev)
	assert.Equal(t, "renamed", ev.Kind.String())
}
