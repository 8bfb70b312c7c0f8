package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEchoSet(t *testing.T) {
	s := newEchoSet()

	assert.False(t, s.consume("a.snip"))

	assert.True(t, s.expect("a.snip"))
	assert.False(t, s.expect("a.snip"), "a name is held at most once")
	assert.True(t, s.expect("b.snip"))
	assert.Equal(t, []string{"a.snip", "b.snip"}, s.pending())

	assert.True(t, s.consume("a.snip"))
	assert.False(t, s.consume("a.snip"), "consume removes the entry")

	s.withdraw("b.snip")
	s.withdraw("missing")
	assert.Empty(t, s.pending())
}

func TestSideHelpers(t *testing.T) {
	assert.Equal(t, Mirror, Primary.Other())
	assert.Equal(t, Primary, Mirror.Other())
	assert.Equal(t, "primary", Primary.String())
	assert.Equal(t, "mirror", Mirror.String())

	p, m := newSidePair(WatchedDirectory{Path: "/p"}, WatchedDirectory{Path: "/m"})
	assert.Same(t, m, p.peer)
	assert.Same(t, p, m.peer)
	assert.Equal(t, "/m/a.snip", m.dir.Join("a.snip"))
}
