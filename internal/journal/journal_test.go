package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openmined/snipsync/internal/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j := NewJournal(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, j.Open())
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_OpenClose(t *testing.T) {
	j := NewJournal(":memory:")
	require.NoError(t, j.Open())
	assert.ErrorIs(t, j.Open(), ErrJournalOpen)
	require.NoError(t, j.Close())
	assert.ErrorIs(t, j.Close(), ErrJournalClosed)

	assert.ErrorIs(t, j.Append(mirror.Activity{}), ErrJournalClosed)
	_, err := j.Recent(10)
	assert.ErrorIs(t, err, ErrJournalClosed)
	_, err = j.Count()
	assert.ErrorIs(t, err, ErrJournalClosed)
}

func TestJournal_AppendAndRecent(t *testing.T) {
	j := openTestJournal(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.Append(mirror.Activity{
		Time:   base,
		Phase:  mirror.PhaseReconcile,
		Origin: mirror.Primary,
		Name:   "a.codesnippet",
		Kind:   mirror.KindCreated,
		Action: mirror.ActionCopied,
		Bytes:  2048,
	}))
	require.NoError(t, j.Append(mirror.Activity{
		Time:   base.Add(time.Second),
		Phase:  mirror.PhaseWatch,
		Origin: mirror.Mirror,
		Name:   "b.codesnippet",
		Kind:   mirror.KindModified,
		Action: mirror.ActionFailed,
		Err:    &mirror.ActionError{Op: "copy", Path: "/m/b.codesnippet", Err: errors.New("boom")},
	}))
	// sub-second ordering must survive the text encoding
	require.NoError(t, j.Append(mirror.Activity{
		Time:   base.Add(time.Second + 10*time.Millisecond),
		Phase:  mirror.PhaseWatch,
		Origin: mirror.Primary,
		Name:   "b.codesnippet",
		Kind:   mirror.KindModified,
		Action: mirror.ActionEcho,
	}))

	count, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	entries, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "echo", entries[0].Action)
	assert.Equal(t, "failed", entries[1].Action)
	assert.Equal(t, "mirror", entries[1].Origin)
	assert.Equal(t, "modified", entries[1].Kind)
	assert.Equal(t, "copy /m/b.codesnippet: boom", entries[1].Error)

	last := entries[2]
	assert.Equal(t, "a.codesnippet", last.Name)
	assert.Equal(t, "reconcile", last.Phase)
	assert.Equal(t, "primary", last.Origin)
	assert.Equal(t, int64(2048), last.Bytes)
	assert.True(t, base.Equal(last.Time))
	assert.Equal(t, j.SessionID(), last.SessionID)
	assert.NotEmpty(t, last.ID)
	assert.NotEqual(t, last.ID, entries[0].ID)

	limited, err := j.Recent(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, entries[0].ID, limited[0].ID)
}

func TestJournal_RecordImplementsRecorder(t *testing.T) {
	j := openTestJournal(t)

	var rec mirror.Recorder = j
	rec.Record(mirror.Activity{Time: time.Now(), Name: "a.snip", Action: mirror.ActionDeleted})

	count, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestJournal_RecordAfterCloseDoesNotPanic(t *testing.T) {
	j := NewJournal(":memory:")
	require.NoError(t, j.Open())
	require.NoError(t, j.Close())

	assert.NotPanics(t, func() {
		j.Record(mirror.Activity{Name: "a.snip"})
	})
}

func TestJournal_SessionsAreDistinct(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	first := NewJournal(path)
	require.NoError(t, first.Open())
	require.NoError(t, first.Append(mirror.Activity{Time: time.Now(), Name: "a.snip"}))
	require.NoError(t, first.Close())

	second := NewJournal(path)
	require.NoError(t, second.Open())
	t.Cleanup(func() { _ = second.Close() })
	require.NoError(t, second.Append(mirror.Activity{Time: time.Now().Add(time.Millisecond), Name: "b.snip"}))

	entries, err := second.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, first.SessionID(), second.SessionID())
	assert.Equal(t, second.SessionID(), entries[0].SessionID)
	assert.Equal(t, first.SessionID(), entries[1].SessionID)
}
