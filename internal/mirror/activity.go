package mirror

import "time"

type Action string

const (
	ActionEcho     Action = "echo"
	ActionCopied   Action = "copied"
	ActionReplaced Action = "replaced"
	ActionDeleted  Action = "deleted"
	ActionSkipped  Action = "skipped"
	ActionNone     Action = "none"
	ActionIgnored  Action = "ignored"
	ActionFailed   Action = "failed"
)

type Phase string

const (
	PhaseWatch     Phase = "watch"
	PhaseReconcile Phase = "reconcile"
)

// Activity describes how one file event or reconciliation entry was handled.
type Activity struct {
	Time   time.Time
	Phase  Phase
	Origin Side
	Name   string
	Kind   Kind
	Action Action
	Bytes  int64
	Err    error
}

// Recorder persists activities. Implementations handle their own failures.
type Recorder interface {
	Record(Activity)
}

type nopRecorder struct{}

func (nopRecorder) Record(Activity) {}

// Stats counts what the engine has done since Start.
type Stats struct {
	Events   int
	Echoes   int
	Copies   int
	Deletes  int
	Skips    int
	Unknown  int
	Failures int
}

func (s *Stats) count(a Activity) {
	switch a.Action {
	case ActionEcho:
		s.Echoes++
		return
	case ActionIgnored:
		s.Unknown++
		return
	}

	s.Events++
	switch a.Action {
	case ActionCopied, ActionReplaced:
		s.Copies++
	case ActionDeleted:
		s.Deletes++
	case ActionSkipped, ActionNone:
		s.Skips++
	case ActionFailed:
		s.Failures++
	}
}
