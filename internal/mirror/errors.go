package mirror

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration      = errors.New("configuration error")
	ErrReconciliationList = errors.New("failed to list directory for reconciliation")
	ErrMirrorAction       = errors.New("mirror action failed")
	ErrEngineStarted      = errors.New("sync engine already started")
)

// ActionError is a copy or delete that failed for a single file. It is
// logged and recorded, never propagated out of the engine.
type ActionError struct {
	Op   string
	Path string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return target == ErrMirrorAction
}
