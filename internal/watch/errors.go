package watch

import "errors"

var (
	ErrWatchRegistration = errors.New("watch registration failed")
	ErrDirNotExist       = errors.New("directory to watch does not exist")
	ErrSourceRunning     = errors.New("event source already running")
	ErrNoSubscriber      = errors.New("event source has no subscriber")
	ErrUnknownBackend    = errors.New("unknown watch backend")
	ErrInvalidFilter     = errors.New("invalid name filter")
)
