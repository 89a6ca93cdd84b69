package engine

import "errors"

var (
	// ErrConfiguration reports an unusable board shape or symbol alphabet.
	// NewGame never installs a partial deck when it is returned.
	ErrConfiguration = errors.New("invalid game configuration")

	// ErrInvalidMove reports a rejected reveal. The session is left untouched.
	ErrInvalidMove = errors.New("invalid move")

	// ErrEngineClosed is returned by commands issued after Close.
	ErrEngineClosed = errors.New("engine closed")
)
