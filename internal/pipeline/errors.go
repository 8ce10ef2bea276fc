package pipeline

import "errors"

// Data-integrity errors always abort the stage that hit them; quality
// findings never do.
var (
	// ErrInputMissing means the required upstream artifact does not exist.
	ErrInputMissing = errors.New("input artifact missing")
	// ErrInputCorrupt means the upstream artifact exists but cannot be read.
	ErrInputCorrupt = errors.New("input artifact corrupt")
)
