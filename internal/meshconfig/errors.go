package meshconfig

import "errors"

var (
	// ErrConfigNotFound is returned when no config file exists at the
	// requested path.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigVersionTooNew is returned when a config file declares a
	// schema version newer than this binary understands.
	ErrConfigVersionTooNew = errors.New("config version too new")

	// ErrInvalidOptions is returned when the loaded tuning parameters
	// would violate a HyParView invariant (e.g. PRWL > ARWL, a negative view
	// size; a zero or omitted size is replaced by the default first).
	ErrInvalidOptions = errors.New("invalid hyparview options")
)
