package hyparview

// Default protocol tuning parameters, taken from the HyParView paper and
// the reference implementation this engine is modeled on.
const (
	DefaultMaxActiveViewSize      = 4
	DefaultMaxPassiveViewSize     = 24
	DefaultShuffleActiveViewSize  = 2
	DefaultShufflePassiveViewSize = 2
	DefaultActiveRandomWalkLen    = 5
	DefaultPassiveRandomWalkLen   = 2
)

// Options holds the bounded protocol tuning parameters for a Node. All
// fields may be adjusted at runtime via Node.SetOptions; view-size
// decreases converge because view fullness is checked with >=, not ==.
type Options struct {
	// MaxActiveViewSize bounds the active view (direct overlay peers).
	MaxActiveViewSize int
	// MaxPassiveViewSize bounds the passive view (backup peers).
	MaxPassiveViewSize int
	// ShuffleActiveViewSize (ka) is how many active-view peers a SHUFFLE
	// payload carries.
	ShuffleActiveViewSize int
	// ShufflePassiveViewSize (kp) is how many passive-view peers a SHUFFLE
	// payload carries.
	ShufflePassiveViewSize int
	// ActiveRandomWalkLen (ARWL) is the initial TTL for FORWARD_JOIN and SHUFFLE.
	ActiveRandomWalkLen uint8
	// PassiveRandomWalkLen (PRWL) is the TTL at which a FORWARD_JOIN
	// recipient also inserts the joiner into its own passive view.
	PassiveRandomWalkLen uint8
}

// DefaultOptions returns the paper's default tuning parameters.
func DefaultOptions() Options {
	return Options{
		MaxActiveViewSize:      DefaultMaxActiveViewSize,
		MaxPassiveViewSize:     DefaultMaxPassiveViewSize,
		ShuffleActiveViewSize:  DefaultShuffleActiveViewSize,
		ShufflePassiveViewSize: DefaultShufflePassiveViewSize,
		ActiveRandomWalkLen:    DefaultActiveRandomWalkLen,
		PassiveRandomWalkLen:   DefaultPassiveRandomWalkLen,
	}
}
