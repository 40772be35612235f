package gossipwire

import (
	"errors"
)

// The errors below partition every decode failure the codec can report into
// the classes the fuzz harness cares about. All four are "expected" from the
// harness's point of view: arbitrary bytes routinely fail to decode, and a
// failure carrying one of these errors simply ends the run. Short reads are
// deliberately not given a sentinel here; they surface as io.EOF or
// io.ErrUnexpectedEOF, and a caller that computed the payload length itself
// treats them as a bug in its own sizing logic.
var (
	// ErrUnknownVersion is returned when a message or an embedded field
	// advertises a serialization version the codec does not understand.
	ErrUnknownVersion = errors.New("unknown message version")

	// ErrUnknownRequiredFeature is returned when a decoded feature vector
	// sets a required (even) feature bit outside the known range.
	ErrUnknownRequiredFeature = errors.New("unknown required feature bit")

	// ErrInvalidValue is returned when a field decodes structurally but
	// carries a value that can never be valid, such as a byte string that
	// is not a point on the secp256k1 curve.
	ErrInvalidValue = errors.New("invalid message value")

	// ErrBadLengthDescriptor is returned when an embedded length prefix
	// disagrees with the data that follows it.
	ErrBadLengthDescriptor = errors.New("bad length descriptor")
)
