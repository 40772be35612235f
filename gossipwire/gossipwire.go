// Package gossipwire implements the subset of the Lightning gossip wire
// format that the router fuzz harness replays: node announcements, channel
// announcements and channel updates, all in their unsigned form as seen by a
// routing table rather than by a signature verifier. Messages decode from
// and encode to the raw big-endian representation used on the wire, with all
// multi-byte integers in network byte order.
package gossipwire

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Message is the interface satisfied by every gossip message in this
// package, mirroring the usual wire message contract: a message can
// deserialize itself from a reader and serialize itself into a buffer while
// observing the specified protocol version.
type Message interface {
	// Decode deserializes the message from the passed reader.
	Decode(r io.Reader, pver uint32) error

	// Encode serializes the message into the passed buffer.
	Encode(w *bytes.Buffer, pver uint32) error
}

// NodeID is the serialized compressed secp256k1 public key that identifies a
// node on the network.
type NodeID [33]byte

// NewNodeID converts a parsed public key into its wire identity.
func NewNodeID(pub *btcec.PublicKey) NodeID {
	var n NodeID
	copy(n[:], pub.SerializeCompressed())

	return n
}

// String returns the hex encoding of the node identity.
func (n NodeID) String() string {
	return hex.EncodeToString(n[:])
}

// validateNodeID verifies that a decoded 33 byte identity is a valid point
// on the secp256k1 curve. An off-curve key is reported as an invalid value,
// which the harness treats as an expected clean stop.
func validateNodeID(n NodeID) error {
	if _, err := btcec.ParsePubKey(n[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	return nil
}

// MilliSatoshi are the native unit of the network. A milli-satoshi is simply
// 1/1000th of a satoshi.
type MilliSatoshi uint64

// String returns the string representation of the mSAT amount.
func (m MilliSatoshi) String() string {
	return fmt.Sprintf("%v mSAT", uint64(m))
}

// NodeAlias is a hex encoded UTF-8 string that may be displayed as an
// alternative to the node's ID. Aliases are not unique and may be freely
// chosen by node operators.
type NodeAlias [32]byte

// String returns a utf8 string representation of the alias bytes.
func (n NodeAlias) String() string {
	// Trim trailing zero-bytes for presentation.
	return string(bytes.Trim(n[:], "\x00"))
}
