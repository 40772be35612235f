package gossipwire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChannelAnnouncement is the unsigned body of the message used to announce
// the existence of a channel between two peers. As with NodeAnnouncement,
// the four signatures of the signed form are stripped; the harness feeds the
// announcement straight into a routing view.
type ChannelAnnouncement struct {
	// Features is the feature vector that encodes the features supported
	// by the target node. This field can be used to signal the type of
	// the channel, or modifications to the fields that would normally
	// follow this vector.
	Features *RawFeatureVector

	// ChainHash denotes the target chain that this channel was opened
	// within. This value should be the genesis hash of the target chain.
	ChainHash chainhash.Hash

	// ShortChannelID is the unique description of the funding
	// transaction, or where exactly it's located within the target
	// blockchain.
	ShortChannelID ShortChannelID

	// The public keys of the two nodes who are operating the channel,
	// such that NodeID1 is the numerically-lesser of the two.
	NodeID1 NodeID
	NodeID2 NodeID

	// Public keys which correspond to the keys which were declared in
	// the multisig funding transaction output.
	BitcoinKey1 [33]byte
	BitcoinKey2 [33]byte
}

// A compile time check to ensure ChannelAnnouncement implements the Message
// interface.
var _ Message = (*ChannelAnnouncement)(nil)

// Decode deserializes a serialized ChannelAnnouncement stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the Message interface.
func (a *ChannelAnnouncement) Decode(r io.Reader, _ uint32) error {
	a.Features = &RawFeatureVector{}
	if err := a.Features.Decode(r); err != nil {
		return err
	}

	var fixed [172]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return err
	}

	copy(a.ChainHash[:], fixed[0:32])
	a.ShortChannelID = NewShortChanIDFromInt(
		binary.BigEndian.Uint64(fixed[32:40]),
	)
	copy(a.NodeID1[:], fixed[40:73])
	copy(a.NodeID2[:], fixed[73:106])
	copy(a.BitcoinKey1[:], fixed[106:139])
	copy(a.BitcoinKey2[:], fixed[139:172])

	if err := validateNodeID(a.NodeID1); err != nil {
		return err
	}
	if err := validateNodeID(a.NodeID2); err != nil {
		return err
	}

	return nil
}

// Encode serializes the target ChannelAnnouncement into the passed buffer
// observing the protocol version specified.
//
// This is part of the Message interface.
func (a *ChannelAnnouncement) Encode(w *bytes.Buffer, _ uint32) error {
	if err := a.Features.Encode(w); err != nil {
		return err
	}

	w.Write(a.ChainHash[:])

	var scid [8]byte
	binary.BigEndian.PutUint64(scid[:], a.ShortChannelID.ToUint64())
	w.Write(scid[:])

	w.Write(a.NodeID1[:])
	w.Write(a.NodeID2[:])
	w.Write(a.BitcoinKey1[:])
	w.Write(a.BitcoinKey2[:])

	return nil
}
