package gossipwire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ChanUpdateMsgFlags is a bitfield that signals whether optional fields are
// present in the ChannelUpdate.
type ChanUpdateMsgFlags uint8

const (
	// ChanUpdateRequiredMaxHtlc is a bit that indicates whether the
	// required htlc_maximum_msat field is present in this ChannelUpdate.
	ChanUpdateRequiredMaxHtlc ChanUpdateMsgFlags = 1 << 0
)

// ChanUpdateChanFlags is a bitfield that signals various options concerning
// a particular channel edge.
type ChanUpdateChanFlags uint8

const (
	// ChanUpdateDirection indicates the direction of a channel update.
	// If this bit is set to 0, the first node as per the channel
	// announcement ordering published the update, otherwise the second
	// node did.
	ChanUpdateDirection ChanUpdateChanFlags = 1 << 0

	// ChanUpdateDisabled is a bit that indicates that the channel is
	// currently disabled and routes should not traverse it.
	ChanUpdateDisabled ChanUpdateChanFlags = 1 << 1
)

// ChannelUpdate is the unsigned body of the message used after a channel has
// been announced. Each side independently advertises the fees and time-lock
// margin it requires to forward HTLCs through its direction of the channel.
type ChannelUpdate struct {
	// ChainHash denotes the target chain that this channel was opened
	// within.
	ChainHash chainhash.Hash

	// ShortChannelID is the unique description of the funding
	// transaction.
	ShortChannelID ShortChannelID

	// Timestamp allows ordering in the case of multiple announcements.
	// We should ignore the message if timestamp is not greater than the
	// last-received.
	Timestamp uint32

	// MessageFlags is a bitfield that describes whether optional fields
	// are present in this update.
	MessageFlags ChanUpdateMsgFlags

	// ChannelFlags is a bitfield that describes additional meta-data
	// concerning how the update is to be interpreted, among which the
	// direction this update applies to.
	ChannelFlags ChanUpdateChanFlags

	// TimeLockDelta is the minimum number of blocks this node requires
	// to be added to the expiry of HTLCs. This is a security parameter
	// determined by the node operator.
	TimeLockDelta uint16

	// HtlcMinimumMsat is the minimum HTLC value which will be accepted.
	HtlcMinimumMsat MilliSatoshi

	// BaseFee is the base fee that must be used for incoming HTLCs to
	// this particular channel, denominated in millisatoshi.
	BaseFee uint32

	// FeeRate is the fee rate that will be charged per millionth of a
	// satoshi.
	FeeRate uint32

	// HtlcMaximumMsat is the maximum HTLC value which will be accepted.
	// It is only present when the ChanUpdateRequiredMaxHtlc message flag
	// is set.
	HtlcMaximumMsat fn.Option[MilliSatoshi]
}

// A compile time check to ensure ChannelUpdate implements the Message
// interface.
var _ Message = (*ChannelUpdate)(nil)

// IsNode2 reports whether the update was published by the second node of the
// channel, which is the direction flag the policy table is keyed by.
func (c *ChannelUpdate) IsNode2() bool {
	return c.ChannelFlags&ChanUpdateDirection == ChanUpdateDirection
}

// IsDisabled reports whether the update flags the channel as disabled.
func (c *ChannelUpdate) IsDisabled() bool {
	return c.ChannelFlags&ChanUpdateDisabled == ChanUpdateDisabled
}

// Decode deserializes a serialized ChannelUpdate stored in the passed
// io.Reader observing the specified protocol version.
//
// This is part of the Message interface.
func (c *ChannelUpdate) Decode(r io.Reader, _ uint32) error {
	var fixed [64]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return err
	}

	copy(c.ChainHash[:], fixed[0:32])
	c.ShortChannelID = NewShortChanIDFromInt(
		binary.BigEndian.Uint64(fixed[32:40]),
	)
	c.Timestamp = binary.BigEndian.Uint32(fixed[40:44])
	c.MessageFlags = ChanUpdateMsgFlags(fixed[44])
	c.ChannelFlags = ChanUpdateChanFlags(fixed[45])
	c.TimeLockDelta = binary.BigEndian.Uint16(fixed[46:48])
	c.HtlcMinimumMsat = MilliSatoshi(
		binary.BigEndian.Uint64(fixed[48:56]),
	)
	c.BaseFee = binary.BigEndian.Uint32(fixed[56:60])
	c.FeeRate = binary.BigEndian.Uint32(fixed[60:64])

	c.HtlcMaximumMsat = fn.None[MilliSatoshi]()
	if c.MessageFlags&ChanUpdateRequiredMaxHtlc != 0 {
		var max [8]byte
		if _, err := io.ReadFull(r, max[:]); err != nil {
			return err
		}
		c.HtlcMaximumMsat = fn.Some(MilliSatoshi(
			binary.BigEndian.Uint64(max[:]),
		))
	}

	return nil
}

// Encode serializes the target ChannelUpdate into the passed buffer
// observing the protocol version specified.
//
// This is part of the Message interface.
func (c *ChannelUpdate) Encode(w *bytes.Buffer, _ uint32) error {
	var fixed [64]byte

	copy(fixed[0:32], c.ChainHash[:])
	binary.BigEndian.PutUint64(fixed[32:40], c.ShortChannelID.ToUint64())
	binary.BigEndian.PutUint32(fixed[40:44], c.Timestamp)
	fixed[44] = byte(c.MessageFlags)
	fixed[45] = byte(c.ChannelFlags)
	binary.BigEndian.PutUint16(fixed[46:48], c.TimeLockDelta)
	binary.BigEndian.PutUint64(fixed[48:56], uint64(c.HtlcMinimumMsat))
	binary.BigEndian.PutUint32(fixed[56:60], c.BaseFee)
	binary.BigEndian.PutUint32(fixed[60:64], c.FeeRate)
	w.Write(fixed[:])

	if c.MessageFlags&ChanUpdateRequiredMaxHtlc != 0 {
		max, err := c.HtlcMaximumMsat.UnwrapOrErr(
			ErrInvalidValue,
		)
		if err != nil {
			return err
		}

		var m [8]byte
		binary.BigEndian.PutUint64(m[:], uint64(max))
		w.Write(m[:])
	}

	return nil
}
