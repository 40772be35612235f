package routecheck

import (
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/routerfuzz/gossipwire"
)

// Hop is one forwarding relationship within a payment path, as produced by
// the router under test.
type Hop struct {
	// Node is the identity of the node the payment is forwarded to at
	// this hop.
	Node gossipwire.NodeID

	// ChannelID is the compact short channel id of the channel the hop
	// traverses.
	ChannelID uint64

	// Fee is the fee this hop charges for forwarding. For the terminal
	// hop of a path it instead carries the amount delivered to the
	// destination over that path.
	Fee gossipwire.MilliSatoshi

	// CLTVExpiryDelta is the cumulative time-lock delta from this hop to
	// the end of the path, expressed in blocks. For the terminal hop it
	// must equal the requested time-lock budget exactly.
	CLTVExpiryDelta uint32
}

// Route is the full result of one successful route query: one or more
// payment paths that together deliver the requested amount. A Route is
// consumed read-only by the checker.
type Route struct {
	// Paths is the ordered list of payment paths, each an ordered hop
	// sequence from sender to receiver.
	Paths [][]*Hop
}

// DirectChannel describes a synthesized channel attached directly to the
// payment source. From the sender's own point of view the first hop is free
// and immediate, so the only policy a direct channel carries is its
// capacity.
type DirectChannel struct {
	// Node is the identity on the far side of the channel.
	Node gossipwire.NodeID

	// ChannelID is the compact short channel id assigned to the
	// synthesized channel.
	ChannelID uint64

	// Capacity bounds the amount that may be forwarded over the channel.
	Capacity gossipwire.MilliSatoshi
}

// HopHint describes a routing hint for the final leg of a path, as carried
// in an invoice. Unlike a direct channel, a hint advertises a full
// forwarding policy on behalf of the destination.
type HopHint struct {
	// Node is the identity of the hinted forwarding node.
	Node gossipwire.NodeID

	// ChannelID is the compact short channel id of the hinted channel.
	ChannelID uint64

	// FeeBase is the hinted base forwarding fee in millisatoshi.
	FeeBase uint32

	// FeeRate is the hinted proportional fee, in millionths.
	FeeRate uint32

	// CLTVExpiryDelta is the hinted forwarding time-lock delta in
	// blocks.
	CLTVExpiryDelta uint16

	// HtlcMinimum is the smallest amount the hinted node forwards, when
	// advertised.
	HtlcMinimum fn.Option[gossipwire.MilliSatoshi]

	// HtlcMaximum is the largest amount the hinted node forwards, when
	// advertised.
	HtlcMaximum fn.Option[gossipwire.MilliSatoshi]
}
