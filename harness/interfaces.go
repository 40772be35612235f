package harness

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/routerfuzz/gossipwire"
	"github.com/lightningnetwork/routerfuzz/routecheck"
)

var (
	// ErrUnknownChain is returned by a ChainSource when the queried chain
	// hash does not match any chain it tracks.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrUnknownTx is returned by a ChainSource when the funding output
	// referenced by a short channel id cannot be found.
	ErrUnknownTx = errors.New("unknown transaction")
)

// ChainSource is the on-chain lookup oracle a graph may use to validate
// channel announcements against the UTXO set.
type ChainSource interface {
	// GetUtxo returns the funding output referenced by the passed
	// compact short channel id on the given chain, or ErrUnknownChain /
	// ErrUnknownTx when the lookup fails.
	GetUtxo(chainHash *chainhash.Hash, channelID uint64) (*wire.TxOut,
		error)
}

// Graph is the channel graph the harness replays gossip into. All methods
// report rejections as errors; the harness ignores them, except that the
// policy table is only updated for accepted channel updates.
type Graph interface {
	// AddNode upserts the node described by the announcement.
	AddNode(ann *gossipwire.NodeAnnouncement) error

	// AddChannel inserts the channel described by the announcement. When
	// chain is non-nil the graph must validate the announcement against
	// the chain before accepting it; a nil chain skips validation.
	AddChannel(ann *gossipwire.ChannelAnnouncement,
		chain ChainSource) error

	// ApplyChannelUpdate applies a directional policy update to a known
	// channel. A nil return means the update was accepted.
	ApplyChannelUpdate(upd *gossipwire.ChannelUpdate) error

	// CloseChannel removes the channel with the given compact short
	// channel id, if known. Node identities are never removed.
	CloseChannel(channelID uint64)
}

// Router is the path-finding engine under test. It is handed the same graph
// the harness mutates plus the per-query context, and returns either a
// route or a failure. Failures are not bugs; only returned routes are held
// to the policy invariants.
type Router interface {
	// FindRoutes computes one or more payment paths from source to
	// target delivering amt, spending at most the channels offered by
	// the graph, the direct first-hop channels and the last-hop hints,
	// with the given final time-lock budget in blocks.
	FindRoutes(source gossipwire.NodeID, graph Graph,
		target gossipwire.NodeID,
		directChannels []*routecheck.DirectChannel,
		hopHints []*routecheck.HopHint, amt gossipwire.MilliSatoshi,
		timeLockBudget uint32) (*routecheck.Route, error)
}
