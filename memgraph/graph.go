// Package memgraph provides an in-memory channel graph implementing the
// harness's Graph contract. It stores exactly what a routing view needs:
// nodes keyed by identity, channels keyed by compact short channel id, and
// one policy slot per channel direction. Replay-style freshness rules apply
// throughout: a stale timestamp is a rejection, never an overwrite.
package memgraph

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/routerfuzz/gossipwire"
	"github.com/lightningnetwork/routerfuzz/harness"
)

var (
	// ErrWrongChain is returned when an announcement or update targets a
	// chain other than the one the graph was created for.
	ErrWrongChain = errors.New("announcement for wrong chain")

	// ErrChannelKnown is returned when a channel announcement reuses a
	// short channel id the graph already tracks.
	ErrChannelKnown = errors.New("channel already known")

	// ErrChannelUnknown is returned when an update references a channel
	// the graph does not track.
	ErrChannelUnknown = errors.New("channel unknown")

	// ErrOutdated is returned when a node announcement or channel update
	// does not advance the timestamp of the record it replaces.
	ErrOutdated = errors.New("announcement not newer than known one")

	// ErrInvalidFundingOutput is returned when chain validation finds a
	// funding output whose script does not commit to the announced
	// bitcoin keys.
	ErrInvalidFundingOutput = errors.New("funding output script mismatch")
)

// channelInfo is everything the graph retains about one announced channel.
type channelInfo struct {
	node1 gossipwire.NodeID
	node2 gossipwire.NodeID

	bitcoinKey1 [33]byte
	bitcoinKey2 [33]byte

	// capacity is only known for chain-validated channels, where it is
	// the value of the funding output.
	capacity btcutil.Amount

	// policies holds the freshest accepted update per direction, indexed
	// by the direction flag.
	policies [2]*gossipwire.ChannelUpdate
}

// Graph is an in-memory channel graph for a single chain. It is exclusively
// owned by one harness run and performs no locking.
type Graph struct {
	chainHash chainhash.Hash

	nodes    map[gossipwire.NodeID]*gossipwire.NodeAnnouncement
	channels map[uint64]*channelInfo
}

// A compile time check to ensure Graph implements the harness.Graph
// interface.
var _ harness.Graph = (*Graph)(nil)

// New creates an empty graph tracking the chain with the given genesis
// hash.
func New(chainHash chainhash.Hash) *Graph {
	return &Graph{
		chainHash: chainHash,
		nodes: make(
			map[gossipwire.NodeID]*gossipwire.NodeAnnouncement,
		),
		channels: make(map[uint64]*channelInfo),
	}
}

// AddNode upserts the announced node. A replacement announcement must carry
// a strictly newer timestamp.
//
// This is part of the harness.Graph interface.
func (g *Graph) AddNode(ann *gossipwire.NodeAnnouncement) error {
	if known, ok := g.nodes[ann.NodeID]; ok {
		if ann.Timestamp <= known.Timestamp {
			return ErrOutdated
		}
	}

	g.nodes[ann.NodeID] = ann
	log.Tracef("Node %v announced (alias %q)", ann.NodeID, ann.Alias)

	return nil
}

// AddChannel inserts the announced channel. With a non-nil chain source the
// announcement is validated against the chain: the referenced funding
// output must exist and pay to the witness script hash of the 2-of-2
// multisig over the announced bitcoin keys, and its value becomes the
// channel capacity.
//
// This is part of the harness.Graph interface.
func (g *Graph) AddChannel(ann *gossipwire.ChannelAnnouncement,
	chain harness.ChainSource) error {

	if ann.ChainHash != g.chainHash {
		return ErrWrongChain
	}

	channelID := ann.ShortChannelID.ToUint64()
	if _, ok := g.channels[channelID]; ok {
		return ErrChannelKnown
	}

	info := &channelInfo{
		node1:       ann.NodeID1,
		node2:       ann.NodeID2,
		bitcoinKey1: ann.BitcoinKey1,
		bitcoinKey2: ann.BitcoinKey2,
	}

	if chain != nil {
		fundingOut, err := chain.GetUtxo(&g.chainHash, channelID)
		if err != nil {
			return fmt.Errorf("unable to fetch funding output "+
				"for channel %v: %w", ann.ShortChannelID, err)
		}

		expectedScript, err := fundingScript(
			ann.BitcoinKey1, ann.BitcoinKey2,
		)
		if err != nil {
			return err
		}
		if !bytes.Equal(fundingOut.PkScript, expectedScript) {
			return ErrInvalidFundingOutput
		}

		info.capacity = btcutil.Amount(fundingOut.Value)
	}

	g.channels[channelID] = info
	log.Tracef("Channel %v announced between %v and %v",
		ann.ShortChannelID, ann.NodeID1, ann.NodeID2)

	return nil
}

// ApplyChannelUpdate applies a directional policy update to a known
// channel. The per-direction timestamp must strictly advance.
//
// This is part of the harness.Graph interface.
func (g *Graph) ApplyChannelUpdate(upd *gossipwire.ChannelUpdate) error {
	if upd.ChainHash != g.chainHash {
		return ErrWrongChain
	}

	info, ok := g.channels[upd.ShortChannelID.ToUint64()]
	if !ok {
		return ErrChannelUnknown
	}

	direction := 0
	if upd.IsNode2() {
		direction = 1
	}

	if known := info.policies[direction]; known != nil {
		if upd.Timestamp <= known.Timestamp {
			return ErrOutdated
		}
	}

	info.policies[direction] = upd
	log.Tracef("Policy for %v dir %d: base %d, rate %d, delta %d",
		upd.ShortChannelID, direction, upd.BaseFee, upd.FeeRate,
		upd.TimeLockDelta)

	return nil
}

// CloseChannel forgets the channel and both its directional policies. Node
// records are untouched; identities outlive their channels.
//
// This is part of the harness.Graph interface.
func (g *Graph) CloseChannel(channelID uint64) {
	delete(g.channels, channelID)
}

// NumNodes returns the number of announced nodes.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumChannels returns the number of open announced channels.
func (g *Graph) NumChannels() int {
	return len(g.channels)
}

// ChannelCapacity returns the capacity recorded for a chain-validated
// channel, or false if the channel is unknown.
func (g *Graph) ChannelCapacity(channelID uint64) (btcutil.Amount, bool) {
	info, ok := g.channels[channelID]
	if !ok {
		return 0, false
	}

	return info.capacity, true
}

// fundingScript derives the pay-to-witness-script-hash script a channel's
// funding output must carry: a 2-of-2 multisig over the announced bitcoin
// keys, in announcement order.
func fundingScript(key1, key2 [33]byte) ([]byte, error) {
	witnessScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_2).
		AddData(key1[:]).
		AddData(key2[:]).
		AddOp(txscript.OP_2).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
	if err != nil {
		return nil, err
	}

	return harness.WitnessScriptHash(witnessScript)
}
