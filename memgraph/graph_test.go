package memgraph

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/routerfuzz/gossipwire"
	"github.com/lightningnetwork/routerfuzz/harness"
	"github.com/stretchr/testify/require"
)

var testChain = *chaincfg.MainNetParams.GenesisHash

// staticChainSource serves the same funding output for every lookup, or the
// configured error.
type staticChainSource struct {
	out *wire.TxOut
	err error
}

func (s *staticChainSource) GetUtxo(_ *chainhash.Hash,
	_ uint64) (*wire.TxOut, error) {

	return s.out, s.err
}

func testNodeID(b byte) gossipwire.NodeID {
	var id gossipwire.NodeID
	id[0] = b

	return id
}

func testNodeAnn(id gossipwire.NodeID,
	timestamp uint32) *gossipwire.NodeAnnouncement {

	return &gossipwire.NodeAnnouncement{
		Timestamp: timestamp,
		NodeID:    id,
	}
}

func testChanAnn(chanID uint64) *gossipwire.ChannelAnnouncement {
	ann := &gossipwire.ChannelAnnouncement{
		ChainHash:      testChain,
		ShortChannelID: gossipwire.NewShortChanIDFromInt(chanID),
		NodeID1:        testNodeID(1),
		NodeID2:        testNodeID(2),
	}
	ann.BitcoinKey1[0] = 0xaa
	ann.BitcoinKey2[0] = 0xbb

	return ann
}

func testChanUpdate(chanID uint64, timestamp uint32,
	node2 bool) *gossipwire.ChannelUpdate {

	var flags gossipwire.ChanUpdateChanFlags
	if node2 {
		flags |= gossipwire.ChanUpdateDirection
	}

	return &gossipwire.ChannelUpdate{
		ChainHash:      testChain,
		ShortChannelID: gossipwire.NewShortChanIDFromInt(chanID),
		Timestamp:      timestamp,
		ChannelFlags:   flags,
	}
}

// TestAddNodeFreshness asserts that a node record is only replaced by a
// strictly newer announcement.
func TestAddNodeFreshness(t *testing.T) {
	t.Parallel()

	g := New(testChain)

	require.NoError(t, g.AddNode(testNodeAnn(testNodeID(1), 100)))
	require.Equal(t, 1, g.NumNodes())

	// Same and older timestamps are rejected.
	require.ErrorIs(t, g.AddNode(testNodeAnn(testNodeID(1), 100)),
		ErrOutdated)
	require.ErrorIs(t, g.AddNode(testNodeAnn(testNodeID(1), 99)),
		ErrOutdated)

	// A newer one replaces, a distinct identity inserts.
	require.NoError(t, g.AddNode(testNodeAnn(testNodeID(1), 101)))
	require.NoError(t, g.AddNode(testNodeAnn(testNodeID(2), 1)))
	require.Equal(t, 2, g.NumNodes())
}

// TestAddChannelUnvalidated asserts insertion without a chain source: no
// capacity is learned and duplicate short channel ids are rejected.
func TestAddChannelUnvalidated(t *testing.T) {
	t.Parallel()

	g := New(testChain)

	require.NoError(t, g.AddChannel(testChanAnn(42), nil))
	require.Equal(t, 1, g.NumChannels())

	capacity, ok := g.ChannelCapacity(42)
	require.True(t, ok)
	require.Zero(t, capacity)

	require.ErrorIs(t, g.AddChannel(testChanAnn(42), nil),
		ErrChannelKnown)

	wrongChain := testChanAnn(43)
	wrongChain.ChainHash = chainhash.Hash{1}
	require.ErrorIs(t, g.AddChannel(wrongChain, nil), ErrWrongChain)
}

// TestAddChannelChainValidation asserts that with a chain source the funding
// output must pay to the 2-of-2 witness script over the announced keys, and
// that its value becomes the capacity.
func TestAddChannelChainValidation(t *testing.T) {
	t.Parallel()

	ann := testChanAnn(42)
	script, err := fundingScript(ann.BitcoinKey1, ann.BitcoinKey2)
	require.NoError(t, err)

	g := New(testChain)
	chain := &staticChainSource{
		out: &wire.TxOut{Value: 250_000, PkScript: script},
	}
	require.NoError(t, g.AddChannel(ann, chain))

	capacity, ok := g.ChannelCapacity(42)
	require.True(t, ok)
	require.EqualValues(t, 250_000, capacity)

	// A funding output committing to different keys is rejected.
	other := testChanAnn(43)
	other.BitcoinKey1[0] = 0xcc
	require.ErrorIs(t, g.AddChannel(other, chain),
		ErrInvalidFundingOutput)

	// A chain source failure propagates.
	failing := &staticChainSource{err: harness.ErrUnknownTx}
	require.ErrorIs(t, g.AddChannel(testChanAnn(44), failing),
		harness.ErrUnknownTx)
	require.Equal(t, 1, g.NumChannels())
}

// TestApplyChannelUpdate asserts directional policy slots with per-direction
// freshness.
func TestApplyChannelUpdate(t *testing.T) {
	t.Parallel()

	g := New(testChain)

	// Unknown channel first.
	require.ErrorIs(t, g.ApplyChannelUpdate(testChanUpdate(42, 1, false)),
		ErrChannelUnknown)

	require.NoError(t, g.AddChannel(testChanAnn(42), nil))

	require.NoError(t, g.ApplyChannelUpdate(testChanUpdate(42, 10, false)))

	// The other direction keeps its own timestamp history.
	require.NoError(t, g.ApplyChannelUpdate(testChanUpdate(42, 5, true)))

	// Stale per-direction updates are rejected.
	require.ErrorIs(t,
		g.ApplyChannelUpdate(testChanUpdate(42, 10, false)),
		ErrOutdated)
	require.NoError(t, g.ApplyChannelUpdate(testChanUpdate(42, 11, false)))

	wrongChain := testChanUpdate(42, 20, false)
	wrongChain.ChainHash = chainhash.Hash{1}
	require.ErrorIs(t, g.ApplyChannelUpdate(wrongChain), ErrWrongChain)
}

// TestCloseChannel asserts that closing forgets the channel but not the
// node records.
func TestCloseChannel(t *testing.T) {
	t.Parallel()

	g := New(testChain)
	require.NoError(t, g.AddNode(testNodeAnn(testNodeID(1), 1)))
	require.NoError(t, g.AddChannel(testChanAnn(42), nil))

	g.CloseChannel(42)
	require.Equal(t, 0, g.NumChannels())
	require.Equal(t, 1, g.NumNodes())

	_, ok := g.ChannelCapacity(42)
	require.False(t, ok)

	// Closing an unknown channel is a no-op.
	g.CloseChannel(42)

	// The short channel id is reusable after close.
	require.NoError(t, g.AddChannel(testChanAnn(42), nil))
}
