package gossipwire

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// testNodeID derives a valid identity from a deterministic private key.
func testNodeID(t *testing.T, b byte) NodeID {
	t.Helper()

	var keyBytes [32]byte
	keyBytes[31] = b
	require.NotZero(t, b)

	_, pub := btcec.PrivKeyFromBytes(keyBytes[:])

	return NewNodeID(pub)
}

// TestNodeAnnouncementRoundTrip asserts that a node announcement survives an
// encode/decode cycle, addresses included.
func TestNodeAnnouncementRoundTrip(t *testing.T) {
	t.Parallel()

	var alias NodeAlias
	copy(alias[:], "carol")

	ann := &NodeAnnouncement{
		Features: NewRawFeatureVector(
			DataLossProtectOptional, GossipQueriesOptional,
		),
		Timestamp: 123456,
		NodeID:    testNodeID(t, 1),
		Alias:     alias,
		Addresses: []net.Addr{
			&net.TCPAddr{
				IP:   net.IPv4(10, 0, 0, 1).To4(),
				Port: 9735,
			},
			&net.TCPAddr{
				IP:   net.ParseIP("2001:db8::1"),
				Port: 9736,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ann.Encode(&buf, 0))

	var decoded NodeAnnouncement
	r := bytes.NewReader(buf.Bytes())
	require.NoError(t, decoded.Decode(r, 0))
	require.Zero(t, r.Len())

	require.Equal(t, ann.Timestamp, decoded.Timestamp)
	require.Equal(t, ann.NodeID, decoded.NodeID)
	require.Equal(t, "carol", decoded.Alias.String())
	require.Len(t, decoded.Addresses, 2)
	require.True(t, decoded.Features.IsSet(DataLossProtectOptional))
	require.True(t, decoded.Features.IsSet(GossipQueriesOptional))
	require.False(t, decoded.Features.IsSet(TLVOnionPayloadRequired))
}

// TestNodeAnnouncementRejectsInvalidKey asserts that an identity off the
// secp256k1 curve fails the decode with the expected error class.
func TestNodeAnnouncementRejectsInvalidKey(t *testing.T) {
	t.Parallel()

	ann := &NodeAnnouncement{
		Features:  NewRawFeatureVector(),
		Timestamp: 1,
		NodeID:    testNodeID(t, 1),
	}

	var buf bytes.Buffer
	require.NoError(t, ann.Encode(&buf, 0))

	// Corrupt the node id: offset 2 (feature length) + 0 (empty
	// vector) + 4 (timestamp) is the first identity byte.
	payload := buf.Bytes()
	payload[2+4] = 0x00

	var decoded NodeAnnouncement
	err := decoded.Decode(bytes.NewReader(payload), 0)
	require.ErrorIs(t, err, ErrInvalidValue)
}

// TestUnknownRequiredFeature asserts that a required feature bit outside
// the known range fails the decode of any message embedding the vector.
func TestUnknownRequiredFeature(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(
		t, NewRawFeatureVector(FeatureBit(20)).Encode(&buf),
	)

	var fv RawFeatureVector
	err := fv.Decode(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrUnknownRequiredFeature)

	// The odd twin of the same bit is merely optional and passes.
	buf.Reset()
	require.NoError(
		t, NewRawFeatureVector(FeatureBit(21)).Encode(&buf),
	)
	require.NoError(t, fv.Decode(bytes.NewReader(buf.Bytes())))
}

// TestAddressParsing exercises the descriptor failure modes directly.
func TestAddressParsing(t *testing.T) {
	t.Parallel()

	// A descriptor from the future.
	_, err := parseAddresses([]byte{0x7F})
	require.ErrorIs(t, err, ErrUnknownVersion)

	// An IPv4 descriptor with a truncated payload.
	_, err = parseAddresses([]byte{0x01, 10, 0, 0})
	require.ErrorIs(t, err, ErrBadLengthDescriptor)

	// A valid v3 onion descriptor is accepted but not retained.
	onion := make([]byte, 1+37)
	onion[0] = 0x04
	addrs, err := parseAddresses(onion)
	require.NoError(t, err)
	require.Empty(t, addrs)
}

// TestChannelAnnouncementRoundTrip asserts that a channel announcement
// survives an encode/decode cycle.
func TestChannelAnnouncementRoundTrip(t *testing.T) {
	t.Parallel()

	node1 := testNodeID(t, 1)
	node2 := testNodeID(t, 2)

	ann := &ChannelAnnouncement{
		Features:       NewRawFeatureVector(),
		ChainHash:      *chaincfg.MainNetParams.GenesisHash,
		ShortChannelID: NewShortChanIDFromInt(123456789),
		NodeID1:        node1,
		NodeID2:        node2,
		BitcoinKey1:    [33]byte(node1),
		BitcoinKey2:    [33]byte(node2),
	}

	var buf bytes.Buffer
	require.NoError(t, ann.Encode(&buf, 0))

	var decoded ChannelAnnouncement
	r := bytes.NewReader(buf.Bytes())
	require.NoError(t, decoded.Decode(r, 0))
	require.Zero(t, r.Len())

	require.Equal(t, uint64(123456789), decoded.ShortChannelID.ToUint64())
	require.Equal(t, node1, decoded.NodeID1)
	require.Equal(t, node2, decoded.NodeID2)
	require.Equal(t, ann.ChainHash, decoded.ChainHash)
}

// TestChannelUpdateRoundTrip asserts that both forms of a channel update,
// with and without the optional htlc maximum, survive an encode/decode
// cycle.
func TestChannelUpdateRoundTrip(t *testing.T) {
	t.Parallel()

	upd := &ChannelUpdate{
		ChainHash:       *chaincfg.MainNetParams.GenesisHash,
		ShortChannelID:  NewShortChanIDFromInt(42),
		Timestamp:       7,
		MessageFlags:    ChanUpdateRequiredMaxHtlc,
		ChannelFlags:    ChanUpdateDirection,
		TimeLockDelta:   40,
		HtlcMinimumMsat: 1000,
		BaseFee:         1200,
		FeeRate:         3,
		HtlcMaximumMsat: fn.Some(MilliSatoshi(5_000_000)),
	}

	var buf bytes.Buffer
	require.NoError(t, upd.Encode(&buf, 0))
	require.Equal(t, 72, buf.Len())

	var decoded ChannelUpdate
	r := bytes.NewReader(buf.Bytes())
	require.NoError(t, decoded.Decode(r, 0))
	require.Zero(t, r.Len())

	require.Equal(t, upd.Timestamp, decoded.Timestamp)
	require.True(t, decoded.IsNode2())
	require.False(t, decoded.IsDisabled())
	require.Equal(t, upd.TimeLockDelta, decoded.TimeLockDelta)
	require.Equal(t, upd.HtlcMinimumMsat, decoded.HtlcMinimumMsat)
	require.Equal(
		t, MilliSatoshi(5_000_000),
		decoded.HtlcMaximumMsat.UnwrapOrFail(t),
	)

	// Without the message flag the maximum is absent and the update is
	// eight bytes shorter.
	upd.MessageFlags = 0
	upd.ChannelFlags = 0
	buf.Reset()
	require.NoError(t, upd.Encode(&buf, 0))
	require.Equal(t, 64, buf.Len())

	r = bytes.NewReader(buf.Bytes())
	require.NoError(t, decoded.Decode(r, 0))
	require.Zero(t, r.Len())
	require.False(t, decoded.IsNode2())
	require.True(t, decoded.HtlcMaximumMsat.IsNone())
}

// TestShortReadSurfacesAsEOF asserts that truncated payloads fail with the
// io error classes rather than a codec sentinel, since the caller decides
// whether a short read was its own fault.
func TestShortReadSurfacesAsEOF(t *testing.T) {
	t.Parallel()

	var upd ChannelUpdate
	err := upd.Decode(bytes.NewReader([]byte{0x01, 0x02}), 0)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var ann ChannelAnnouncement
	err = ann.Decode(bytes.NewReader(nil), 0)
	require.ErrorIs(t, err, io.EOF)
}
