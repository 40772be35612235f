// Package harness replays an adversarial byte stream as a sequence of
// gossip mutations and route queries against a channel graph and a
// path-finding engine, and cross-checks every route that comes back against
// the policies advertised at the moment of the query. The harness itself
// must never panic on malformed input: arbitrary bytes either replay
// cleanly or end the run early. A panic escaping this package means the
// router under test produced an inconsistent route, or the harness's own
// length bookkeeping is broken; both are bugs a fuzzing engine should
// record.
package harness

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/routerfuzz/fuzzinput"
	"github.com/lightningnetwork/routerfuzz/gossipwire"
	"github.com/lightningnetwork/routerfuzz/nodeset"
	"github.com/lightningnetwork/routerfuzz/routecheck"
)

const (
	// opNodeAnnouncement replays a node announcement into the graph.
	opNodeAnnouncement = 0

	// opChannelAnnouncement replays a channel announcement with chain
	// validation skipped.
	opChannelAnnouncement = 1

	// opCheckedChannelAnnouncement replays a channel announcement with
	// chain validation driven by the input stream.
	opCheckedChannelAnnouncement = 2

	// opChannelUpdate replays a directional channel policy update.
	opChannelUpdate = 3

	// opCloseChannel closes a channel by its compact short channel id.
	opCloseChannel = 4

	// Any other opcode issues a route query, provided at least one node
	// identity has been observed.

	// firstSynthChannelID seeds the counter that numbers the channels
	// synthesized for route queries, so they never collide with the low
	// ids typically used in replayed announcements.
	firstSynthChannelID = 42

	// maxAddrBytes caps the announced address bytes of a node
	// announcement at four maximum-size descriptors, matching the
	// documented limit of the wire format.
	maxAddrBytes = (37 + 1) * 4

	// nodeAnnInteriorSize is the byte count between a node
	// announcement's feature vector and its address length field:
	// timestamp, node id, RGB color and alias.
	nodeAnnInteriorSize = 4 + 33 + 3 + 32

	// chanAnnTrailerSize is the byte count following a channel
	// announcement's feature vector: chain hash, short channel id, two
	// node ids and two bitcoin keys.
	chanAnnTrailerSize = 32 + 8 + 33*4

	// chanUpdateFixedSize is the size of a channel update without the
	// optional htlc maximum, with msgFlagsOffset the position of the
	// message flags byte within it.
	chanUpdateFixedSize = 64
	msgFlagsOffset      = 32 + 8 + 4
)

// Config bundles the collaborators a Harness drives. Both the graph and the
// router are exclusively owned by the harness for the duration of one run.
type Config struct {
	// Graph receives the replayed gossip mutations.
	Graph Graph

	// Router serves the synthesized route queries.
	Router Router
}

// Harness executes a single fuzz iteration. A Harness is single-use: create
// one per input buffer and discard it when Run returns.
type Harness struct {
	cfg Config

	input    *fuzzinput.Data
	nodes    *nodeset.Set
	policies *routecheck.PolicyTable

	source        gossipwire.NodeID
	chainHash     chainhash.Hash
	nextChannelID uint64
}

// New creates a harness around the passed collaborators.
func New(cfg Config) *Harness {
	return &Harness{
		cfg:           cfg,
		nodes:         nodeset.New(),
		policies:      routecheck.NewPolicyTable(),
		chainHash:     *chaincfg.MainNetParams.GenesisHash,
		nextChannelID: firstSynthChannelID,
	}
}

// Run consumes the input buffer to completion or to the first expected
// decode failure, whichever comes first, replaying one operation per opcode
// byte. It performs no I/O beyond its collaborators and returns nothing: a
// clean return means the input held no counterexample, a panic means it
// did.
func (h *Harness) Run(data []byte) {
	h.input = fuzzinput.New(data)

	// The payment source is fixed for the whole run. A byte string that
	// is not a valid public key is ordinary fuzz noise, not a bug.
	srcBytes, ok := h.input.Next(33)
	if !ok {
		return
	}
	srcKey, err := btcec.ParsePubKey(srcBytes)
	if err != nil {
		return
	}
	h.source = gossipwire.NewNodeID(srcKey)

	for {
		op, ok := h.input.NextByte()
		if !ok {
			return
		}

		var cont bool
		switch op {
		case opNodeAnnouncement:
			cont = h.replayNodeAnnouncement()

		case opChannelAnnouncement:
			cont = h.replayChannelAnnouncement(false)

		case opCheckedChannelAnnouncement:
			cont = h.replayChannelAnnouncement(true)

		case opChannelUpdate:
			cont = h.replayChannelUpdate()

		case opCloseChannel:
			cont = h.replayCloseChannel()

		default:
			cont = h.queryRoutes()
		}

		if !cont {
			return
		}
	}
}

// decodeMsg carves length bytes off the input and decodes msg from them.
// The length was computed by the caller from the payload's own embedded
// length fields, so the decoder failing with a short read, or succeeding
// without consuming the payload exactly, can only mean the harness's sizing
// is wrong, and panics. Expected decode failures and input exhaustion
// return false to end the run.
func (h *Harness) decodeMsg(msg gossipwire.Message, length int) bool {
	payload, ok := h.input.Next(length)
	if !ok {
		return false
	}

	r := bytes.NewReader(payload)
	if err := msg.Decode(r, 0); err != nil {
		if expectedDecodeErr(err) {
			log.Tracef("Stopping on decode failure: %v", err)
			return false
		}

		panic(fmt.Sprintf("decode of %d self-sized bytes failed: "+
			"%v", length, err))
	}

	if r.Len() != 0 {
		panic(fmt.Sprintf("decoder left %d of %d self-sized bytes "+
			"unread", r.Len(), length))
	}

	return true
}

// expectedDecodeErr reports whether a decode failure is an ordinary
// consequence of feeding the codec arbitrary bytes.
func expectedDecodeErr(err error) bool {
	return errors.Is(err, gossipwire.ErrUnknownVersion) ||
		errors.Is(err, gossipwire.ErrUnknownRequiredFeature) ||
		errors.Is(err, gossipwire.ErrInvalidValue) ||
		errors.Is(err, gossipwire.ErrBadLengthDescriptor)
}

// replayNodeAnnouncement sizes, decodes and replays one node announcement,
// recording its identity for later route queries whether or not the graph
// accepts it.
func (h *Harness) replayNodeAnnouncement() bool {
	featureLen, ok := h.input.PeekUint16()
	if !ok {
		return false
	}

	// The address length field sits behind the feature vector and the
	// fixed interior fields; peek across all of it to size the full
	// payload without committing the cursor.
	window, ok := h.input.Peek(2 + int(featureLen) + nodeAnnInteriorSize + 2)
	if !ok {
		return false
	}
	addrLen := int(binary.BigEndian.Uint16(window[len(window)-2:]))
	if addrLen > maxAddrBytes {
		return false
	}

	var ann gossipwire.NodeAnnouncement
	length := 2 + int(featureLen) + nodeAnnInteriorSize + 2 + addrLen
	if !h.decodeMsg(&ann, length) {
		return false
	}

	h.nodes.Add(ann.NodeID)

	if err := h.cfg.Graph.AddNode(&ann); err != nil {
		log.Debugf("Graph rejected node %v: %v", ann.NodeID, err)
	}

	return true
}

// replayChannelAnnouncement sizes, decodes and replays one channel
// announcement, recording both endpoint identities. When validate is set
// the graph is handed the input-driven chain oracle.
func (h *Harness) replayChannelAnnouncement(validate bool) bool {
	featureLen, ok := h.input.PeekUint16()
	if !ok {
		return false
	}

	var ann gossipwire.ChannelAnnouncement
	length := 2 + int(featureLen) + chanAnnTrailerSize
	if !h.decodeMsg(&ann, length) {
		return false
	}

	h.nodes.Add(ann.NodeID1)
	h.nodes.Add(ann.NodeID2)

	var chain ChainSource
	if validate {
		chain = &fuzzChainSource{input: h.input}
	}

	if err := h.cfg.Graph.AddChannel(&ann, chain); err != nil {
		log.Debugf("Graph rejected channel %v: %v",
			ann.ShortChannelID, err)
	}

	return true
}

// replayChannelUpdate decodes one channel update and, if the graph accepts
// it, mirrors it into the policy table the validator consults.
func (h *Harness) replayChannelUpdate() bool {
	window, ok := h.input.Peek(msgFlagsOffset + 1)
	if !ok {
		return false
	}

	length := chanUpdateFixedSize
	flags := gossipwire.ChanUpdateMsgFlags(window[msgFlagsOffset])
	if flags&gossipwire.ChanUpdateRequiredMaxHtlc != 0 {
		length += 8
	}

	var upd gossipwire.ChannelUpdate
	if !h.decodeMsg(&upd, length) {
		return false
	}

	if err := h.cfg.Graph.ApplyChannelUpdate(&upd); err != nil {
		log.Debugf("Graph rejected update for %v: %v",
			upd.ShortChannelID, err)
		return true
	}

	h.policies.Update(&upd)

	return true
}

// replayCloseChannel closes a channel in the graph and drops both
// directional policy records. Identities stay recorded.
func (h *Harness) replayCloseChannel() bool {
	channelID, ok := h.input.NextUint64()
	if !ok {
		return false
	}

	h.cfg.Graph.CloseChannel(channelID)
	h.policies.Close(channelID)

	return true
}

// queryRoutes synthesizes a query context from the input, issues one route
// request per observed identity and feeds every successful result to the
// invariant checker. With no identities observed yet the opcode is a no-op.
func (h *Harness) queryRoutes() bool {
	if h.nodes.Len() == 0 {
		return true
	}

	directChannels, ok := h.readDirectChannels()
	if !ok {
		return false
	}

	hopHints, ok := h.readHopHints()
	if !ok {
		return false
	}

	checker := &routecheck.Checker{
		DirectChannels: directChannels,
		HopHints:       hopHints,
		Policies:       h.policies,
	}

	cont := true
	h.nodes.ForEach(func(target gossipwire.NodeID) bool {
		amt, ok := h.input.NextUint64()
		if !ok {
			cont = false
			return false
		}
		timeLockBudget, ok := h.input.NextUint32()
		if !ok {
			cont = false
			return false
		}

		route, err := h.cfg.Router.FindRoutes(
			h.source, h.cfg.Graph, target, directChannels,
			hopHints, gossipwire.MilliSatoshi(amt),
			timeLockBudget,
		)
		if err != nil {
			log.Tracef("No route to %v: %v", target, err)
			return true
		}

		checker.VerifyRoute(
			route, gossipwire.MilliSatoshi(amt), timeLockBudget,
		)

		return true
	})

	return cont
}

// readDirectChannels reads the count-prefixed list of synthesized first-hop
// channels. A zero count means the query offers no direct channels at all.
func (h *Harness) readDirectChannels() ([]*routecheck.DirectChannel, bool) {
	count, ok := h.input.NextByte()
	if !ok {
		return nil, false
	}

	var channels []*routecheck.DirectChannel
	for i := 0; i < int(count); i++ {
		h.nextChannelID++

		pick, ok := h.input.NextUint16()
		if !ok {
			return nil, false
		}
		capacity, ok := h.input.NextUint64()
		if !ok {
			return nil, false
		}

		channels = append(channels, &routecheck.DirectChannel{
			Node:      h.nodes.Pick(pick),
			ChannelID: h.nextChannelID,
			Capacity:  gossipwire.MilliSatoshi(capacity),
		})
	}

	return channels, true
}

// readHopHints reads the count-prefixed list of last-hop routing hints. The
// hints advertise a minimum but never a maximum, mirroring what invoices
// typically carry.
func (h *Harness) readHopHints() ([]*routecheck.HopHint, bool) {
	count, ok := h.input.NextByte()
	if !ok {
		return nil, false
	}

	var hints []*routecheck.HopHint
	for i := 0; i < int(count); i++ {
		h.nextChannelID++

		pick, ok := h.input.NextUint16()
		if !ok {
			return nil, false
		}
		baseFee, ok := h.input.NextUint32()
		if !ok {
			return nil, false
		}
		feeRate, ok := h.input.NextUint32()
		if !ok {
			return nil, false
		}
		timeLockDelta, ok := h.input.NextUint16()
		if !ok {
			return nil, false
		}
		htlcMinimum, ok := h.input.NextUint64()
		if !ok {
			return nil, false
		}

		hints = append(hints, &routecheck.HopHint{
			Node:            h.nodes.Pick(pick),
			ChannelID:       h.nextChannelID,
			FeeBase:         baseFee,
			FeeRate:         feeRate,
			CLTVExpiryDelta: timeLockDelta,
			HtlcMinimum: fn.Some(
				gossipwire.MilliSatoshi(htlcMinimum),
			),
			HtlcMaximum: fn.None[gossipwire.MilliSatoshi](),
		})
	}

	return hints, true
}
