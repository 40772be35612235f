// Package routecheck verifies that routes produced by a path-finding engine
// are internally consistent with the channel policies that were advertised
// to it. The checker recomputes every hop's expected fee, time-lock delta
// and amount bounds from the policy actually in force for that hop's channel
// and direction, and panics on the first disagreement. The panic is the
// designed bug signal: under a fuzzing engine it aborts the process and
// marks the input as a reproducer, so nothing in this package may ever
// recover it.
package routecheck

import (
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/routerfuzz/gossipwire"
)

// feeRateDivisor converts a proportional fee rate in millionths into a fee.
const feeRateDivisor = 1_000_000

// hopPolicy is the resolved forwarding policy for a single hop, normalized
// from whichever of the three policy sources applied.
type hopPolicy struct {
	htlcMinimum   fn.Option[gossipwire.MilliSatoshi]
	htlcMaximum   fn.Option[gossipwire.MilliSatoshi]
	timeLockDelta uint32
	baseFee       uint32
	feeRate       uint32
}

// Checker holds the query context of a single route request together with
// the harness's policy table, which is everything needed to re-derive the
// policy the router must have used for any hop it returned.
type Checker struct {
	// DirectChannels are the synthesized first-hop channels the query
	// offered to the router.
	DirectChannels []*DirectChannel

	// HopHints are the routing hints the query offered for the final leg.
	HopHints []*HopHint

	// Policies is the table of accepted channel updates at the moment of
	// the query.
	Policies *PolicyTable
}

// VerifyRoute walks every path of the route backward and asserts that each
// hop's fee, time-lock delta and forwarded amount agree with the policy in
// force for that hop, and that the amounts delivered across all paths sum to
// the requested amount exactly. Any violation panics. A path whose mid-path
// policy is direction-ambiguous (both directions of the channel carry an
// accepted update) is skipped rather than failed, since the route alone
// does not reveal which direction was used.
func (c *Checker) VerifyRoute(route *Route, amt gossipwire.MilliSatoshi,
	timeLockBudget uint32) {

	var sent gossipwire.MilliSatoshi

	for i, path := range route.Paths {
		if len(path) == 0 {
			fatalf("path %d of %d is empty", i, len(route.Paths))
		}

		terminal := path[len(path)-1]
		sent += terminal.Fee

		if terminal.CLTVExpiryDelta != timeLockBudget {
			fatalf("path %d terminal time-lock %d != requested "+
				"budget %d", i, terminal.CLTVExpiryDelta,
				timeLockBudget)
		}

		// A zero-amount path carries no meaningful fee policy, but it
		// still participates in the conservation check above.
		if amt == 0 {
			continue
		}

		c.verifyPath(i, path)
	}

	if sent != amt {
		fatalf("route sends %v across %d paths, requested %v",
			sent, len(route.Paths), amt)
	}
}

// verifyPath checks the hop pairs of a single path from the destination
// backward, accumulating the amount each hop must forward.
func (c *Checker) verifyPath(pathIdx int, path []*Hop) {
	pathTotal := path[len(path)-1].Fee

	for idx := len(path) - 2; idx >= 0; idx-- {
		prevHop, hop := path[idx], path[idx+1]

		policy, ok := c.resolvePolicy(idx, len(path), hop)
		if !ok {
			// Both directions of the channel have an accepted
			// update and the route does not say which one is in
			// use, so this path cannot be verified.
			log.Debugf("Skipping path %d: ambiguous policy for "+
				"channel %d", pathIdx, hop.ChannelID)
			return
		}

		policy.htlcMaximum.WhenSome(
			func(max gossipwire.MilliSatoshi) {
				if pathTotal > max {
					fatalf("path %d hop %d forwards %v "+
						"over channel %d with max %v",
						pathIdx, idx, pathTotal,
						hop.ChannelID, max)
				}
			},
		)
		policy.htlcMinimum.WhenSome(
			func(min gossipwire.MilliSatoshi) {
				if pathTotal < min {
					fatalf("path %d hop %d forwards %v "+
						"over channel %d with min %v",
						pathIdx, idx, pathTotal,
						hop.ChannelID, min)
				}
			},
		)

		if prevHop.Fee < gossipwire.MilliSatoshi(policy.baseFee) {
			fatalf("path %d hop %d fee %v below base fee %d of "+
				"channel %d", pathIdx, idx, prevHop.Fee,
				policy.baseFee, hop.ChannelID)
		}

		expectedFee := gossipwire.MilliSatoshi(policy.baseFee) +
			gossipwire.MilliSatoshi(policy.feeRate)*
				pathTotal/feeRateDivisor
		if prevHop.Fee != expectedFee {
			fatalf("path %d hop %d fee %v != expected %v "+
				"(base %d, rate %d, forwarded %v) on "+
				"channel %d", pathIdx, idx, prevHop.Fee,
				expectedFee, policy.baseFee, policy.feeRate,
				pathTotal, hop.ChannelID)
		}

		pathTotal += prevHop.Fee

		if prevHop.CLTVExpiryDelta != policy.timeLockDelta {
			fatalf("path %d hop %d time-lock delta %d != "+
				"policy delta %d on channel %d", pathIdx,
				idx, prevHop.CLTVExpiryDelta,
				policy.timeLockDelta, hop.ChannelID)
		}
	}
}

// resolvePolicy determines the policy in force for the pair at backward
// index idx whose forwarding channel is hop.ChannelID. Precedence, first
// match wins: a direct channel at the first pair, a hop hint at the last
// pair, then the single advertised direction of the channel update table.
// The returned bool is false when both directions are advertised and the
// choice is ambiguous. A hop with no resolvable policy at all is a harness
// inconsistency and panics.
func (c *Checker) resolvePolicy(idx, pathLen int, hop *Hop) (hopPolicy,
	bool) {

	if idx == 0 {
		for _, direct := range c.DirectChannels {
			if direct.ChannelID != hop.ChannelID {
				continue
			}

			// The sender pays no fee and adds no time-lock to
			// use its own channel; only the capacity binds.
			return hopPolicy{
				htlcMaximum: fn.Some(direct.Capacity),
			}, true
		}
	}

	if idx == pathLen-2 {
		for _, hint := range c.HopHints {
			if hint.ChannelID != hop.ChannelID {
				continue
			}

			return hopPolicy{
				htlcMinimum:   hint.HtlcMinimum,
				htlcMaximum:   hint.HtlcMaximum,
				timeLockDelta: uint32(hint.CLTVExpiryDelta),
				baseFee:       hint.FeeBase,
				feeRate:       hint.FeeRate,
			}, true
		}
	}

	updA := c.Policies.Lookup(hop.ChannelID, false)
	updB := c.Policies.Lookup(hop.ChannelID, true)

	switch {
	case updA != nil && updB != nil:
		return hopPolicy{}, false

	case updA == nil && updB == nil:
		fatalf("no known policy for channel %d returned by the "+
			"router", hop.ChannelID)
	}

	upd := updA
	if upd == nil {
		upd = updB
	}

	return hopPolicy{
		htlcMinimum:   fn.Some(upd.HtlcMinimumMsat),
		htlcMaximum:   upd.HtlcMaximumMsat,
		timeLockDelta: uint32(upd.TimeLockDelta),
		baseFee:       upd.BaseFee,
		feeRate:       upd.FeeRate,
	}, true
}

// fatalf logs the inconsistency and aborts. The panic must propagate all the
// way out of the process so the fuzzing engine records the input.
func fatalf(format string, args ...interface{}) {
	log.Criticalf("Route inconsistency: "+format, args...)
	panic(fmt.Sprintf("route inconsistency: "+format, args...))
}
