// Package nodeset tracks the node identities observed while replaying
// gossip, in a form that makes pseudo-random selection reproducible. The
// fuzz harness repeatedly needs "some node we have seen before", chosen by a
// couple of input bytes; for minimized crash reports to stay valid the same
// bytes must always select the same node. Rather than relying on a
// fixed-seed hash iteration order, the set keeps an explicit insertion-order
// sequence and indexes into it, which sidesteps hash seeding entirely.
package nodeset

import (
	"github.com/lightningnetwork/routerfuzz/gossipwire"
)

// Set is an insertion-ordered, deduplicated set of node identities. It only
// ever grows: even replaying a channel close does not remove the channel's
// endpoints. A Set is used by a single goroutine.
type Set struct {
	index map[gossipwire.NodeID]struct{}
	order []gossipwire.NodeID
}

// New creates an empty identity set.
func New() *Set {
	return &Set{
		index: make(map[gossipwire.NodeID]struct{}),
	}
}

// Add records an identity. Adding an identity that is already present is a
// no-op and does not disturb the established order.
func (s *Set) Add(id gossipwire.NodeID) {
	if _, ok := s.index[id]; ok {
		return
	}

	s.index[id] = struct{}{}
	s.order = append(s.order, id)
}

// Len returns the number of distinct identities observed so far.
func (s *Set) Len() int {
	return len(s.order)
}

// Pick deterministically selects the index mod Len()-th identity under
// insertion order. The caller must ensure the set is non-empty, typically by
// skipping the operation that needs a pick when Len() is zero.
func (s *Set) Pick(index uint16) gossipwire.NodeID {
	return s.order[int(index)%len(s.order)]
}

// ForEach invokes f on every identity in insertion order until f returns
// false or the set is exhausted. The set must not be mutated during the
// iteration.
func (s *Set) ForEach(f func(gossipwire.NodeID) bool) {
	for _, id := range s.order {
		if !f(id) {
			return
		}
	}
}
