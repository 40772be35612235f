package routecheck

import (
	"github.com/lightningnetwork/routerfuzz/gossipwire"
)

// policyKey identifies one direction of one channel.
type policyKey struct {
	channelID uint64
	node2     bool
}

// PolicyTable records the most recently accepted channel update for each
// (channel, direction) pair that the harness has successfully replayed into
// the graph. It is the third and most general of the three policy sources
// the checker consults, behind direct channels and hop hints. At most one
// record exists per direction of a channel at any time.
type PolicyTable struct {
	policies map[policyKey]*gossipwire.ChannelUpdate
}

// NewPolicyTable creates an empty policy table.
func NewPolicyTable() *PolicyTable {
	return &PolicyTable{
		policies: make(map[policyKey]*gossipwire.ChannelUpdate),
	}
}

// Update upserts the record for the update's (channel, direction) pair. The
// caller is responsible for only feeding in updates the graph accepted.
func (t *PolicyTable) Update(upd *gossipwire.ChannelUpdate) {
	key := policyKey{
		channelID: upd.ShortChannelID.ToUint64(),
		node2:     upd.IsNode2(),
	}
	t.policies[key] = upd
}

// Close drops both directional records of the given channel, if present.
func (t *PolicyTable) Close(channelID uint64) {
	delete(t.policies, policyKey{channelID: channelID, node2: false})
	delete(t.policies, policyKey{channelID: channelID, node2: true})
}

// Lookup returns the record for one direction of a channel, or nil if none
// has been accepted.
func (t *PolicyTable) Lookup(channelID uint64,
	node2 bool) *gossipwire.ChannelUpdate {

	return t.policies[policyKey{channelID: channelID, node2: node2}]
}
