package gossip

import "slices"

// MemberList tracks the cluster a node was initialized into and the
// neighbors it floods to.
type MemberList struct {
	self      string
	members   map[string]struct{}
	neighbors []string
}

func NewMemberList(self string, members []string) *MemberList {
	m := &MemberList{
		self:    self,
		members: make(map[string]struct{}, len(members)),
	}
	for _, id := range members {
		m.members[id] = struct{}{}
	}
	return m
}

func (m *MemberList) Self() string {
	return m.self
}

// Members returns the cluster member ids in sorted order.
func (m *MemberList) Members() []string {
	out := make([]string, 0, len(m.members))
	for id := range m.members {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (m *MemberList) Contains(id string) bool {
	_, ok := m.members[id]
	return ok
}

// Neighbors returns a copy of the current neighbor list in configured order.
func (m *MemberList) Neighbors() []string {
	return slices.Clone(m.neighbors)
}

// ApplyTopology replaces the neighbor list with this node's entry in
// topology. A missing entry leaves the node with no neighbors. Entries are
// taken as given: unknown or asymmetric neighbors are not rejected.
func (m *MemberList) ApplyTopology(topology map[string][]string) {
	m.neighbors = slices.Clone(topology[m.self])
}
