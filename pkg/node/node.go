package node

import (
	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/pkg/gossip"
)

// Node is one cluster member. It owns all per-node state and is driven by
// Handle, one message at a time; it is not safe for concurrent use.
type Node struct {
	members *gossip.MemberList
	flood   *gossip.Flooder
	counter Counter
	ids     IDGenerator
	log     *zap.Logger

	nextMsgID uint64
}

type Option func(*Node)

// WithLogger sets the parent logger. The node derives a named child tagged
// with its id.
func WithLogger(l *zap.Logger) Option {
	return func(n *Node) { n.log = l }
}

// WithIDGenerator replaces the source of generate ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(n *Node) { n.ids = g }
}

func NewNode(id string, members []string, opts ...Option) *Node {
	ml := gossip.NewMemberList(id, members)
	n := &Node{
		members: ml,
		flood:   gossip.NewFlooder(ml),
		ids:     UUIDGenerator{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = n.log.Named("node").With(zap.String("node_id", id))
	return n
}

func (n *Node) ID() string {
	return n.members.Self()
}

// ClusterMembers returns the ids this node was initialized with, sorted.
func (n *Node) ClusterMembers() []string {
	return n.members.Members()
}

func (n *Node) Neighbors() []string {
	return n.members.Neighbors()
}

// Messages returns the accepted broadcast values in first-seen order.
func (n *Node) Messages() []int64 {
	return n.flood.Seen()
}

func (n *Node) CounterValue() uint64 {
	return n.counter.Value()
}

// msgID hands out the id for the next outgoing message.
func (n *Node) msgID() uint64 {
	id := n.nextMsgID
	n.nextMsgID++
	return id
}
