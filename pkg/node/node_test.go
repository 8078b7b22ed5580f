package node

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryandielhenn/glomers/pkg/message"
)

func handle(t *testing.T, n *Node, src string, body message.Body) []message.Envelope {
	t.Helper()
	out, err := n.Handle(message.Envelope{Src: src, Dest: n.ID(), Body: body})
	require.NoError(t, err)
	return out
}

func TestInitReply(t *testing.T) {
	n := NewNode("n1", []string{"n1", "n2"})
	out := handle(t, n, "c0", message.Init{MsgID: 1, NodeID: "n1", NodeIDs: []string{"n1", "n2"}})

	require.Len(t, out, 1)
	assert.Equal(t, message.Envelope{Src: "n1", Dest: "c0", Body: message.InitOK{InReplyTo: 1}}, out[0])
	assert.Equal(t, []string{"n1", "n2"}, n.ClusterMembers())
}

func TestEchoAfterInit(t *testing.T) {
	n := NewNode("n1", []string{"n1"})
	handle(t, n, "c0", message.Init{MsgID: 1, NodeID: "n1", NodeIDs: []string{"n1"}})

	out := handle(t, n, "c1", message.Echo{MsgID: 1, Echo: "hi"})
	require.Len(t, out, 1)
	assert.Equal(t, message.Envelope{
		Src:  "n1",
		Dest: "c1",
		Body: message.EchoOK{MsgID: 0, InReplyTo: 1, Echo: "hi"},
	}, out[0])
}

func TestMsgIDsIncrease(t *testing.T) {
	n := NewNode("n1", []string{"n1"})
	var ids []uint64
	for i := uint64(1); i <= 5; i++ {
		out := handle(t, n, "c1", message.Echo{MsgID: i, Echo: "x"})
		ids = append(ids, out[0].Body.(message.EchoOK).MsgID)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, ids)
}

func TestGenerateUnique(t *testing.T) {
	nodes := []*Node{NewNode("n1", nil), NewNode("n2", nil), NewNode("n3", nil)}
	seen := make(map[string]struct{})
	for i := 0; i < 300; i++ {
		n := nodes[i%len(nodes)]
		out := handle(t, n, "c1", message.Generate{MsgID: uint64(i)})
		require.Len(t, out, 1)
		ok, isGen := out[0].Body.(message.GenerateOK)
		require.True(t, isGen)
		assert.Equal(t, uint64(i), ok.InReplyTo)
		assert.LessOrEqual(t, ok.ID.BitLen(), 128)

		key := ok.ID.String()
		_, dup := seen[key]
		require.False(t, dup, "duplicate id %s", key)
		seen[key] = struct{}{}
	}
}

type failingGenerator struct{}

func (failingGenerator) Next() (*big.Int, error) { return nil, errors.New("entropy exhausted") }

func TestGenerateError(t *testing.T) {
	n := NewNode("n1", nil, WithIDGenerator(failingGenerator{}))
	_, err := n.Handle(message.Envelope{Src: "c1", Dest: "n1", Body: message.Generate{MsgID: 1}})
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestBroadcastFloodsOnce(t *testing.T) {
	n := NewNode("n1", []string{"n1", "n2"})
	handle(t, n, "c1", message.Topology{MsgID: 1, Topology: map[string][]string{"n1": {"n2"}, "n2": {"n1"}}})

	out := handle(t, n, "c1", message.Broadcast{MsgID: 2, Message: 42})
	require.Len(t, out, 2)
	assert.Equal(t, "n2", out[0].Dest)
	assert.Equal(t, "n1", out[0].Src)
	flood, ok := out[0].Body.(message.Broadcast)
	require.True(t, ok)
	assert.Equal(t, int64(42), flood.Message)

	assert.Equal(t, "c1", out[1].Dest)
	ack, ok := out[1].Body.(message.BroadcastOK)
	require.True(t, ok)
	assert.Equal(t, uint64(2), ack.InReplyTo)
	assert.Greater(t, ack.MsgID, flood.MsgID)

	out = handle(t, n, "c1", message.Broadcast{MsgID: 3, Message: 42})
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].Dest)
	assert.Equal(t, message.TypeBroadcastOK, out[0].Body.Type())

	assert.Equal(t, []int64{42}, n.Messages())
}

func TestBroadcastFromNeighborIsStillForwarded(t *testing.T) {
	n := NewNode("n2", []string{"n1", "n2", "n3"})
	handle(t, n, "c1", message.Topology{MsgID: 1, Topology: map[string][]string{"n2": {"n1", "n3"}}})

	out := handle(t, n, "n1", message.Broadcast{MsgID: 7, Message: 5})
	require.Len(t, out, 3)
	assert.Equal(t, []string{"n1", "n3", "n1"}, []string{out[0].Dest, out[1].Dest, out[2].Dest})
	assert.Equal(t, message.TypeBroadcastOK, out[2].Body.Type())
}

func TestBroadcastWithoutTopology(t *testing.T) {
	n := NewNode("n1", []string{"n1", "n2"})
	out := handle(t, n, "c1", message.Broadcast{MsgID: 1, Message: 9})
	require.Len(t, out, 1)
	assert.Equal(t, message.TypeBroadcastOK, out[0].Body.Type())
	assert.Equal(t, []int64{9}, n.Messages())
}

func TestReadReturnsMessagesInFirstSeenOrder(t *testing.T) {
	n := NewNode("n1", []string{"n1"})
	for i, v := range []int64{3, 1, 3, 2} {
		handle(t, n, "c1", message.Broadcast{MsgID: uint64(i), Message: v})
	}
	out := handle(t, n, "c1", message.Read{MsgID: 10})
	require.Len(t, out, 1)
	rd := out[0].Body.(message.ReadOK)
	assert.Equal(t, []int64{3, 1, 2}, rd.Messages)
	assert.Zero(t, rd.Value)
	assert.Equal(t, uint64(10), rd.InReplyTo)
}

func TestTopologyReplaces(t *testing.T) {
	n := NewNode("n1", []string{"n1", "n2", "n3"})
	out := handle(t, n, "c1", message.Topology{MsgID: 1, Topology: map[string][]string{"n1": {"n2", "n3"}}})
	require.Len(t, out, 1)
	assert.Equal(t, message.TopologyOK{MsgID: 0, InReplyTo: 1}, out[0].Body)
	assert.Equal(t, []string{"n2", "n3"}, n.Neighbors())

	handle(t, n, "c1", message.Topology{MsgID: 2, Topology: map[string][]string{"n1": {"n3"}}})
	assert.Equal(t, []string{"n3"}, n.Neighbors())

	handle(t, n, "c1", message.Topology{MsgID: 3, Topology: map[string][]string{"n2": {"n3"}}})
	assert.Empty(t, n.Neighbors())
}

func TestAddThenRead(t *testing.T) {
	n := NewNode("n1", []string{"n1"})
	out := handle(t, n, "c1", message.Add{MsgID: 1, Delta: 5})
	assert.Equal(t, message.AddOK{MsgID: 0, InReplyTo: 1}, out[0].Body)
	handle(t, n, "c1", message.Add{MsgID: 2, Delta: 3})
	handle(t, n, "c1", message.Add{MsgID: 3, Delta: 0})

	out = handle(t, n, "c1", message.Read{MsgID: 4})
	rd := out[0].Body.(message.ReadOK)
	assert.Equal(t, uint64(8), rd.Value)
	assert.Empty(t, rd.Messages)
	assert.Equal(t, uint64(8), n.CounterValue())
}

func TestRepliesProduceNothing(t *testing.T) {
	n := NewNode("n1", []string{"n1"})
	replies := []message.Body{
		message.InitOK{InReplyTo: 1},
		message.EchoOK{InReplyTo: 1},
		message.GenerateOK{InReplyTo: 1, ID: big.NewInt(1)},
		message.BroadcastOK{InReplyTo: 1},
		message.ReadOK{InReplyTo: 1},
		message.TopologyOK{InReplyTo: 1},
		message.AddOK{InReplyTo: 1},
		message.Error{InReplyTo: 1, Code: 11},
	}
	for _, b := range replies {
		out := handle(t, n, "n2", b)
		assert.Empty(t, out, "%s", b.Type())
	}

	// acks must not consume message ids
	out := handle(t, n, "c1", message.Echo{MsgID: 9, Echo: "x"})
	assert.Equal(t, uint64(0), out[0].Body.(message.EchoOK).MsgID)
}

func TestHandleNilBody(t *testing.T) {
	n := NewNode("n1", nil)
	_, err := n.Handle(message.Envelope{Src: "c1", Dest: "n1"})
	assert.Error(t, err)
}

func TestCounter(t *testing.T) {
	var c Counter
	for _, d := range []uint64{1, 2, 3, 4} {
		before := c.Value()
		c.Add(d)
		assert.GreaterOrEqual(t, c.Value(), before)
	}
	assert.Equal(t, uint64(10), c.Value())
}

func TestUUIDGenerator(t *testing.T) {
	var g UUIDGenerator
	a, err := g.Next()
	require.NoError(t, err)
	b, err := g.Next()
	require.NoError(t, err)
	assert.NotZero(t, a.Cmp(b))
	assert.Equal(t, 1, a.Sign())
}
