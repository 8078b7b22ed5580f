package node

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/telemetry"
	"github.com/ryandielhenn/glomers/pkg/message"
)

// Handle applies env to the node and returns the messages it produces, in
// the order they must be written. Replies from peers produce nothing.
func (n *Node) Handle(env message.Envelope) ([]message.Envelope, error) {
	switch b := env.Body.(type) {
	case message.Init:
		return n.init(env, b), nil
	case message.Echo:
		return n.echo(env, b), nil
	case message.Generate:
		return n.generate(env, b)
	case message.Broadcast:
		return n.broadcast(env, b), nil
	case message.Read:
		return n.read(env, b), nil
	case message.Topology:
		return n.topology(env, b), nil
	case message.Add:
		return n.add(env, b), nil
	case message.Error:
		n.log.Warn("peer returned error",
			zap.String("src", env.Src),
			zap.Uint64("in_reply_to", b.InReplyTo),
			zap.Int("code", b.Code),
			zap.String("text", b.Text))
		return nil, nil
	case nil:
		return nil, fmt.Errorf("node %s: message from %s has no body", n.ID(), env.Src)
	default:
		if message.IsReply(b) {
			n.log.Debug("ignoring reply", zap.String("src", env.Src), zap.String("type", string(b.Type())))
			return nil, nil
		}
		return nil, fmt.Errorf("node %s: no handler for %s", n.ID(), b.Type())
	}
}

// init acknowledges initialization. The reply carries no msg_id of its own.
func (n *Node) init(env message.Envelope, b message.Init) []message.Envelope {
	return []message.Envelope{message.Reply(env, message.InitOK{InReplyTo: b.MsgID})}
}

func (n *Node) echo(env message.Envelope, b message.Echo) []message.Envelope {
	return []message.Envelope{message.Reply(env, message.EchoOK{
		MsgID:     n.msgID(),
		InReplyTo: b.MsgID,
		Echo:      b.Echo,
	})}
}

func (n *Node) generate(env message.Envelope, b message.Generate) ([]message.Envelope, error) {
	id, err := n.ids.Next()
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.ID(), err)
	}
	return []message.Envelope{message.Reply(env, message.GenerateOK{
		MsgID:     n.msgID(),
		InReplyTo: b.MsgID,
		ID:        id,
	})}, nil
}

// broadcast floods a first-seen value to every neighbor, then acknowledges
// the sender. Duplicates are only acknowledged.
func (n *Node) broadcast(env message.Envelope, b message.Broadcast) []message.Envelope {
	targets, fresh := n.flood.Accept(b.Message)
	out := make([]message.Envelope, 0, len(targets)+1)
	if fresh {
		telemetry.BroadcastsTotal.WithLabelValues(n.ID(), telemetry.OutcomeNew).Inc()
		for _, dest := range targets {
			out = append(out, message.Envelope{
				Src:  n.ID(),
				Dest: dest,
				Body: message.Broadcast{MsgID: n.msgID(), Message: b.Message},
			})
		}
		telemetry.FloodsTotal.WithLabelValues(n.ID()).Add(float64(len(targets)))
		n.log.Debug("flooding broadcast",
			zap.Int64("message", b.Message),
			zap.String("src", env.Src),
			zap.Strings("neighbors", targets))
	} else {
		telemetry.BroadcastsTotal.WithLabelValues(n.ID(), telemetry.OutcomeDuplicate).Inc()
	}

	return append(out, message.Reply(env, message.BroadcastOK{
		MsgID:     n.msgID(),
		InReplyTo: b.MsgID,
	}))
}

// read reports both the broadcast log and the counter; whichever workload
// is not running leaves its field empty and off the wire.
func (n *Node) read(env message.Envelope, b message.Read) []message.Envelope {
	return []message.Envelope{message.Reply(env, message.ReadOK{
		MsgID:     n.msgID(),
		InReplyTo: b.MsgID,
		Messages:  n.flood.Seen(),
		Value:     n.counter.Value(),
	})}
}

func (n *Node) topology(env message.Envelope, b message.Topology) []message.Envelope {
	n.members.ApplyTopology(b.Topology)
	n.log.Debug("topology applied", zap.Strings("neighbors", n.members.Neighbors()))
	return []message.Envelope{message.Reply(env, message.TopologyOK{
		MsgID:     n.msgID(),
		InReplyTo: b.MsgID,
	})}
}

func (n *Node) add(env message.Envelope, b message.Add) []message.Envelope {
	n.counter.Add(b.Delta)
	telemetry.CounterValue.WithLabelValues(n.ID()).Set(float64(n.counter.Value()))
	return []message.Envelope{message.Reply(env, message.AddOK{
		MsgID:     n.msgID(),
		InReplyTo: b.MsgID,
	})}
}
