package message

import "math/big"

// Type is the discriminator carried in the "type" field of every body.
type Type string

const (
	TypeInit        Type = "init"
	TypeInitOK      Type = "init_ok"
	TypeEcho        Type = "echo"
	TypeEchoOK      Type = "echo_ok"
	TypeGenerate    Type = "generate"
	TypeGenerateOK  Type = "generate_ok"
	TypeBroadcast   Type = "broadcast"
	TypeBroadcastOK Type = "broadcast_ok"
	TypeRead        Type = "read"
	TypeReadOK      Type = "read_ok"
	TypeTopology    Type = "topology"
	TypeTopologyOK  Type = "topology_ok"
	TypeAdd         Type = "add"
	TypeAddOK       Type = "add_ok"
	TypeError       Type = "error"
)

// Body is the closed set of message payloads. Only types in this package
// implement it.
type Body interface {
	Type() Type
	sealed()
}

type Init struct {
	MsgID   uint64   `json:"msg_id"`
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

type InitOK struct {
	InReplyTo uint64 `json:"in_reply_to"`
}

type Echo struct {
	MsgID uint64 `json:"msg_id"`
	Echo  string `json:"echo"`
}

type EchoOK struct {
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
	Echo      string `json:"echo"`
}

type Generate struct {
	MsgID uint64 `json:"msg_id"`
}

// GenerateOK carries a 128-bit id, written as a bare JSON number.
type GenerateOK struct {
	MsgID     uint64   `json:"msg_id"`
	InReplyTo uint64   `json:"in_reply_to"`
	ID        *big.Int `json:"id"`
}

type Broadcast struct {
	MsgID   uint64 `json:"msg_id"`
	Message int64  `json:"message"`
}

type BroadcastOK struct {
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
}

type Read struct {
	MsgID uint64 `json:"msg_id"`
}

// ReadOK serves both the broadcast and the counter workloads. Whichever
// field is unused stays at its zero value and is left off the wire.
type ReadOK struct {
	MsgID     uint64  `json:"msg_id"`
	InReplyTo uint64  `json:"in_reply_to"`
	Messages  []int64 `json:"messages,omitempty"`
	Value     uint64  `json:"value,omitempty"`
}

type Topology struct {
	MsgID    uint64              `json:"msg_id"`
	Topology map[string][]string `json:"topology"`
}

type TopologyOK struct {
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
}

type Add struct {
	MsgID uint64 `json:"msg_id"`
	Delta uint64 `json:"delta"`
}

type AddOK struct {
	MsgID     uint64 `json:"msg_id"`
	InReplyTo uint64 `json:"in_reply_to"`
}

// Error is what a peer sends back when it could not serve one of our
// requests.
type Error struct {
	InReplyTo uint64 `json:"in_reply_to"`
	Code      int    `json:"code"`
	Text      string `json:"text,omitempty"`
}

func (Init) Type() Type        { return TypeInit }
func (InitOK) Type() Type      { return TypeInitOK }
func (Echo) Type() Type        { return TypeEcho }
func (EchoOK) Type() Type      { return TypeEchoOK }
func (Generate) Type() Type    { return TypeGenerate }
func (GenerateOK) Type() Type  { return TypeGenerateOK }
func (Broadcast) Type() Type   { return TypeBroadcast }
func (BroadcastOK) Type() Type { return TypeBroadcastOK }
func (Read) Type() Type        { return TypeRead }
func (ReadOK) Type() Type      { return TypeReadOK }
func (Topology) Type() Type    { return TypeTopology }
func (TopologyOK) Type() Type  { return TypeTopologyOK }
func (Add) Type() Type         { return TypeAdd }
func (AddOK) Type() Type       { return TypeAddOK }
func (Error) Type() Type       { return TypeError }

func (Init) sealed()        {}
func (InitOK) sealed()      {}
func (Echo) sealed()        {}
func (EchoOK) sealed()      {}
func (Generate) sealed()    {}
func (GenerateOK) sealed()  {}
func (Broadcast) sealed()   {}
func (BroadcastOK) sealed() {}
func (Read) sealed()        {}
func (ReadOK) sealed()      {}
func (Topology) sealed()    {}
func (TopologyOK) sealed()  {}
func (Add) sealed()         {}
func (AddOK) sealed()       {}
func (Error) sealed()       {}

// IsReply reports whether b answers an earlier request. Replies never
// trigger further output.
func IsReply(b Body) bool {
	switch b.(type) {
	case InitOK, EchoOK, GenerateOK, BroadcastOK, ReadOK, TopologyOK, AddOK, Error:
		return true
	}
	return false
}
