// Package message defines the envelope and body types exchanged with the
// test harness, and their line-oriented JSON encoding.
package message

import (
	"encoding/json"
	"fmt"

	maelstrom "github.com/jepsen-io/maelstrom/demo/go"
)

// Envelope routes a body from Src to Dest.
type Envelope struct {
	Src  string
	Dest string
	Body Body
}

// Reply addresses body back to the sender of req.
func Reply(req Envelope, body Body) Envelope {
	return Envelope{Src: req.Dest, Dest: req.Src, Body: body}
}

// DecodeError reports an input line that is not a valid message.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type decodeFunc func(json.RawMessage) (Body, error)

func decodeAs[T Body](raw json.RawMessage) (Body, error) {
	var b T
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return b, nil
}

var decoders = map[Type]decodeFunc{
	TypeInit:        decodeAs[Init],
	TypeInitOK:      decodeAs[InitOK],
	TypeEcho:        decodeAs[Echo],
	TypeEchoOK:      decodeAs[EchoOK],
	TypeGenerate:    decodeAs[Generate],
	TypeGenerateOK:  decodeAs[GenerateOK],
	TypeBroadcast:   decodeAs[Broadcast],
	TypeBroadcastOK: decodeAs[BroadcastOK],
	TypeRead:        decodeAs[Read],
	TypeReadOK:      decodeAs[ReadOK],
	TypeTopology:    decodeAs[Topology],
	TypeTopologyOK:  decodeAs[TopologyOK],
	TypeAdd:         decodeAs[Add],
	TypeAddOK:       decodeAs[AddOK],
	TypeError:       decodeAs[Error],
}

// Decode parses one line into an Envelope. Every failure, including an
// unknown body type, is a *DecodeError.
func Decode(line []byte) (Envelope, error) {
	var raw maelstrom.Message
	if err := json.Unmarshal(line, &raw); err != nil {
		return Envelope{}, &DecodeError{Line: string(line), Err: err}
	}
	if len(raw.Body) == 0 {
		return Envelope{}, &DecodeError{Line: string(line), Err: fmt.Errorf("missing body")}
	}

	var head maelstrom.MessageBody
	if err := json.Unmarshal(raw.Body, &head); err != nil {
		return Envelope{}, &DecodeError{Line: string(line), Err: err}
	}
	decode, ok := decoders[Type(head.Type)]
	if !ok {
		return Envelope{}, &DecodeError{Line: string(line), Err: fmt.Errorf("unknown body type %q", head.Type)}
	}
	body, err := decode(raw.Body)
	if err != nil {
		return Envelope{}, &DecodeError{Line: string(line), Err: err}
	}
	return Envelope{Src: raw.Src, Dest: raw.Dest, Body: body}, nil
}

// Encode renders env as a single line of JSON without the trailing newline.
func Encode(env Envelope) ([]byte, error) {
	if env.Body == nil {
		return nil, fmt.Errorf("encode message to %q: nil body", env.Dest)
	}
	body, err := encodeBody(env.Body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", env.Body.Type(), err)
	}
	return json.Marshal(maelstrom.Message{Src: env.Src, Dest: env.Dest, Body: body})
}

// encodeBody splices the type tag in front of the body's own fields.
func encodeBody(b Body) (json.RawMessage, error) {
	fields, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(string(b.Type()))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(fields)+len(tag)+9)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(fields) > 2 {
		out = append(out, ',')
		out = append(out, fields[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}
