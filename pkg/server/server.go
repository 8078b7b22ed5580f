// Package server runs the dispatch loop: it reads one message per line,
// routes it to the addressed node and writes every resulting message
// before reading the next line.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ryandielhenn/glomers/internal/telemetry"
	"github.com/ryandielhenn/glomers/pkg/message"
	"github.com/ryandielhenn/glomers/pkg/node"
)

// maxLineSize bounds a single input line. Topology messages for large
// clusters run well past bufio's 64KiB default.
const maxLineSize = 16 << 20

// Announcer is told about every node as it is initialized.
type Announcer interface {
	Announce(ctx context.Context, id string, members []string) error
}

type Server struct {
	registry  *node.Registry
	log       *zap.Logger
	announcer Announcer
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAnnouncer publishes node initialization. Announce failures are
// logged and otherwise ignored.
func WithAnnouncer(a Announcer) Option {
	return func(s *Server) { s.announcer = a }
}

func New(registry *node.Registry, opts ...Option) *Server {
	s := &Server{registry: registry, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("server")
	return s
}

// Serve processes r until it is exhausted, writing output to w. It returns
// nil at end of input and the first fatal error otherwise: an undecodable
// line, a message for an unknown node, or a failed write. ctx is checked
// between lines only.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	bw := bufio.NewWriter(w)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		env, err := message.Decode(sc.Bytes())
		if err != nil {
			return err
		}
		out, err := s.Dispatch(ctx, env)
		if err != nil {
			return err
		}
		if err := s.write(bw, out); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// Dispatch routes env to its node, creating the node first when env is an
// init message. It returns the node's output unchanged.
func (s *Server) Dispatch(ctx context.Context, env message.Envelope) ([]message.Envelope, error) {
	if env.Body == nil {
		return nil, fmt.Errorf("dispatch message from %s to %s: nil body", env.Src, env.Dest)
	}
	telemetry.ObserveMessage(telemetry.DirectionIn, string(env.Body.Type()))

	if ib, ok := env.Body.(message.Init); ok {
		s.registry.Register(ib.NodeID, ib.NodeIDs)
		s.log.Info("node initialized",
			zap.String("node_id", ib.NodeID),
			zap.Strings("node_ids", ib.NodeIDs))
		if s.announcer != nil {
			if err := s.announcer.Announce(ctx, ib.NodeID, ib.NodeIDs); err != nil {
				s.log.Warn("announce failed", zap.String("node_id", ib.NodeID), zap.Error(err))
			}
		}
	}

	n, err := s.registry.Get(env.Dest)
	if err != nil {
		return nil, fmt.Errorf("route %s from %s: %w", env.Body.Type(), env.Src, err)
	}
	return n.Handle(env)
}

func (s *Server) write(bw *bufio.Writer, out []message.Envelope) error {
	for _, env := range out {
		line, err := message.Encode(env)
		if err != nil {
			return err
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		telemetry.ObserveMessage(telemetry.DirectionOut, string(env.Body.Type()))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// IsFatalInput reports whether err came from bad input rather than from
// the environment.
func IsFatalInput(err error) bool {
	var decErr *message.DecodeError
	var lookupErr *node.LookupError
	return errors.As(err, &decErr) || errors.As(err, &lookupErr)
}
