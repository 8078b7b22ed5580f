package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryandielhenn/glomers/pkg/message"
	"github.com/ryandielhenn/glomers/pkg/node"
	"github.com/ryandielhenn/glomers/pkg/server"
)

// bench drives an in-process cluster through the dispatch loop with a
// synthetic broadcast + counter workload and reports throughput.
func main() {
	var (
		nodes   int
		n       int
		payload int64
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure dispatch throughput on a synthetic workload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := workload(nodes, n, payload)
			if err != nil {
				return err
			}
			counter := &countingWriter{}
			start := time.Now()
			srv := server.New(node.NewRegistry())
			if err := srv.Serve(context.Background(), strings.NewReader(input), counter); err != nil {
				return err
			}
			dur := time.Since(start)
			fmt.Printf("Processed %d inbound, %d outbound in %s (%.2f msgs/s)\n",
				n+2*nodes, counter.lines, dur, float64(n+2*nodes)/dur.Seconds())
			return nil
		},
	}
	cmd.Flags().IntVarP(&nodes, "nodes", "k", 5, "cluster size")
	cmd.Flags().IntVarP(&n, "requests", "n", 5000, "requests")
	cmd.Flags().Int64Var(&payload, "values", 1000, "distinct broadcast values")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// workload builds init and a ring topology for every node, then n random
// broadcast, add and read requests.
func workload(nodes, n int, values int64) (string, error) {
	if nodes < 1 || values < 1 {
		return "", fmt.Errorf("need at least one node and one value")
	}
	ids := make([]string, nodes)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i+1)
	}
	topo := make(map[string][]string, nodes)
	for i, id := range ids {
		topo[id] = []string{ids[(i+1)%nodes]}
	}

	var b strings.Builder
	emit := func(dest string, body message.Body) error {
		line, err := message.Encode(message.Envelope{Src: "c1", Dest: dest, Body: body})
		if err != nil {
			return err
		}
		b.Write(line)
		b.WriteByte('\n')
		return nil
	}

	var msgID uint64
	for _, id := range ids {
		msgID++
		if err := emit(id, message.Init{MsgID: msgID, NodeID: id, NodeIDs: ids}); err != nil {
			return "", err
		}
	}
	for _, id := range ids {
		msgID++
		if err := emit(id, message.Topology{MsgID: msgID, Topology: topo}); err != nil {
			return "", err
		}
	}
	for i := 0; i < n; i++ {
		msgID++
		dest := ids[rand.Intn(nodes)]
		var body message.Body
		switch rand.Intn(3) {
		case 0:
			body = message.Broadcast{MsgID: msgID, Message: rand.Int63n(values)}
		case 1:
			body = message.Add{MsgID: msgID, Delta: uint64(rand.Intn(10))}
		default:
			body = message.Read{MsgID: msgID}
		}
		if err := emit(dest, body); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

type countingWriter struct {
	lines int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	for _, c := range p {
		if c == '\n' {
			w.lines++
		}
	}
	return io.Discard.Write(p)
}
