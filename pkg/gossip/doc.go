// Package gossip implements broadcast dissemination for a cluster node: the
// member list and neighbor topology, the log of broadcast values a node has
// accepted, and the flooder that decides who hears about a new value.
//
// Dissemination is a one-shot flood. A value is forwarded to every
// neighbor the first time it is seen and never again; there is no
// acknowledgement tracking and no retransmission.
//
// Typical usage:
//
//	ml := gossip.NewMemberList("n1", []string{"n1", "n2", "n3"})
//	ml.ApplyTopology(map[string][]string{"n1": {"n2", "n3"}})
//	f := gossip.NewFlooder(ml)
//	if targets, ok := f.Accept(42); ok {
//		// send broadcast(42) to each target
//	}
//
// None of the types here are safe for concurrent use; the owning node
// serializes access.
package gossip
