package hyparview

import (
	"math/rand"
	"testing"
)

// network is a tiny in-memory host simulator used by tests: it round-robin
// delivers the Send actions emitted by a set of nodes until every node's
// action queue is empty (quiescence), recording Notify events along the way.
type network struct {
	nodes  map[string]*Node[string]
	events map[string][]Event[string]
}

func newNetwork(ids []string, seed int64, opts Options) *network {
	net := &network{
		nodes:  make(map[string]*Node[string], len(ids)),
		events: make(map[string][]Event[string]),
	}
	for i, id := range ids {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		net.nodes[id] = NewNode[string](id, rng, opts)
	}
	return net
}

// drain delivers every pending action across all nodes in round-robin order
// until none remain.
func (net *network) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 100000; i++ {
		progressed := false
		for id, node := range net.nodes {
			a, ok := node.PollAction()
			if !ok {
				continue
			}
			progressed = true
			switch a.Kind {
			case ActionSend:
				if dest, ok := net.nodes[a.Destination]; ok {
					dest.HandleProtocolMessage(a.Message)
				}
			case ActionNotify:
				net.events[id] = append(net.events[id], a.Event)
			case ActionDisconnect:
				// no transport-level state to tear down in this harness
			}
		}
		if !progressed {
			return
		}
	}
	t.Fatal("network did not reach quiescence")
}

func assertViewEqualsSet(t *testing.T, label string, got []string, want map[string]bool) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want set %v", label, got, want)
	}
	for _, g := range got {
		if !want[g] {
			t.Fatalf("%s = %v, want set %v", label, got, want)
		}
	}
}

func toSet(xs ...string) map[string]bool {
	s := make(map[string]bool, len(xs))
	for _, x := range xs {
		s[x] = true
	}
	return s
}
