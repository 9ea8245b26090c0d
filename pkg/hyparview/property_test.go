package hyparview

import (
	"math/rand"
	"testing"

	"pgregory.net/rapid"
)

// universe is the fixed pool of peer ids property tests draw from; keeping
// it small makes collisions (evictions, duplicate admits) common, which is
// exactly the churn HyParView's invariants need to survive.
var universe = []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}

func peerGen() *rapid.Generator[string] {
	return rapid.SampledFrom(universe)
}

// TestProperty_InvariantsSurviveRandomOperations generates random sequences
// of protocol messages and maintenance calls against a single node and
// checks P1-P4 after every call, per spec.md's quantified invariants.
func TestProperty_InvariantsSurviveRandomOperations(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Int64().Draw(t, "seed")
		self := "self"
		n := NewNode[string](self, rand.New(rand.NewSource(seed)), DefaultOptions())

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 7).Draw(t, "op")
			switch op {
			case 0:
				n.HandleProtocolMessage(JoinMessage(peerGen().Draw(t, "sender")))
			case 1:
				ttl := NewTTL(uint8(rapid.IntRange(0, 6).Draw(t, "ttl")))
				n.HandleProtocolMessage(ForwardJoinMessage(peerGen().Draw(t, "sender"), peerGen().Draw(t, "newNode"), ttl))
			case 2:
				hp := rapid.Bool().Draw(t, "highPriority")
				n.HandleProtocolMessage(NeighborMessage(peerGen().Draw(t, "sender"), hp))
			case 3:
				ttl := NewTTL(uint8(rapid.IntRange(0, 6).Draw(t, "ttl")))
				nodes := rapid.SliceOfN(peerGen(), 0, 4).Draw(t, "nodes")
				n.HandleProtocolMessage(ShuffleMessage(peerGen().Draw(t, "sender"), peerGen().Draw(t, "origin"), nodes, ttl))
			case 4:
				nodes := rapid.SliceOfN(peerGen(), 0, 4).Draw(t, "nodes")
				n.HandleProtocolMessage(ShuffleReplyMessage(peerGen().Draw(t, "sender"), nodes))
			case 5:
				alive := rapid.Bool().Draw(t, "alive")
				n.HandleProtocolMessage(DisconnectMessage(peerGen().Draw(t, "sender"), alive))
			case 6:
				switch rapid.IntRange(0, 2).Draw(t, "maintenance") {
				case 0:
					n.FillActiveView()
				case 1:
					n.SyncActiveView()
				case 2:
					n.ShufflePassiveView()
				}
			case 7:
				n.Join(peerGen().Draw(t, "contact"))
			}
			// Drain actions so the next call sees the post-mutation state,
			// same as a real host would between entry points.
			for {
				if _, ok := n.PollAction(); !ok {
					break
				}
			}
			checkInvariantsRapid(t, n)
		}
	})
}

func checkInvariantsRapid(t *rapid.T, n *Node[string]) {
	active := n.ActiveView()
	passive := n.PassiveView()

	seen := make(map[string]bool)
	for _, p := range active {
		if p == n.ID() {
			t.Fatalf("P1 violated: self present in active view")
		}
		if seen[p] {
			t.Fatalf("P3 violated: duplicate %q in active view", p)
		}
		seen[p] = true
	}
	seenPassive := make(map[string]bool)
	for _, p := range passive {
		if p == n.ID() {
			t.Fatalf("P1 violated: self present in passive view")
		}
		if seenPassive[p] {
			t.Fatalf("P3 violated: duplicate %q in passive view", p)
		}
		seenPassive[p] = true
		if seen[p] {
			t.Fatalf("P2 violated: %q present in both views", p)
		}
	}
	if len(active) > n.Options().MaxActiveViewSize {
		t.Fatalf("P4 violated: active view size %d exceeds max %d", len(active), n.Options().MaxActiveViewSize)
	}
	if len(passive) > n.Options().MaxPassiveViewSize {
		t.Fatalf("P4 violated: passive view size %d exceeds max %d", len(passive), n.Options().MaxPassiveViewSize)
	}
}

// TestProperty_TTLNeverWraps checks P7 across arbitrary decrement counts.
func TestProperty_TTLNeverWraps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := uint8(rapid.IntRange(0, 255).Draw(t, "start"))
		decrements := rapid.IntRange(0, 600).Draw(t, "decrements")

		ttl := NewTTL(start)
		for i := 0; i < decrements; i++ {
			ttl = ttl.Decrement()
		}
		if decrements >= int(start) {
			if ttl.Value() != 0 {
				t.Fatalf("TTL = %d after %d decrements from %d, want 0", ttl.Value(), decrements, start)
			}
			if !ttl.IsExpired() {
				t.Fatalf("TTL(%d) not expired but should be", ttl.Value())
			}
		} else if ttl.Value() != start-uint8(decrements) {
			t.Fatalf("TTL = %d, want %d", ttl.Value(), start-uint8(decrements))
		}
	})
}
