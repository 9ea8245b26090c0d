// Package hyparview implements the HyParView membership protocol as a
// deterministic, transport-agnostic state machine.
//
// A Node maintains a small active view (direct overlay peers) and a larger
// passive view (backup peers used to heal the active view under churn). It
// consumes protocol messages and periodic-maintenance calls, and in
// response mutates its views and enqueues Action values for a host to
// execute — the engine itself never performs I/O. See Node.PollAction.
package hyparview

// Node is one participant's HyParView membership state machine. It is
// generic over N, an opaque, value-semantic node identifier supplied by the
// host; the engine never parses or serializes N.
//
// Node is not safe for concurrent use. All state is local to the instance;
// nothing escapes by reference across call boundaries other than the
// read-only snapshots returned by ActiveView/PassiveView.
type Node[N comparable] struct {
	id      N
	rng     Source
	options Options

	actions []Action[N]
	active  []N
	passive []N
}

// NewNode constructs a Node with the given id, random source, and tuning
// options. rng must not be nil.
func NewNode[N comparable](id N, rng Source, options Options) *Node[N] {
	return &Node[N]{
		id:      id,
		rng:     rng,
		options: options,
		active:  make([]N, 0, options.MaxActiveViewSize),
		passive: make([]N, 0, options.MaxPassiveViewSize),
	}
}

// ID returns the local node's identifier.
func (n *Node[N]) ID() N {
	return n.id
}

// ActiveView returns a snapshot of the active view. Order is incidental and
// not an observable protocol property.
func (n *Node[N]) ActiveView() []N {
	out := make([]N, len(n.active))
	copy(out, n.active)
	return out
}

// PassiveView returns a snapshot of the passive view. Order is incidental.
func (n *Node[N]) PassiveView() []N {
	out := make([]N, len(n.passive))
	copy(out, n.passive)
	return out
}

// Options returns a copy of the current tuning parameters.
func (n *Node[N]) Options() Options {
	return n.options
}

// SetOptions replaces the tuning parameters. Shrinking a view size takes
// effect gradually: fullness checks use >=, so the view converges to the
// new bound as peers are evicted or depart rather than being truncated
// immediately.
func (n *Node[N]) SetOptions(o Options) {
	n.options = o
}

// PollAction pops and returns the oldest pending action, or (zero, false)
// if the queue is empty. The host must drain this to empty between
// state-changing calls for the action-ordering invariants to hold.
func (n *Node[N]) PollAction() (Action[N], bool) {
	if len(n.actions) == 0 {
		var zero Action[N]
		return zero, false
	}
	a := n.actions[0]
	n.actions = n.actions[1:]
	return a, true
}

func (n *Node[N]) enqueue(a Action[N]) {
	n.actions = append(n.actions, a)
}

// ---------------------------------------------------------------------
// View mutation primitives (C5). All higher-level handlers route view
// changes through these so invariants and action ordering stay centralized.
// ---------------------------------------------------------------------

func indexOf[N comparable](s []N, target N) int {
	for i, v := range s {
		if v == target {
			return i
		}
	}
	return -1
}

func (n *Node[N]) isActiveFull() bool {
	return len(n.active) >= n.options.MaxActiveViewSize
}

func (n *Node[N]) isPassiveFull() bool {
	return len(n.passive) >= n.options.MaxPassiveViewSize
}

// addToActive admits p into the active view, evicting a random incumbent
// first if the view is full, and enqueues the NEIGHBOR send + NeighborUp
// notify required by invariant 5. No-op if p is self or already active.
func (n *Node[N]) addToActive(p N, highPriority bool) {
	if p == n.id || indexOf(n.active, p) >= 0 {
		return
	}
	if n.isActiveFull() {
		n.evictRandomActive()
	}
	n.removeFromPassive(p)
	n.active = append(n.active, p)
	n.enqueue(sendAction(p, NeighborMessage(n.id, highPriority)))
	n.enqueue(notifyUpAction[N](p))
}

// addToPassive admits p into the passive view, evicting a random incumbent
// first if the view is full. Emits no actions. No-op if p is self or
// already present in either view.
func (n *Node[N]) addToPassive(p N) {
	if p == n.id || indexOf(n.active, p) >= 0 || indexOf(n.passive, p) >= 0 {
		return
	}
	if n.isPassiveFull() {
		n.evictRandomPassive()
	}
	n.passive = append(n.passive, p)
}

// removeFromActive removes p from the active view if present, reporting
// whether it was found. See removeFromActiveByIndex for the side effects.
func (n *Node[N]) removeFromActive(p N) bool {
	i := indexOf(n.active, p)
	if i < 0 {
		return false
	}
	n.removeFromActiveByIndex(i)
	return true
}

// removeFromActiveByIndex swap-removes the active-view entry at i and
// enqueues, in order, the DISCONNECT send, the local Disconnect, and the
// NeighborDown notify required by invariant 6 — the peer must see the
// eviction message before the transport tears the connection down. The
// evicted peer is then offered to the passive view.
func (n *Node[N]) removeFromActiveByIndex(i int) {
	node := n.active[i]
	last := len(n.active) - 1
	n.active[i] = n.active[last]
	n.active = n.active[:last]

	n.enqueue(sendAction(node, DisconnectMessage(n.id, true)))
	n.enqueue(disconnectAction[N](node))
	n.enqueue(notifyDownAction[N](node))

	n.addToPassive(node)
}

// removeFromPassive swap-removes p from the passive view if present.
// Emits no actions.
func (n *Node[N]) removeFromPassive(p N) {
	i := indexOf(n.passive, p)
	if i < 0 {
		return
	}
	last := len(n.passive) - 1
	n.passive[i] = n.passive[last]
	n.passive = n.passive[:last]
}

func (n *Node[N]) evictRandomActive() {
	i := n.rng.Intn(len(n.active))
	n.removeFromActiveByIndex(i)
}

func (n *Node[N]) evictRandomPassive() {
	i := n.rng.Intn(len(n.passive))
	last := len(n.passive) - 1
	n.passive[i] = n.passive[last]
	n.passive = n.passive[:last]
}

// selectForwardingDestination uniformly picks an active-view member not in
// excludes, reporting false if every candidate is excluded.
func (n *Node[N]) selectForwardingDestination(excludes ...N) (N, bool) {
	candidates := make([]N, 0, len(n.active))
	for _, p := range n.active {
		if indexOf(excludes, p) < 0 {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		var zero N
		return zero, false
	}
	return candidates[n.rng.Intn(len(candidates))], true
}

// selectRandomFromActive uniformly picks an active-view member, reporting
// false if the view is empty.
func (n *Node[N]) selectRandomFromActive() (N, bool) {
	if len(n.active) == 0 {
		var zero N
		return zero, false
	}
	return n.active[n.rng.Intn(len(n.active))], true
}

// selectRandomFromPassive uniformly picks a passive-view member, reporting
// false if the view is empty.
func (n *Node[N]) selectRandomFromPassive() (N, bool) {
	if len(n.passive) == 0 {
		var zero N
		return zero, false
	}
	return n.passive[n.rng.Intn(len(n.passive))], true
}

// ---------------------------------------------------------------------
// Message handlers (C6)
// ---------------------------------------------------------------------

// HandleProtocolMessage submits a received protocol message for processing.
// After the corresponding handler runs, a housekeeping step enqueues an
// eviction DISCONNECT for the message's declared sender if that sender is
// not (or no longer) in the active view and is not self — except for
// DISCONNECT messages themselves, which manage connection state directly.
func (n *Node[N]) HandleProtocolMessage(m Message[N]) {
	switch m.Kind {
	case KindJoin:
		n.handleJoin(m.Sender)
	case KindForwardJoin:
		n.handleForwardJoin(m.Sender, m.NewNode, m.TTL)
	case KindNeighbor:
		n.handleNeighbor(m.Sender, m.HighPriority)
	case KindShuffle:
		n.handleShuffle(m.Sender, m.Origin, m.Nodes, m.TTL)
	case KindShuffleReply:
		n.handleShuffleReply(m.Nodes)
	case KindDisconnect:
		n.handleDisconnect(m.Sender, m.Alive)
		return
	default:
		return
	}
	n.housekeeping(m.Sender)
}

func (n *Node[N]) housekeeping(sender N) {
	if sender == n.id || indexOf(n.active, sender) >= 0 {
		return
	}
	n.enqueue(sendAction(sender, DisconnectMessage(n.id, true)))
	n.enqueue(disconnectAction[N](sender))
}

func (n *Node[N]) handleJoin(joiner N) {
	n.addToActive(joiner, true)
	for _, peer := range n.active {
		if peer == joiner {
			continue
		}
		n.enqueue(sendAction(peer, ForwardJoinMessage(n.id, joiner, NewTTL(n.options.ActiveRandomWalkLen))))
	}
}

func (n *Node[N]) handleForwardJoin(sender, newNode N, ttl TTL) {
	if ttl.IsExpired() || len(n.active) == 0 {
		n.addToActive(newNode, true)
		return
	}
	if ttl.Value() == n.options.PassiveRandomWalkLen {
		n.addToPassive(newNode)
	}
	if dest, ok := n.selectForwardingDestination(sender); ok {
		n.enqueue(sendAction(dest, ForwardJoinMessage(n.id, newNode, ttl.Decrement())))
		return
	}
	// No other peer available to continue the walk: admit directly
	// rather than orphaning the joiner.
	n.addToActive(newNode, true)
}

func (n *Node[N]) handleNeighbor(sender N, highPriority bool) {
	if highPriority || !n.isActiveFull() {
		n.addToActive(sender, false)
	}
	// Else: no state change. Housekeeping will evict sender, who is not
	// (and remains not) in the active view.
}

func (n *Node[N]) handleShuffle(sender, origin N, nodes []N, ttl TTL) {
	if ttl.IsExpired() {
		shuffleInPlace(n.rng, n.passive)
		replyCount := len(nodes)
		if replyCount > len(n.passive) {
			replyCount = len(n.passive)
		}
		reply := make([]N, replyCount)
		copy(reply, n.passive[:replyCount])
		n.enqueue(sendAction(origin, ShuffleReplyMessage(n.id, reply)))

		for _, p := range nodes {
			n.addToPassive(p)
		}
		return
	}
	if dest, ok := n.selectForwardingDestination(origin, sender); ok {
		n.enqueue(sendAction(dest, ShuffleMessage(n.id, origin, nodes, ttl.Decrement())))
	}
	// Else the walk silently terminates.
}

func (n *Node[N]) handleShuffleReply(nodes []N) {
	for _, p := range nodes {
		n.addToPassive(p)
	}
}

func (n *Node[N]) handleDisconnect(sender N, alive bool) {
	if sender == n.id {
		return
	}
	wasActive := n.removeFromActive(sender)
	if alive {
		n.addToPassive(sender)
	} else {
		n.removeFromPassive(sender)
	}
	if wasActive {
		n.FillActiveView()
	}
}

// ---------------------------------------------------------------------
// Periodic maintenance (C7)
// ---------------------------------------------------------------------

// Join enqueues a JOIN request to contact, beginning (or re-attempting)
// membership. Safe to call more than once to heal partitions.
func (n *Node[N]) Join(contact N) {
	n.enqueue(sendAction(contact, JoinMessage(n.id)))
}

// Disconnect is the host-initiated eviction entry point: equivalent to
// receiving a DISCONNECT message from p.
func (n *Node[N]) Disconnect(p N, alive bool) {
	n.handleDisconnect(p, alive)
}

// FillActiveView requests a passive peer be promoted if the active view
// has room. The candidate is NOT moved between views here; promotion only
// happens once it replies, or once its NEIGHBOR lands at a receiver that
// admits it.
func (n *Node[N]) FillActiveView() {
	if n.isActiveFull() || len(n.passive) == 0 {
		return
	}
	p, ok := n.selectRandomFromPassive()
	if !ok {
		return
	}
	highPriority := len(n.active) == 0
	n.enqueue(sendAction(p, NeighborMessage(n.id, highPriority)))
}

// SyncActiveView reinforces symmetry by re-sending NEIGHBOR to every
// current active-view member.
func (n *Node[N]) SyncActiveView() {
	for _, p := range n.active {
		n.enqueue(sendAction(p, NeighborMessage(n.id, false)))
	}
}

// ShufflePassiveView initiates a passive-view exchange with a random
// active-view peer, carrying self plus up to ka active and kp passive
// members (concatenation order is incidental, not protocol-visible).
func (n *Node[N]) ShufflePassiveView() {
	if len(n.active) == 0 {
		return
	}
	target, ok := n.selectRandomFromActive()
	if !ok {
		return
	}
	shuffleInPlace(n.rng, n.active)
	shuffleInPlace(n.rng, n.passive)

	ka := n.options.ShuffleActiveViewSize
	if ka > len(n.active) {
		ka = len(n.active)
	}
	kp := n.options.ShufflePassiveViewSize
	if kp > len(n.passive) {
		kp = len(n.passive)
	}
	payload := make([]N, 0, 1+ka+kp)
	payload = append(payload, n.id)
	payload = append(payload, n.active[:ka]...)
	payload = append(payload, n.passive[:kp]...)

	n.enqueue(sendAction(target, ShuffleMessage(n.id, n.id, payload, NewTTL(n.options.ActiveRandomWalkLen))))
}
