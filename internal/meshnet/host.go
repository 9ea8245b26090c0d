// Package meshnet adapts a pkg/hyparview.Node to a real transport: it
// drives the engine over libp2p streams, executing the engine's action
// stream (Send, Disconnect, Notify) against live connections. The engine
// itself stays transport-agnostic; this package is the concrete "host"
// role spec.md describes only in the abstract.
package meshnet

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"golang.org/x/sync/errgroup"

	"github.com/meshview/meshview/internal/peerlog"
	"github.com/meshview/meshview/pkg/hyparview"
	"github.com/meshview/meshview/pkg/hyparview/telemetry"
)

// ProtocolID is the libp2p stream protocol this adapter speaks.
const ProtocolID = protocol.ID("/meshview/hyparview/1.0.0")

const streamDialTimeout = 10 * time.Second

// wireMessage is the gob-serializable form of hyparview.Message[peer.ID].
// peer.ID is a string type holding raw multihash bytes; each one
// round-trips as its base58 text form (String on the way out, peer.Decode
// on the way in), not as those raw bytes.
type wireMessage struct {
	Kind         hyparview.MessageKind
	Sender       string
	NewNode      string
	HighPriority bool
	Origin       string
	Nodes        []string
	TTL          uint8
	Alive        bool
}

func toWire(m hyparview.Message[peer.ID]) wireMessage {
	nodes := make([]string, len(m.Nodes))
	for i, n := range m.Nodes {
		nodes[i] = n.String()
	}
	return wireMessage{
		Kind:         m.Kind,
		Sender:       m.Sender.String(),
		NewNode:      m.NewNode.String(),
		HighPriority: m.HighPriority,
		Origin:       m.Origin.String(),
		Nodes:        nodes,
		TTL:          m.TTL.Value(),
		Alive:        m.Alive,
	}
}

func fromWire(w wireMessage) (hyparview.Message[peer.ID], error) {
	var zero hyparview.Message[peer.ID]
	sender, err := peer.Decode(w.Sender)
	if err != nil {
		return zero, fmt.Errorf("decode sender: %w", err)
	}
	newNode, err := decodeOrZero(w.NewNode)
	if err != nil {
		return zero, fmt.Errorf("decode new_node: %w", err)
	}
	origin, err := decodeOrZero(w.Origin)
	if err != nil {
		return zero, fmt.Errorf("decode origin: %w", err)
	}
	nodes := make([]peer.ID, len(w.Nodes))
	for i, s := range w.Nodes {
		id, err := peer.Decode(s)
		if err != nil {
			return zero, fmt.Errorf("decode nodes[%d]: %w", i, err)
		}
		nodes[i] = id
	}
	return hyparview.Message[peer.ID]{
		Kind:         w.Kind,
		Sender:       sender,
		NewNode:      newNode,
		HighPriority: w.HighPriority,
		Origin:       origin,
		Nodes:        nodes,
		TTL:          hyparview.NewTTL(w.TTL),
		Alive:        w.Alive,
	}, nil
}

func decodeOrZero(s string) (peer.ID, error) {
	if s == "" {
		return "", nil
	}
	return peer.Decode(s)
}

// Host drives a single hyparview.Node[peer.ID] over a libp2p host.Host. It
// is the sole owner of that Node and serializes every entry-point call and
// action drain onto one internal worker goroutine, per spec.md §5's
// requirement for hosts that multiplex a Node across concurrent callers.
type Host struct {
	h       host.Host
	node    *hyparview.Node[peer.ID]
	log     *slog.Logger
	history *peerlog.Log
	metrics *telemetry.Collector

	cmds   chan func()
	cancel context.CancelFunc
	eg     *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewHost constructs a Host, registers the HyParView stream handler on h,
// and starts the serialized command loop. rng must not be nil; it becomes
// the engine's injected randomness (never math/rand's global source).
func NewHost(ctx context.Context, h host.Host, rng hyparview.Source, opts hyparview.Options, history *peerlog.Log, metrics *telemetry.Collector, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	runCtx, cancel := context.WithCancel(ctx)
	mh := &Host{
		h:       h,
		node:    hyparview.NewNode[peer.ID](h.ID(), rng, opts),
		log:     log.With("node", h.ID().String()),
		history: history,
		metrics: metrics,
		cmds:    make(chan func(), 64),
		cancel:  cancel,
	}
	h.SetStreamHandler(ProtocolID, mh.handleStream)

	eg, egCtx := errgroup.WithContext(runCtx)
	mh.eg = eg
	eg.Go(func() error { return mh.run(egCtx) })
	return mh
}

func (mh *Host) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-mh.cmds:
			cmd()
		}
	}
}

// do submits f to the serialized worker and blocks until it completes.
func (mh *Host) do(f func()) {
	done := make(chan struct{})
	mh.cmds <- func() {
		f()
		close(done)
	}
	<-done
}

// Join enqueues a JOIN to contact and drains the resulting actions.
func (mh *Host) Join(contact peer.ID) {
	mh.do(func() {
		mh.node.Join(contact)
		mh.drainActions()
	})
}

// Disconnect is the host-initiated eviction entry point.
func (mh *Host) Disconnect(p peer.ID, alive bool) {
	mh.do(func() {
		mh.node.Disconnect(p, alive)
		mh.drainActions()
	})
}

// FillActiveView, SyncActiveView, and ShufflePassiveView run one round of
// the corresponding periodic maintenance call.
func (mh *Host) FillActiveView() {
	mh.do(func() {
		mh.node.FillActiveView()
		mh.drainActions()
	})
}

func (mh *Host) SyncActiveView() {
	mh.do(func() {
		mh.node.SyncActiveView()
		mh.drainActions()
	})
}

func (mh *Host) ShufflePassiveView() {
	mh.do(func() {
		mh.node.ShufflePassiveView()
		mh.drainActions()
	})
}

// Snapshot returns the current active and passive view contents.
func (mh *Host) Snapshot() (active, passive []peer.ID) {
	mh.do(func() {
		active = mh.node.ActiveView()
		passive = mh.node.PassiveView()
	})
	return active, passive
}

// Close stops the worker goroutine and waits for it to exit.
func (mh *Host) Close() error {
	mh.mu.Lock()
	if mh.closed {
		mh.mu.Unlock()
		return nil
	}
	mh.closed = true
	mh.mu.Unlock()

	mh.cancel()
	return mh.eg.Wait()
}

func (mh *Host) handleStream(s network.Stream) {
	defer s.Close()

	var w wireMessage
	if err := gob.NewDecoder(bufio.NewReader(s)).Decode(&w); err != nil {
		mh.log.Warn("failed to decode incoming hyparview message", "err", err)
		return
	}
	msg, err := fromWire(w)
	if err != nil {
		mh.log.Warn("failed to decode incoming hyparview message", "err", err)
		return
	}
	if mh.metrics != nil {
		mh.metrics.ObserveHandler(msg.Kind.String())
	}
	mh.do(func() {
		mh.node.HandleProtocolMessage(msg)
		mh.drainActions()
	})
}

// drainActions executes every pending action. Called from inside the
// worker goroutine only, immediately after a call that mutates the Node.
func (mh *Host) drainActions() {
	for {
		a, ok := mh.node.PollAction()
		if !ok {
			break
		}
		if mh.metrics != nil {
			mh.metrics.ObserveAction(a.Kind.String())
		}
		switch a.Kind {
		case hyparview.ActionSend:
			mh.send(a.Destination, a.Message)
		case hyparview.ActionDisconnect:
			if err := mh.h.Network().ClosePeer(a.Node); err != nil {
				mh.log.Warn("failed to close connection", "peer", a.Node, "err", err)
			}
		case hyparview.ActionNotify:
			mh.notify(a.Event)
		}
	}
	if mh.metrics != nil {
		active, passive := mh.node.ActiveView(), mh.node.PassiveView()
		mh.metrics.ObserveViewSizes(mh.node.ID().String(), len(active), len(passive))
	}
}

func (mh *Host) send(dest peer.ID, msg hyparview.Message[peer.ID]) {
	ctx, cancel := context.WithTimeout(context.Background(), streamDialTimeout)
	defer cancel()

	s, err := mh.h.NewStream(ctx, dest, ProtocolID)
	if err != nil {
		// Per spec.md §4.3: the host MAY drop an undeliverable Send. The
		// engine's own periodic maintenance is the recovery path.
		mh.log.Warn("failed to open stream", "dest", dest, "kind", msg.Kind, "err", err)
		return
	}
	defer s.Close()

	if err := gob.NewEncoder(s).Encode(toWire(msg)); err != nil {
		mh.log.Warn("failed to send message", "dest", dest, "kind", msg.Kind, "err", err)
	}
}

func (mh *Host) notify(ev hyparview.Event[peer.ID]) {
	mh.log.Info("neighbor transition", "event", ev.Kind, "peer", ev.Node)
	if mh.metrics != nil {
		if ev.Kind == hyparview.EventNeighborUp {
			mh.metrics.ObserveTransition("up")
		} else {
			mh.metrics.ObserveTransition("down")
		}
	}
	if mh.history == nil {
		return
	}
	if ev.Kind == hyparview.EventNeighborUp {
		mh.history.RecordUp(ev.Node.String())
	} else {
		mh.history.RecordDown(ev.Node.String())
	}
}
