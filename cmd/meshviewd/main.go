// Command meshviewd runs a HyParView node: a libp2p host driven by
// pkg/hyparview, with periodic maintenance and a small local HTTP API for
// status and control.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/meshview/meshview/internal/meshconfig"
	"github.com/meshview/meshview/internal/meshnet"
	"github.com/meshview/meshview/internal/peerlog"
	"github.com/meshview/meshview/internal/watchdog"
	"github.com/meshview/meshview/pkg/hyparview/telemetry"
)

var (
	version = "dev"
	commit  = "unknown"
)

// osExit wraps os.Exit so tests can intercept process termination.
var osExit = os.Exit

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	osExit(1)
}

func main() {
	fs := flag.NewFlagSet("meshviewd", flag.ExitOnError)
	configPath := fs.String("config", "meshview.yaml", "path to config file")
	apiAddr := fs.String("api-addr", "127.0.0.1:9750", "address for the local status/control API")
	fs.Parse(os.Args[1:])

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	log := slog.Default()

	log.Info("starting meshviewd", "version", version, "commit", commit)

	cfg, err := meshconfig.Load(*configPath)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p2pHost, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
	if err != nil {
		fatal("failed to start libp2p host: %v", err)
	}
	defer p2pHost.Close()

	log.Info("libp2p host ready", "peer_id", p2pHost.ID().String(), "addrs", p2pHost.Addrs())

	history := peerlog.New(cfg.HistoryPath)
	metrics := telemetry.NewCollector()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	mh := meshnet.NewHost(ctx, p2pHost, rng, cfg.Options(), history, metrics, log)
	defer mh.Close()

	if cfg.ContactNode != "" {
		contact, err := peer.Decode(cfg.ContactNode)
		if err != nil {
			fatal("invalid contact_node %q: %v", cfg.ContactNode, err)
		}
		mh.Join(contact)
	}

	stopMaintenance := startMaintenance(ctx, mh, log)
	defer stopMaintenance()

	stopHistorySaver := startHistorySaver(ctx, history, log)
	defer stopHistorySaver()

	srv := newAPIServer(mh, metrics, version, p2pHost.ID().String(), time.Now())
	ln, err := net.Listen("tcp", *apiAddr)
	if err != nil {
		fatal("failed to bind API address %s: %v", *apiAddr, err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("API server stopped unexpectedly", "err", err)
		}
	}()
	log.Info("API listening", "addr", *apiAddr)

	if err := watchdog.Ready(); err != nil {
		log.Warn("sd_notify READY failed", "err", err)
	}
	go watchdog.Run(ctx, watchdog.Config{Interval: 15 * time.Second}, []watchdog.HealthCheck{
		{
			Name: "api-listener",
			Check: func() error {
				c, err := net.Dial("tcp", ln.Addr().String())
				if err != nil {
					return err
				}
				return c.Close()
			},
		},
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	watchdog.Stopping()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	if err := history.Save(); err != nil {
		log.Warn("failed to save peer history on shutdown", "err", err)
	}
}

// startMaintenance runs FillActiveView, SyncActiveView, and
// ShufflePassiveView on independent tickers, per spec.md §4's maintenance
// cadence. It returns a stop function.
func startMaintenance(ctx context.Context, mh *meshnet.Host, log *slog.Logger) func() {
	fillTicker := time.NewTicker(10 * time.Second)
	syncTicker := time.NewTicker(30 * time.Second)
	shuffleTicker := time.NewTicker(60 * time.Second)

	done := make(chan struct{})
	go func() {
		defer fillTicker.Stop()
		defer syncTicker.Stop()
		defer shuffleTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-fillTicker.C:
				mh.FillActiveView()
			case <-syncTicker.C:
				mh.SyncActiveView()
			case <-shuffleTicker.C:
				mh.ShufflePassiveView()
			}
		}
	}()
	return func() { close(done) }
}

func startHistorySaver(ctx context.Context, history *peerlog.Log, log *slog.Logger) func() {
	ticker := time.NewTicker(2 * time.Minute)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := history.Save(); err != nil {
					log.Warn("periodic peer history save failed", "err", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

type statusResponse struct {
	Version string   `json:"version"`
	PeerID  string   `json:"peer_id"`
	Uptime  string   `json:"uptime"`
	Active  []string `json:"active_view"`
	Passive []string `json:"passive_view"`
}

func newAPIServer(mh *meshnet.Host, metrics *telemetry.Collector, version, peerID string, startTime time.Time) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		active, passive := mh.Snapshot()
		resp := statusResponse{
			Version: version,
			PeerID:  peerID,
			Uptime:  time.Since(startTime).String(),
			Active:  peerIDsToStrings(active),
			Passive: peerIDsToStrings(passive),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/join", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Peer string `json:"peer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		contact, err := peer.Decode(req.Peer)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid peer id: %v", err), http.StatusBadRequest)
			return
		}
		mh.Join(contact)
		w.WriteHeader(http.StatusAccepted)
	})

	return &http.Server{Handler: mux}
}

func peerIDsToStrings(ids []peer.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
