package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/meshview/meshview/internal/termcolor"
)

const defaultAPIAddr = "127.0.0.1:9750"

type statusResponse struct {
	Version string   `json:"version"`
	PeerID  string   `json:"peer_id"`
	Uptime  string   `json:"uptime"`
	Active  []string `json:"active_view"`
	Passive []string `json:"passive_view"`
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	apiAddr := fs.String("api-addr", defaultAPIAddr, "meshviewd API address")
	jsonOut := fs.Bool("json", false, "output as JSON")
	fs.Parse(args)

	url := fmt.Sprintf("http://%s/status", *apiAddr)
	resp, err := http.Get(url)
	if err != nil {
		fatal("request to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		fatal("status request failed (%s): %s", resp.Status, msg)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fatal("failed to decode response: %v", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(status)
		return
	}

	termcolor.Faint("version: %s\n", status.Version)
	termcolor.Faint("peer id: %s\n", status.PeerID)
	termcolor.Faint("uptime:  %s\n", status.Uptime)
	termcolor.Green("active view (%d): %v", len(status.Active), status.Active)
	termcolor.Yellow("passive view (%d): %v", len(status.Passive), status.Passive)
}
