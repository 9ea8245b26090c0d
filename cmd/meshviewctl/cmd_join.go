package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/meshview/meshview/internal/termcolor"
)

func runJoin(args []string) {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	apiAddr := fs.String("api-addr", defaultAPIAddr, "meshviewd API address")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fatal("usage: meshviewctl join <peer-id> [--api-addr host:port]")
	}
	peerID := rest[0]

	body, err := json.Marshal(map[string]string{"peer": peerID})
	if err != nil {
		fatal("failed to encode request: %v", err)
	}

	url := fmt.Sprintf("http://%s/join", *apiAddr)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		fatal("request to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(resp.Body)
		fatal("join rejected (%s): %s", resp.Status, msg)
	}
	termcolor.Green("join requested: %s", peerID)
}
