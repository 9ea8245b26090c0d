// Command meshviewctl is a thin HTTP client for meshviewd's local API.
package main

import (
	"fmt"
	"os"
)

var osExit = os.Exit

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	osExit(1)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		osExit(1)
	}

	switch os.Args[1] {
	case "join":
		runJoin(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	case "version", "--version":
		fmt.Println("meshviewctl dev")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		osExit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: meshviewctl <command> [options]")
	fmt.Println()
	fmt.Println("  join <peer-id> [--api-addr host:port]   Join the mesh via a contact peer")
	fmt.Println("  status [--api-addr host:port] [--json]  Show active/passive view")
	fmt.Println("  config validate [--config path]         Validate a meshview config file")
	fmt.Println("  version                                 Show version information")
	fmt.Println()
	fmt.Println("Without --api-addr, meshviewctl talks to 127.0.0.1:9750.")
}
