package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/meshview/meshview/internal/meshconfig"
)

func runConfig(args []string) {
	if len(args) < 1 {
		printConfigUsage()
		osExit(1)
		return
	}

	switch args[0] {
	case "validate":
		runConfigValidate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n\n", args[0])
		printConfigUsage()
		osExit(1)
	}
}

func printConfigUsage() {
	fmt.Println("Usage: meshviewctl config <subcommand>")
	fmt.Println()
	fmt.Println("  validate [--config path]   Load and validate a meshview config file")
}

func runConfigValidate(args []string) {
	fs := flag.NewFlagSet("config validate", flag.ExitOnError)
	configFlag := fs.String("config", "meshview.yaml", "path to config file")
	fs.Parse(args)

	if _, err := meshconfig.Load(*configFlag); err != nil {
		fmt.Printf("FAIL: %s\n", err)
		osExit(1)
		return
	}
	fmt.Printf("OK: %s is valid\n", *configFlag)
}
