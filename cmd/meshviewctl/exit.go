package main

// exitSentinel is the panic value used by test overrides of osExit.
// The int value is the exit code.
type exitSentinel int
