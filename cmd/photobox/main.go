// Package main provides the entry point for the photobox CLI.
//
// photobox captures screenshots of web pages at several viewport widths,
// compares them with the previous run and writes an HTML report of the
// visual differences.
//
// Usage:
//
//	photobox init
//	photobox run --url http://localhost:8080/ --size 800,1000
//	photobox serve
//
// See --help for all available options.
package main

// main is the entry point for photobox.
func main() {
	Execute()
}
