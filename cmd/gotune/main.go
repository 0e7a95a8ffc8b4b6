// Package main is the command-line entry point of the gotune playback core.
//
// Build:
//
//	go build -o build/gotune ./cmd/gotune
//
// Run:
//
//	./build/gotune scan ~/Music
//	./build/gotune play song.flac other.mp3
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
