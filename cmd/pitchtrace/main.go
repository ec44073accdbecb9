// Command pitchtrace tracks the pitch and formants of voice recordings.
//
// Usage:
//
//	pitchtrace analyze [flags] file...
//	pitchtrace serve [flags]
//	pitchtrace synth [flags] out.wav
//
// analyze runs the offline tracker over WAV or MP3 files, prints a summary
// per file and optionally writes the contours as CSV. serve accepts live PCM
// over WebSocket. synth writes reproducible test tones.
//
// Examples:
//
//	pitchtrace synth -freq 220 -dur 2s -harmonics 0.5,0.25 tone.wav
//	pitchtrace analyze -out contours take1.wav take2.mp3
//	pitchtrace analyze -mode raw -algorithm amdf take1.wav
//	pitchtrace serve -config voice.yaml -addr :9000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "analyze":
		err = runAnalyze(ctx, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "synth":
		err = runSynth(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: pitchtrace <command> [flags] [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  analyze   track pitch and formants of WAV/MP3 files\n")
	fmt.Fprintf(w, "  serve     run the live WebSocket tracker\n")
	fmt.Fprintf(w, "  synth     write a test tone as WAV\n")
	fmt.Fprintf(w, "\nRun 'pitchtrace <command> -h' for the flags of a command.\n")
}
