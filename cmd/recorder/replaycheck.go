package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func replayCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay-check <file>",
		Short: "Validate a captured event stream's structural invariants",
		Long: `replay-check reads a file of one JSON event per line (as produced
by "recorder run") and checks the invariants a replayer depends on:
the stream starts with a Meta event followed by a FullSnapshot, every
IncrementalSnapshot follows some snapshot, and sequence numbers (when
present) are strictly increasing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkReplay(args[0])
		},
	}
	return cmd
}

type wireEvent struct {
	Type      int    `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ID        *int64 `json:"id"`
}

const (
	typeMeta = 4
	typeFull = 2
	typeIncr = 3
)

func checkReplay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)

	var (
		lineNo       int
		sawMeta      bool
		sawSnapshot  bool
		lastTS       int64
		lastSeq      *int64
		warnings     int
	)

	for scanner.Scan() {
		lineNo++
		var e wireEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", lineNo, err)
		}

		switch e.Type {
		case typeMeta:
			sawMeta = true
		case typeFull:
			if !sawMeta {
				warn("line %d: FullSnapshot before any Meta event", lineNo)
				warnings++
			}
			sawSnapshot = true
		case typeIncr:
			if !sawSnapshot {
				warn("line %d: IncrementalSnapshot before any FullSnapshot", lineNo)
				warnings++
			}
		}

		if e.Timestamp < lastTS {
			warn("line %d: timestamp %d precedes previous event's %d", lineNo, e.Timestamp, lastTS)
			warnings++
		}
		lastTS = e.Timestamp

		if e.ID != nil {
			if lastSeq != nil && *e.ID <= *lastSeq {
				warn("line %d: sequence id %d did not increase past %d", lineNo, *e.ID, *lastSeq)
				warnings++
			}
			lastSeq = e.ID
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if !sawMeta {
		warn("stream never emitted a Meta event")
		warnings++
	}
	if !sawSnapshot {
		warn("stream never emitted a FullSnapshot")
		warnings++
	}

	if warnings == 0 {
		success("%d events checked, no invariant violations", lineNo)
		return nil
	}
	return fmt.Errorf("%d invariant violation(s) found across %d events", warnings, lineNo)
}

func warn(format string, args ...any) {
	fmt.Printf("⚠ %s\n", fmt.Sprintf(format, args...))
}
