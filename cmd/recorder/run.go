package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/domreplay/recorder/internal/config"
	"github.com/domreplay/recorder/internal/domfake"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/record"
)

func runCmd() *cobra.Command {
	var (
		out      string
		duration time.Duration
		frames   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record a synthetic document and print the event stream",
		Long: `run builds a small synthetic document with domfake, starts a
recording against it, simulates a handful of mutations and animation
frames, then prints one JSON line per emitted event to stdout (or
--out).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmoke(out, duration, frames)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "file to write the JSON event stream to (\"-\" for stdout)")
	cmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "simulated session duration")
	cmd.Flags().IntVar(&frames, "frames", 5, "number of simulated animation frames to drive")

	return cmd
}

func runSmoke(out string, duration time.Duration, frames int) error {
	w := os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	doc := domfake.NewDocument(1280, 800)
	doc.SetLocation("https://example.com/demo")
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)

	count := 0
	opts := config.RecordOptions{
		Emit: func(e event.Event, isCheckout bool) error {
			count++
			line, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = bw.Write(append(line, '\n'))
			return err
		},
		CheckoutEveryNth: 50,
		RecordCanvas:     true,
		CollectFonts:     true,
	}

	rec, err := record.Start(doc, opts)
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	defer rec.Stop()

	interval := duration
	if frames > 0 {
		interval = duration / time.Duration(frames)
	}
	for i := 0; i < frames; i++ {
		div := doc.NewElement("div")
		div.SetAttribute("class", fmt.Sprintf("demo-node-%d", i))
		body.AppendChild(div)
		doc.DriveFrame()
		time.Sleep(interval)
	}

	if err := rec.AddCustomEvent("smoke-test", map[string]any{"frames": frames}); err != nil {
		return fmt.Errorf("add custom event: %w", err)
	}

	success("recorded %d events over %d simulated frames", count, frames)
	return nil
}
