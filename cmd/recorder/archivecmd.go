package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/domreplay/recorder/pkg/archive"
	"github.com/domreplay/recorder/pkg/event"
)

func archiveCmd() *cobra.Command {
	var (
		bucket    string
		prefix    string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "archive <events-file>",
		Short: "Upload a captured event stream to S3",
		Long: `archive reads a file of one JSON event per line (as produced by
"recorder run") and uploads it, packed as length-prefixed wire
frames, to the configured S3 bucket. This is an example host
integration, not part of the core recording engine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				return fmt.Errorf("--bucket is required")
			}
			if sessionID == "" {
				sessionID = fmt.Sprintf("session-%d", time.Now().UnixNano())
			}
			return runArchive(args[0], bucket, prefix, sessionID)
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket to upload to (required)")
	cmd.Flags().StringVar(&prefix, "prefix", "recordings/", "S3 key prefix")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id; defaults to a timestamp-derived id")

	return cmd
}

func runArchive(path, bucket, prefix, sessionID string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	store := archive.NewStore(client, bucket, prefix)
	rec := archive.NewRecording(sessionID)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	n := 0
	for scanner.Scan() {
		var raw struct {
			Type      event.Type      `json:"type"`
			Timestamp int64           `json:"timestamp"`
			Data      json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", n+1, err)
		}
		if err := rec.AddEvent(event.Event{Type: raw.Type, Timestamp: raw.Timestamp}); err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	url, err := store.Finish(ctx, rec)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	success("archived %d events (%d bytes) as %s%s", n, rec.Size(), prefix, sessionID)
	info("retrieval url: %s", url)
	return nil
}
