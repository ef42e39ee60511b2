package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/wire"
)

// Store uploads finished recordings' packed event streams to S3.
type Store struct {
	client    *s3.Client
	bucket    string
	prefix    string
	urlExpiry time.Duration
}

// NewStore creates an S3-backed archive.
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	client := s3.NewFromConfig(cfg)
//	store := archive.NewStore(client, "my-bucket", "recordings/")
func NewStore(client *s3.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix, urlExpiry: 24 * time.Hour}
}

// WithURLExpiry sets how long presigned retrieval URLs remain valid.
func (s *Store) WithURLExpiry(d time.Duration) *Store {
	s.urlExpiry = d
	return s
}

// Recording accumulates one session's event stream as length-prefixed
// wire.Frame records, ready to upload in a single PutObject call when
// the recording stops. It is not safe for concurrent use: callers
// that need a session's events fed from multiple goroutines should
// serialize calls to AddEvent themselves, matching how a pipeline
// sink is always invoked from a single dispatch point.
type Recording struct {
	id  string
	buf bytes.Buffer
}

// NewRecording starts accumulating a new archive under sessionID.
func NewRecording(sessionID string) *Recording {
	return &Recording{id: sessionID}
}

// AddEvent appends e to the archive as a packed wire frame.
func (r *Recording) AddEvent(e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("archive: marshal event: %w", err)
	}
	f := wire.NewFrame(wire.FrameEvent, payload)
	r.buf.Write(f.Encode())
	return nil
}

// Size returns the number of bytes accumulated so far.
func (r *Recording) Size() int { return r.buf.Len() }

// Finish uploads the accumulated stream to S3 under
// "<prefix><sessionID>" and returns a presigned retrieval URL.
func (s *Store) Finish(ctx context.Context, rec *Recording) (string, error) {
	key := s.prefix + rec.id

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(rec.buf.Bytes()),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"session-id":  rec.id,
			"archived-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 upload failed: %w", err)
	}

	presignClient := s3.NewPresignClient(s.client)
	presigned, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("archive: presign failed: %w", err)
	}
	return presigned.URL, nil
}

// Fetch retrieves a previously archived packed stream's raw bytes.
func (s *Store) Fetch(ctx context.Context, sessionID string) ([]byte, error) {
	key := s.prefix + sessionID
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: s3 get failed: %w", err)
	}
	defer out.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("archive: read body: %w", err)
	}
	return buf.Bytes(), nil
}
