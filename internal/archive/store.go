// Package archive copies generated appointment exports to S3.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Object is one generated file to archive.
type Object struct {
	// Kind is the export format, e.g. "excel" or "pdf".
	Kind        string
	Filename    string
	ContentType string
	Data        []byte
	// Rows is the number of appointments in the export.
	Rows int
}

// ManifestEntry is one JSONL line in the monthly manifest.
type ManifestEntry struct {
	Kind       string `json:"kind"`
	S3Key      string `json:"s3_key"`
	Rows       int    `json:"rows"`
	Bytes      int    `json:"bytes"`
	ArchivedAt string `json:"archived_at"`
}

// Store archives exports to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Archive writes obj under a dated key and appends it to the manifest. It returns the key.
func (s *Store) Archive(ctx context.Context, obj Object) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	now := s.now().UTC()
	key := fmt.Sprintf("exports/v1/by-date/%d/%02d/%02d/%s-%s",
		now.Year(), now.Month(), now.Day(), now.Format("150405"), path.Base(obj.Filename))

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Info("archived export to S3", "kind", obj.Kind, "s3_key", key, "rows", obj.Rows)

	entry := ManifestEntry{
		Kind:       obj.Kind,
		S3Key:      key,
		Rows:       obj.Rows,
		Bytes:      len(obj.Data),
		ArchivedAt: now.Format(time.RFC3339),
	}
	if err := s.appendManifest(ctx, now, entry); err != nil {
		// The export itself is stored; a missing manifest line is recoverable.
		s.logger.Warn("failed to append manifest", "error", err, "s3_key", key)
	}
	return key, nil
}

// appendManifest appends a JSONL line to the monthly manifest.
// S3 has no append, so this is read-modify-write.
func (s *Store) appendManifest(ctx context.Context, now time.Time, entry ManifestEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}
	manifestKey := fmt.Sprintf("exports/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}
