// Package archive keeps a copy of accepted contributions in S3 for the
// hosted deployment. Archiving is best effort: the contribution has already
// been accepted by the backend when it runs.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/photo"
	"github.com/smartdog/pet-contribution/internal/store"
)

// Prefix is the root of every archived object key.
const Prefix = "contributions"

// projectTag is the URL-encoded S3 object tagging string for cost allocation.
const projectTag = "Project=smartdog"

// putObjectAPI is the subset of *s3.Client used by the archiver.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads contribution photos and receipts to a bucket.
type Archiver struct {
	client putObjectAPI
	bucket string
}

// New creates an Archiver for the given bucket.
func New(client *s3.Client, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

func newArchiver(client putObjectAPI, bucket string) *Archiver {
	return &Archiver{client: client, bucket: bucket}
}

// Bucket returns the target bucket name.
func (a *Archiver) Bucket() string {
	return a.bucket
}

// Archive uploads every photo and then the receipt under
// contributions/<yyyy>/<mm>/<dd>/<session>/. Each object is attempted even
// when an earlier one fails; the keys written are returned along with the
// joined errors.
func (a *Archiver) Archive(ctx context.Context, r *store.Receipt, photos []photo.Selected) ([]string, error) {
	dir := Dir(r)
	var (
		keys []string
		errs []error
	)

	for _, sel := range photos {
		key := path.Join(dir, sel.SlotID+Extension(sel.Photo))
		if err := a.put(ctx, key, sel.Photo.ContentType, sel.Photo.Data); err != nil {
			errs = append(errs, fmt.Errorf("archive %s: %w", sel.SlotID, err))
			continue
		}
		keys = append(keys, key)
	}

	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		errs = append(errs, fmt.Errorf("encode receipt: %w", err))
	} else {
		key := path.Join(dir, "receipt.json")
		if err := a.put(ctx, key, "application/json", body); err != nil {
			errs = append(errs, fmt.Errorf("archive receipt: %w", err))
		} else {
			keys = append(keys, key)
		}
	}

	log.Info().
		Str("sessionId", r.Session).
		Str("bucket", a.bucket).
		Int("objects", len(keys)).
		Int("failures", len(errs)).
		Msg("Contribution archived")
	return keys, errors.Join(errs...)
}

func (a *Archiver) put(ctx context.Context, key, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	tagging := projectTag
	log.Debug().Str("bucket", a.bucket).Str("key", key).Int("bytes", len(data)).Msg("Uploading to S3")
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		Tagging:     &tagging,
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject: %w", err)
	}
	return nil
}

// Dir returns the key prefix for one contribution.
func Dir(r *store.Receipt) string {
	t := r.CreatedAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s", Prefix, t.Year(), int(t.Month()), t.Day(), r.Session)
}

// Extension picks the object extension for a photo: the filename's when it
// is a known image extension, else one matching the declared media type.
func Extension(p *photo.Photo) string {
	ext := strings.ToLower(filepath.Ext(p.Filename))
	if _, ok := photo.SupportedImageExtensions[ext]; ok {
		return ext
	}
	switch strings.ToLower(p.ContentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	}
	return ".bin"
}
