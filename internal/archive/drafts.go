package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/photo"
)

// DraftPrefix is the root of the keys holding photos kept for a retry. The
// bucket expires objects under it with a lifecycle rule; Load also ignores
// objects older than the draft TTL.
const DraftPrefix = "drafts"

// filenameMeta is the user metadata key holding the URL-escaped filename.
const filenameMeta = "filename"

// draftAPI is the subset of *s3.Client used by Drafts.
type draftAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Drafts keeps the photos of a failed attempt in S3 under
// drafts/<token>/<slot>, one object per slot.
type Drafts struct {
	client draftAPI
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// NewDrafts creates a draft store in bucket. Objects older than ttl are
// treated as absent.
func NewDrafts(client *s3.Client, bucket string, ttl time.Duration) *Drafts {
	return newDrafts(client, bucket, ttl)
}

func newDrafts(client draftAPI, bucket string, ttl time.Duration) *Drafts {
	return &Drafts{client: client, bucket: bucket, ttl: ttl, now: time.Now}
}

func draftDir(token string) string {
	return path.Join(DraftPrefix, token) + "/"
}

// Save writes one object per photo, replacing earlier photos of the same slot.
func (d *Drafts) Save(ctx context.Context, token string, photos []photo.Selected) error {
	var errs []error
	for _, sel := range photos {
		contentType := sel.Photo.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(d.bucket),
			Key:         aws.String(draftDir(token) + sel.SlotID),
			Body:        bytes.NewReader(sel.Photo.Data),
			ContentType: aws.String(contentType),
			Metadata:    map[string]string{filenameMeta: url.QueryEscape(sel.Photo.Filename)},
			Tagging:     aws.String(projectTag),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("save draft %s: %w", sel.SlotID, err))
		}
	}
	return errors.Join(errs...)
}

// Load returns the photos kept under token, or nil when there are none.
func (d *Drafts) Load(ctx context.Context, token string) ([]photo.Selected, error) {
	keys, err := d.list(ctx, token, true)
	if err != nil {
		return nil, err
	}

	var out []photo.Selected
	for _, key := range keys {
		obj, err := d.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("S3 GetObject %s: %w", key, err)
		}
		data, err := io.ReadAll(obj.Body)
		obj.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read draft %s: %w", key, err)
		}
		filename, _ := url.QueryUnescape(obj.Metadata[filenameMeta])
		out = append(out, photo.Selected{
			SlotID: path.Base(key),
			Photo: &photo.Photo{
				Filename:    filename,
				ContentType: aws.ToString(obj.ContentType),
				Data:        data,
			},
		})
	}
	log.Debug().Str("draft", token).Int("photos", len(out)).Msg("Draft photos loaded")
	return out, nil
}

// Delete removes every object kept under token.
func (d *Drafts) Delete(ctx context.Context, token string) error {
	keys, err := d.list(ctx, token, false)
	if err != nil || len(keys) == 0 {
		return err
	}
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
	}
	_, err = d.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(d.bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObjects: %w", err)
	}
	return nil
}

// list returns the keys under token. With fresh set, objects past the TTL
// are left out.
func (d *Drafts) list(ctx context.Context, token string, fresh bool) ([]string, error) {
	out, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(draftDir(token)),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 ListObjectsV2: %w", err)
	}
	var keys []string
	for _, obj := range out.Contents {
		if fresh && d.ttl > 0 && obj.LastModified != nil && d.now().Sub(*obj.LastModified) > d.ttl {
			continue
		}
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}
