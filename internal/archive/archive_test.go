package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	"github.com/smartdog/pet-contribution/internal/photo"
	"github.com/smartdog/pet-contribution/internal/store"
)

type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	tags     map[string]string
	meta     map[string]map[string]string
	modified map[string]time.Time
	failKey  string
	now      time.Time
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:  map[string][]byte{},
		types:    map[string]string{},
		tags:     map[string]string{},
		meta:     map[string]map[string]string{},
		modified: map[string]time.Time{},
		now:      time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(strings.NewReader(string(data))),
		ContentType: aws.String(f.types[*in.Key]),
		Metadata:    f.meta[*in.Key],
	}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{}
	for _, key := range keys {
		modified := f.modified[key]
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key), LastModified: &modified})
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range in.Delete.Objects {
		delete(f.objects, *id.Key)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failKey != "" && strings.HasSuffix(*in.Key, f.failKey) {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	f.tags[*in.Key] = *in.Tagging
	f.meta[*in.Key] = in.Metadata
	f.modified[*in.Key] = f.now
	return &s3.PutObjectOutput{}, nil
}

func testReceipt() *store.Receipt {
	return &store.Receipt{
		Session:   "1700000000000-abc",
		CreatedAt: time.Date(2024, 3, 7, 23, 30, 0, 0, time.UTC),
		Variant:   "contribute",
		Species:   "dog",
		Breed:     "Labrador",
		Sex:       "female",
		Age:       "3 anos",
	}
}

func testPhotos() []photo.Selected {
	return []photo.Selected{
		{SlotID: "frontal", Photo: &photo.Photo{Filename: "IMG_1.JPG", ContentType: "image/jpeg", Data: []byte("front")}},
		{SlotID: "focinho", Photo: &photo.Photo{Filename: "nose", ContentType: "image/png", Data: []byte("nose")}},
	}
}

func TestArchive(t *testing.T) {
	s3c := newFakeS3()
	a := newArchiver(s3c, "smartdog-archive")

	keys, err := a.Archive(context.Background(), testReceipt(), testPhotos())
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	dir := "contributions/2024/03/07/1700000000000-abc"
	want := []string{dir + "/frontal.jpg", dir + "/focinho.png", dir + "/receipt.json"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if string(s3c.objects[dir+"/frontal.jpg"]) != "front" {
		t.Error("photo payload not uploaded verbatim")
	}
	if s3c.types[dir+"/focinho.png"] != "image/png" {
		t.Errorf("content type = %s", s3c.types[dir+"/focinho.png"])
	}
	if s3c.tags[dir+"/receipt.json"] != "Project=smartdog" {
		t.Errorf("tagging = %s", s3c.tags[dir+"/receipt.json"])
	}

	var got store.Receipt
	if err := json.Unmarshal(s3c.objects[dir+"/receipt.json"], &got); err != nil {
		t.Fatalf("receipt is not JSON: %v", err)
	}
	if got.Breed != "Labrador" || got.Session != "1700000000000-abc" {
		t.Errorf("unexpected receipt: %+v", got)
	}
}

func TestArchive_ContinuesAfterFailure(t *testing.T) {
	s3c := newFakeS3()
	s3c.failKey = "frontal.jpg"
	a := newArchiver(s3c, "b")

	keys, err := a.Archive(context.Background(), testReceipt(), testPhotos())
	if err == nil || !strings.Contains(err.Error(), "archive frontal") {
		t.Fatalf("expected frontal failure, got %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected focinho and receipt to be written, got %v", keys)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		filename, contentType, want string
	}{
		{"a.JPEG", "image/jpeg", ".jpeg"},
		{"a.webp", "", ".webp"},
		{"upload", "image/png", ".png"},
		{"a.txt", "image/heic", ".heic"},
		{"blob", "application/octet-stream", ".bin"},
	}
	for _, tt := range tests {
		got := Extension(&photo.Photo{Filename: tt.filename, ContentType: tt.contentType})
		if got != tt.want {
			t.Errorf("Extension(%q, %q) = %q, want %q", tt.filename, tt.contentType, got, tt.want)
		}
	}
}
