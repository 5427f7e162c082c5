// Package photo implements photo intake for the contribution flow: a fixed
// set of named slots (frontal, focinho, angulo), image-only acceptance and
// asynchronous preview derivation.
//
// Only the declared media type is checked on selection. Decoding happens in
// the background while deriving the preview, and a payload that cannot be
// decoded still counts as present; the remote service is the authority on
// whether a photo is usable.
package photo

import (
	"os"
	"path/filepath"
	"strings"
)

// Well-known slot identifiers. They double as multipart field names expected
// by the remote service.
const (
	SlotFrontal = "frontal"
	SlotFocinho = "focinho"
	SlotAngulo  = "angulo"
)

// SupportedImageExtensions maps file extensions to the media type declared
// for photos loaded from disk.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// Photo is a binary image payload with its declared media type.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IsImage reports whether the declared media type is an image type.
func (p *Photo) IsImage() bool {
	return p != nil && strings.HasPrefix(strings.ToLower(p.ContentType), "image/")
}

// Size returns the payload size in bytes.
func (p *Photo) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}

// DeclaredType returns the media type implied by the filename's extension,
// or application/octet-stream for anything that is not a known image type.
func DeclaredType(filename string) string {
	if t, ok := SupportedImageExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return "application/octet-stream"
}

// Load reads a photo from disk, declaring its media type from the extension.
func Load(path string) (*Photo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Photo{
		Filename:    filepath.Base(path),
		ContentType: DeclaredType(path),
		Data:        data,
	}, nil
}
