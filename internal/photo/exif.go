package photo

import (
	"bytes"
	"image"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog"
)

// Summary is the metadata worth logging about a contributed photo. Fields
// stay zero when the image carries no EXIF block.
type Summary struct {
	Width       int
	Height      int
	DateTaken   time.Time
	CameraMake  string
	CameraModel string
}

// Summarize reads image dimensions and EXIF capture details from data.
// It never fails; whatever cannot be read is left empty.
func Summarize(data []byte) *Summary {
	s := &Summary{}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		s.Width = cfg.Width
		s.Height = cfg.Height
	}

	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return s
	}

	// DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		s.DateTaken = exifData.DateTimeOriginal()
	case !exifData.CreateDate().IsZero():
		s.DateTaken = exifData.CreateDate()
	case !exifData.ModifyDate().IsZero():
		s.DateTaken = exifData.ModifyDate()
	}
	s.CameraMake = strings.TrimSpace(exifData.Make)
	s.CameraModel = strings.TrimSpace(exifData.Model)
	return s
}

// HasDate reports whether a capture date was found.
func (s *Summary) HasDate() bool {
	return s != nil && !s.DateTaken.IsZero()
}

// MarshalZerologObject lets a Summary be attached to log events.
func (s *Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("width", s.Width).Int("height", s.Height)
	if s.HasDate() {
		e.Time("dateTaken", s.DateTaken)
	}
	if s.CameraMake != "" || s.CameraModel != "" {
		e.Str("camera", strings.TrimSpace(s.CameraMake+" "+s.CameraModel))
	}
}
