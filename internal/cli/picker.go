package cli

import (
	"errors"
	"strings"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/photo"
)

// ErrCanceled is returned when the user closes the file dialog.
var ErrCanceled = errors.New("selection canceled")

// imagePatterns lists the dialog filter patterns for supported photos.
func imagePatterns() []string {
	patterns := make([]string, 0, len(photo.SupportedImageExtensions))
	for ext := range photo.SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return patterns
}

// PickPhoto opens the native file dialog for one slot.
func PickPhoto(label string) (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Title(label),
		zenity.FileFilters{
			{Name: "Imagens", Patterns: imagePatterns()},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrCanceled
		}
		return "", err
	}
	log.Debug().Str("title", strings.ToLower(label)).Str("path", selected).Msg("Photo picked via native dialog")
	return selected, nil
}
