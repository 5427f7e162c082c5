package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smartdog/pet-contribution/internal/photo"
)

// ValidatePhotoPath checks that path names a regular file with a supported
// image extension and returns its absolute path.
func ValidatePhotoPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("photo not found: %s", path)
		}
		return "", fmt.Errorf("access photo %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("photo path is a directory: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := photo.SupportedImageExtensions[ext]; !ok {
		return "", fmt.Errorf("unsupported photo type %q: %s", ext, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}
