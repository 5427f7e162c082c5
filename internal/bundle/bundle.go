// Package bundle exports the local contribution history as a
// Zstandard-compressed ZIP: a receipts.json manifest plus any transformed
// images saved by `smartdog contribute --save-result`.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/smartdog/pet-contribution/internal/store"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

// ManifestName is the name of the receipts manifest inside a bundle.
const ManifestName = "receipts.json"

var registerOnce sync.Once

// register installs the zstd codec for method 93 in archive/zip.
func register() {
	registerOnce.Do(func() {
		zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
		})
		zip.RegisterDecompressor(zipMethodZstd, zstd.ZipDecompressor())
	})
}

// Stats describes a written bundle.
type Stats struct {
	Receipts int
	Images   int
	Bytes    int64
}

// Export writes receipts and their saved result images to a new ZIP at
// path. Images are looked up as <resultsDir>/<session>.*; missing images
// are skipped.
func Export(path string, receipts []*store.Receipt, resultsDir string) (Stats, error) {
	register()
	var stats Stats

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return stats, fmt.Errorf("create bundle dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return stats, fmt.Errorf("create bundle: %w", err)
	}
	defer f.Close()

	now := time.Now()
	zw := zip.NewWriter(f)

	manifest, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return stats, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, now, manifest); err != nil {
		return stats, err
	}
	stats.Receipts = len(receipts)

	for _, r := range receipts {
		images, err := resultImages(resultsDir, r.Session)
		if err != nil {
			return stats, err
		}
		for _, img := range images {
			data, err := os.ReadFile(img)
			if err != nil {
				log.Warn().Err(err).Str("path", img).Msg("Failed to read result image, skipping")
				continue
			}
			if err := writeEntry(zw, "results/"+filepath.Base(img), r.CreatedAt, data); err != nil {
				return stats, err
			}
			stats.Images++
		}
	}

	if err := zw.Close(); err != nil {
		return stats, fmt.Errorf("close ZIP writer: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return stats, fmt.Errorf("stat bundle: %w", err)
	}
	stats.Bytes = info.Size()

	log.Info().
		Str("path", path).
		Int("receipts", stats.Receipts).
		Int("images", stats.Images).
		Int64("bytes", stats.Bytes).
		Msg("Bundle written")
	return stats, nil
}

func writeEntry(zw *zip.Writer, name string, modified time.Time, data []byte) error {
	header := &zip.FileHeader{
		Name:   name,
		Method: zipMethodZstd,
	}
	header.SetModTime(modified)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create ZIP entry for %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write to ZIP for %s: %w", name, err)
	}
	return nil
}

func resultImages(dir, session string) ([]string, error) {
	if dir == "" || session == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, session+".*"))
	if err != nil {
		return nil, fmt.Errorf("glob result images: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Contents is what a bundle holds.
type Contents struct {
	Receipts []*store.Receipt
	Images   map[string][]byte
}

// Read opens a bundle written by Export.
func Read(path string) (*Contents, error) {
	register()
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer zr.Close()

	c := &Contents{Images: make(map[string][]byte)}
	for _, zf := range zr.File {
		data, err := readEntry(zf)
		if err != nil {
			return nil, err
		}
		if zf.Name == ManifestName {
			if err := json.Unmarshal(data, &c.Receipts); err != nil {
				return nil, fmt.Errorf("decode manifest: %w", err)
			}
			continue
		}
		c.Images[zf.Name] = data
	}
	return c, nil
}

func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", zf.Name, err)
	}
	return data, nil
}

// ResultPath returns where a transformed image for session is saved.
func ResultPath(dataDir, session, ext string) string {
	return filepath.Join(ResultsDir(dataDir), session+ext)
}

// ResultsDir returns the directory of saved transformed images.
func ResultsDir(dataDir string) string {
	return filepath.Join(dataDir, "results")
}
