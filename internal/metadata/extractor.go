package metadata

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"darkroom/internal/services"
)

// Metadata is the technical description extracted from a staged image.
type Metadata struct {
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Format string            `json:"format"`
	EXIF   map[string]string `json:"exif"`
}

// Extractor reads staged images and pulls out dimensions, format, and any
// embedded EXIF tags.
type Extractor struct {
	dataDir string
}

// NewExtractor builds an extractor rooted at the staging directory.
func NewExtractor(dataDir string) *Extractor {
	return &Extractor{dataDir: dataDir}
}

// Extract inspects the staged file. Images without EXIF data are normal;
// they yield an empty tag map rather than an error.
func (e *Extractor) Extract(filename string) (Metadata, error) {
	path := filepath.Join(e.dataDir, filename)
	file, err := os.Open(path)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrTransient, "metadata", "open", path, err)
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrTransient, "metadata", "decode", path, err)
	}

	meta := Metadata{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		EXIF:   map[string]string{},
	}

	if _, err := file.Seek(0, 0); err != nil {
		return Metadata{}, services.Wrap(services.ErrTransient, "metadata", "seek", path, err)
	}
	if parsed, err := exif.Decode(file); err == nil {
		collector := tagCollector(meta.EXIF)
		_ = parsed.Walk(collector)
	}
	return meta, nil
}

type tagCollector map[string]string

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c[string(name)] = tag.String()
	return nil
}
