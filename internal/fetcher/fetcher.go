package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"darkroom/internal/config"
	"darkroom/internal/services"
)

// Result describes the normalized image written to the staging directory.
type Result struct {
	Filename string
	Width    int
	Height   int
	MimeType string
}

// Acquirer downloads a source image, bounds its dimensions, and writes the
// normalized JPEG into the staging directory. Every output is a JPEG named
// after the workflow so downstream stages can locate it without a lookup.
type Acquirer struct {
	client   *http.Client
	dataDir  string
	maxBytes int64
	maxDim   int
}

// NewAcquirer builds an acquirer from the fetch limits in cfg.
func NewAcquirer(cfg *config.Config) *Acquirer {
	return &Acquirer{
		client: &http.Client{
			Timeout: time.Duration(cfg.Fetch.DownloadTimeout) * time.Second,
		},
		dataDir:  cfg.Paths.DataDir,
		maxBytes: cfg.Fetch.MaxImageBytes,
		maxDim:   cfg.Fetch.MaxDimension,
	}
}

// Acquire downloads imageURL, resizes it to fit inside the configured
// dimension bound when it exceeds it, and saves it as {workflowID}.jpg.
// Aspect ratio is preserved; images already within bounds are re-encoded
// but not resized.
func (a *Acquirer) Acquire(ctx context.Context, workflowID, imageURL string) (Result, error) {
	data, err := a.download(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "fetcher", "decode", imageURL, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > a.maxDim || bounds.Dy() > a.maxDim {
		img = imaging.Fit(img, a.maxDim, a.maxDim, imaging.Lanczos)
		bounds = img.Bounds()
	}

	filename := workflowID + ".jpg"
	path := filepath.Join(a.dataDir, filename)
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "fetcher", "save", path, err)
	}

	return Result{
		Filename: filename,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: "image/jpeg",
	}, nil
}

func (a *Acquirer) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetcher", "download", imageURL, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetcher", "download", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, services.Wrap(services.ErrTransient, "fetcher", "download",
			fmt.Sprintf("%s returned status %d", imageURL, resp.StatusCode), nil)
	}

	// Read one byte past the cap so an at-limit image is distinguishable
	// from an over-limit one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetcher", "download", imageURL, err)
	}
	if int64(len(data)) > a.maxBytes {
		return nil, services.Wrap(services.ErrTransient, "fetcher", "download",
			fmt.Sprintf("%s exceeds %d byte limit", imageURL, a.maxBytes), nil)
	}
	return data, nil
}
