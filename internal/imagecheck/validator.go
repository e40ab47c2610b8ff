package imagecheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/services"
)

// Validator probes a URL to confirm it addresses image content before a
// workflow is admitted.
type Validator struct {
	client       *http.Client
	userAgent    string
	maxRedirects int
}

// New builds a validator from intake configuration.
func New(cfg config.Validation) *Validator {
	v := &Validator{
		userAgent:    cfg.UserAgent,
		maxRedirects: cfg.MaxRedirects,
	}
	v.client = &http.Client{
		Timeout: time.Duration(cfg.ProbeTimeout) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= v.maxRedirects {
				return fmt.Errorf("stopped after %d redirects", v.maxRedirects)
			}
			return nil
		},
	}
	return v
}

// Validate confirms the URL resolves to image content. A HEAD probe runs
// first; origins that reject it (method not allowed, network error, timeout)
// get a one-byte ranged GET instead, so only the content-type header is read.
// Both probes failing surfaces the fallback's error as unreachable; a
// non-image content-type from either probe is a rejection.
func (v *Validator) Validate(ctx context.Context, imageURL string) error {
	contentType, headErr := v.probe(ctx, http.MethodHead, imageURL, false)
	if headErr != nil {
		var getErr error
		contentType, getErr = v.probe(ctx, http.MethodGet, imageURL, true)
		if getErr != nil {
			return services.Wrap(services.ErrUnreachable, "imagecheck", "probe url",
				fmt.Sprintf("cannot reach image URL %s", imageURL), getErr)
		}
	}

	if !strings.HasPrefix(contentType, "image/") {
		return services.Wrap(services.ErrNotAnImage, "imagecheck", "probe url",
			fmt.Sprintf("content-type %q is not an image", contentType), nil)
	}
	return nil
}

func (v *Validator) probe(ctx context.Context, method, imageURL string, ranged bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, imageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", v.userAgent)
	if ranged {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%s %s: status %d", method, imageURL, resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), nil
}
