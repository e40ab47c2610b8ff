package imagecheck_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"darkroom/internal/config"
	"darkroom/internal/imagecheck"
	"darkroom/internal/services"
)

func testValidator() *imagecheck.Validator {
	cfg := config.Default().Validation
	return imagecheck.New(cfg)
}

func TestValidateAcceptsImageViaHead(t *testing.T) {
	var sawUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			sawUserAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "image/jpeg")
			return
		}
		t.Errorf("unexpected %s request; HEAD should have sufficed", r.Method)
	}))
	defer server.Close()

	if err := testValidator().Validate(context.Background(), server.URL+"/i.jpg"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sawUserAgent != "Darkroom/1.0" {
		t.Fatalf("client identity not declared: %q", sawUserAgent)
	}
}

func TestValidateFallsBackToRangedGet(t *testing.T) {
	var sawRange string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			sawRange = r.Header.Get("Range")
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte{0x89})
		}
	}))
	defer server.Close()

	if err := testValidator().Validate(context.Background(), server.URL+"/i.png"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sawRange != "bytes=0-0" {
		t.Fatalf("fallback should request a single byte, got Range=%q", sawRange)
	}
}

func TestValidateRejectsNonImage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"html page", "text/html; charset=utf-8"},
		{"octet stream", "application/octet-stream"},
		{"no header", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				} else {
					// Suppress Go's content-type sniffing default.
					w.Header()["Content-Type"] = nil
				}
			}))
			defer server.Close()

			err := testValidator().Validate(context.Background(), server.URL)
			if !errors.Is(err, services.ErrNotAnImage) {
				t.Fatalf("expected ErrNotAnImage, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsImageFromFallbackOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
	}))
	defer server.Close()

	if err := testValidator().Validate(context.Background(), server.URL); err != nil {
		t.Fatalf("fallback content-type should win: %v", err)
	}
}

func TestValidateUnreachableWhenBothProbesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := testValidator().Validate(context.Background(), server.URL+"/missing.jpg")
	if !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestValidateUnreachableOnConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	err := testValidator().Validate(context.Background(), url)
	if !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestValidateFollowsRedirects(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
	}))
	defer target.Close()

	hops := 0
	var redirector *httptest.Server
	redirector = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hops < 3 {
			hops++
			http.Redirect(w, r, redirector.URL, http.StatusFound)
			return
		}
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirector.Close()

	if err := testValidator().Validate(context.Background(), redirector.URL); err != nil {
		t.Fatalf("bounded redirects should be followed: %v", err)
	}
}

func TestValidateStopsAfterTooManyRedirects(t *testing.T) {
	var loop *httptest.Server
	loop = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, loop.URL, http.StatusFound)
	}))
	defer loop.Close()

	err := testValidator().Validate(context.Background(), loop.URL)
	if !errors.Is(err, services.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable for redirect loop, got %v", err)
	}
}
