package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("model data"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "models", "test.vocab")
	d := NewDownloader(zap.NewNop(), 3, time.Millisecond)
	if err := d.Fetch(context.Background(), ts.URL, dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "model data" {
		t.Errorf("content = %q", data)
	}
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "test.npy")
	d := NewDownloader(zap.NewNop(), 3, time.Millisecond)
	if err := d.Fetch(context.Background(), ts.URL, dest); err != nil {
		t.Fatal(err)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "test.npy")
	d := NewDownloader(zap.NewNop(), 3, time.Millisecond)
	if err := d.Fetch(context.Background(), ts.URL, dest); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want exactly 3", attempts.Load())
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("failed download left a file at dest")
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDownloader(zap.NewNop(), 3, time.Hour)
	err := d.Fetch(ctx, ts.URL, filepath.Join(t.TempDir(), "f"))
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestEnsureFile_SkipsExisting(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "model.vocab")
	if err := os.WriteFile(dest, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}
	d := NewDownloader(zap.NewNop(), 3, time.Millisecond)
	downloaded, err := d.EnsureFile(context.Background(), ts.URL, dest)
	if err != nil {
		t.Fatal(err)
	}
	if downloaded || attempts.Load() != 0 {
		t.Errorf("downloaded=%v attempts=%d, want skip", downloaded, attempts.Load())
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "existing" {
		t.Errorf("existing file overwritten: %q", data)
	}
}

func TestEnsureFile_DownloadsMissing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fresh"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "model.vocab")
	d := NewDownloader(zap.NewNop(), 3, time.Millisecond)
	downloaded, err := d.EnsureFile(context.Background(), ts.URL, dest)
	if err != nil {
		t.Fatal(err)
	}
	if !downloaded {
		t.Error("expected a download")
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "fresh" {
		t.Errorf("content = %q", data)
	}
}
