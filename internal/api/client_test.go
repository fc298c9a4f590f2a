package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/pitwall/pkg/core"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/healthcheck", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "").Healthcheck(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, "").Healthcheck(context.Background()))
}

func TestUpload(t *testing.T) {
	form := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "trackName", "title", "duration", "frameCount", "tag"} {
			form[k] = r.FormValue(k)
		}
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		content, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "silverstone_run.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("replay"), 0644))

	err := New(server.URL, "key").Upload(context.Background(), path, core.UploadMetadata{
		TrackName:  "Silverstone",
		Title:      "VER vs HAM @ Silverstone",
		DurationS:  90.1474,
		Tag:        "practice",
		FrameCount: 1500,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":     "key",
		"filename":   "silverstone_run.json.gz",
		"trackName":  "Silverstone",
		"title":      "VER vs HAM @ Silverstone",
		"duration":   "90.147",
		"frameCount": "1500",
		"tag":        "practice",
	}, form)
	assert.Equal(t, "replay", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").
		Upload(context.Background(), filepath.Join(t.TempDir(), "missing.json.gz"), core.UploadMetadata{})
	assert.Error(t, err)
}

func TestUpload_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	err := New(server.URL, "wrong").Upload(context.Background(), path, core.UploadMetadata{})
	assert.ErrorContains(t, err, "403")
}
