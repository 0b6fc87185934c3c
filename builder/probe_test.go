package builder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestAPIVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"label":"Winter '23","url":"/services/data/v56.0","version":"56.0"},
			{"label":"Summer '23","url":"/services/data/v58.0","version":"58.0"},
			{"label":"Spring '23","url":"/services/data/v57.0","version":"57.0"}
		]`))
	}))
	defer srv.Close()

	v, err := NewInstanceProbe().LatestAPIVersion(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "58.0", v.Version)
	assert.Equal(t, "Summer '23", v.Label)
}

func TestLatestAPIVersion_Errors(t *testing.T) {
	_, err := NewInstanceProbe().LatestAPIVersion(context.Background(), "")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err = NewInstanceProbe().LatestAPIVersion(context.Background(), srv.URL)
	assert.Error(t, err)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer empty.Close()

	_, err = NewInstanceProbe().LatestAPIVersion(context.Background(), empty.URL)
	assert.Error(t, err)
}

func hangingServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func TestLatestAPIVersion_ClientTimeout(t *testing.T) {
	srv := hangingServer(t)

	probe := NewInstanceProbe()
	assert.Equal(t, DefaultProbeTimeout, probe.Client.GetClient().Timeout)
	probe.Client.SetTimeout(100 * time.Millisecond)

	start := time.Now()
	_, err := probe.LatestAPIVersion(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLatestAPIVersion_ContextCancel(t *testing.T) {
	srv := hangingServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewInstanceProbe().LatestAPIVersion(ctx, srv.URL)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
