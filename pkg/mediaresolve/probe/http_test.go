package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve/probe"
)

func TestProbe_ReachableViaHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "1048576")
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := probe.NewHTTP(probe.HTTPConfig{})
	res, err := p.Probe(context.Background(), srv.URL+"/lecture.mp4")
	require.NoError(t, err)
	assert.True(t, res.Reachable)
	assert.Equal(t, int64(1048576), res.SizeBytes)
	assert.Equal(t, "video/mp4", res.ContentType)
	assert.True(t, res.SupportsRangeRequests)
}

func TestProbe_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := probe.NewHTTP(probe.HTTPConfig{})
	res, err := p.Probe(context.Background(), srv.URL+"/missing.mp4")
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Equal(t, mediaresolve.ReasonNotFound, res.Reason)
}

func TestProbe_GoneIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	p := probe.NewHTTP(probe.HTTPConfig{})
	res, err := p.Probe(context.Background(), srv.URL+"/deleted.mp4")
	require.NoError(t, err)
	assert.Equal(t, mediaresolve.ReasonNotFound, res.Reason)
}

func TestProbe_ServerErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := probe.NewHTTP(probe.HTTPConfig{})
	res, err := p.Probe(context.Background(), srv.URL+"/broken.mp4")
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Equal(t, mediaresolve.ReasonError, res.Reason)
}

func TestProbe_TimeoutDistinctFromNotFound(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	p := probe.NewHTTP(probe.HTTPConfig{Timeout: 50 * time.Millisecond})
	res, err := p.Probe(context.Background(), srv.URL+"/slow.mp4")
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Equal(t, mediaresolve.ReasonTimeout, res.Reason)
}

func TestProbe_ConnectionRefusedIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening anymore

	p := probe.NewHTTP(probe.HTTPConfig{Timeout: time.Second})
	res, err := p.Probe(context.Background(), srv.URL+"/lecture.mp4")
	require.NoError(t, err)
	assert.False(t, res.Reachable)
	assert.Equal(t, mediaresolve.ReasonError, res.Reason)
}

func TestProbe_HeadRejected_FallsBackToRangeGet(t *testing.T) {
	var sawRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawRange = r.Header.Get("Range")
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Range", "bytes 0-0/2097152")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte{0})
	}))
	defer srv.Close()

	p := probe.NewHTTP(probe.HTTPConfig{})
	res, err := p.Probe(context.Background(), srv.URL+"/lecture.mp4")
	require.NoError(t, err)
	assert.Equal(t, "bytes=0-0", sawRange)
	assert.True(t, res.Reachable)
	assert.Equal(t, int64(2097152), res.SizeBytes)
	assert.True(t, res.SupportsRangeRequests)
}

func TestProbe_HonorsCallerContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	p := probe.NewHTTP(probe.HTTPConfig{Timeout: 10 * time.Second})
	res, err := p.Probe(ctx, srv.URL+"/slow.mp4")
	require.NoError(t, err)
	assert.Equal(t, mediaresolve.ReasonTimeout, res.Reason)
}
