package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPChecker_UnreachableProbe(t *testing.T) {
	c := NewHTTPChecker("http://127.0.0.1:1/health", nil, quietLogger())
	assert.False(t, c.Check(context.Background()))
}

func TestHTTPChecker_ReachableProbe(t *testing.T) {
	if !hasLinkAddress() {
		t.Skip("no non-loopback interface available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, nil, quietLogger())
	assert.True(t, c.Check(context.Background()))
}

func TestHTTPChecker_ServerErrorMeansOffline(t *testing.T) {
	if !hasLinkAddress() {
		t.Skip("no non-loopback interface available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, nil, quietLogger())
	assert.False(t, c.Check(context.Background()))
}

func TestHTTPChecker_ClientErrorStillReachable(t *testing.T) {
	if !hasLinkAddress() {
		t.Skip("no non-loopback interface available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, nil, quietLogger())
	assert.True(t, c.Check(context.Background()))
}

func TestConnectivityState(t *testing.T) {
	state := NewConnectivityState()
	assert.False(t, state.Connected())

	state.setConnected(true)
	assert.True(t, state.Connected())

	state.setConnected(false)
	assert.False(t, state.Connected())
}
