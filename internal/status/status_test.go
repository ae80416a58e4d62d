package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidmaster/internal/auction"
	"bidmaster/internal/metrics"
	"bidmaster/util"
)

type fixedSource struct{ st auction.State }

func (f *fixedSource) State() auction.State { return f.st }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("GET", path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func newRouter(src Source, m *metrics.Collector) http.Handler {
	return NewHandler(src, m, util.NewLogger(int(util.LogQuiet))).Router()
}

func TestLivez(t *testing.T) {
	w := get(t, newRouter(&fixedSource{}, nil), "/livez")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
}

func TestReadyz(t *testing.T) {
	src := &fixedSource{}
	r := newRouter(src, nil)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, r, "/readyz").Code)

	src.st.Running = true
	assert.Equal(t, http.StatusOK, get(t, r, "/readyz").Code)
}

func TestAuction(t *testing.T) {
	src := &fixedSource{st: auction.State{
		Item: "Vase", LastBidder: "alice", LastAmount: "100", HasBid: true,
		FinalPending: true, Running: true, Sessions: 2, Bidders: []string{"alice", "bob"},
	}}
	w := get(t, newRouter(src, nil), "/auction")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got auction.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, src.st, got)
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.SessionOpened()
	m.BidRecorded()
	m.BidRecorded()

	w := get(t, newRouter(&fixedSource{}, m), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.SessionsActive)
	assert.Equal(t, int64(2), snap.Bids)
}

func TestMetrics_NilCollector(t *testing.T) {
	w := get(t, newRouter(&fixedSource{}, nil), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newRouter(&fixedSource{}, nil), "/nope").Code)
}

func TestServer_StartShutdown(t *testing.T) {
	logger := util.NewLogger(int(util.LogQuiet))
	srv := &Server{
		Address: "127.0.0.1:0",
		Handler: NewHandler(&fixedSource{st: auction.State{Running: true}}, nil, logger),
		Logger:  logger,
	}
	require.NoError(t, srv.Start())

	resp, err := http.Get(fmt.Sprintf("http://%s/readyz", srv.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx), "second Shutdown is a no-op")

	_, err = http.Get(fmt.Sprintf("http://%s/livez", srv.Addr()))
	assert.Error(t, err)
}

func TestServer_BindFailure(t *testing.T) {
	logger := util.NewLogger(int(util.LogQuiet))
	first := &Server{Address: "127.0.0.1:0", Handler: NewHandler(&fixedSource{}, nil, logger), Logger: logger}
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background()) //nolint:errcheck

	second := &Server{Address: first.Addr().String(), Handler: NewHandler(&fixedSource{}, nil, logger), Logger: logger}
	assert.Error(t, second.Start())
}
