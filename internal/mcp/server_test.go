package mcp

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/config"
	"github.com/fyrsmithlabs/webfetchd/internal/fetch"
	"github.com/fyrsmithlabs/webfetchd/internal/normalize"
	"github.com/fyrsmithlabs/webfetchd/internal/ratelimit"
	"github.com/fyrsmithlabs/webfetchd/internal/resource"
	"github.com/fyrsmithlabs/webfetchd/internal/robots"
	"github.com/fyrsmithlabs/webfetchd/internal/ssrf"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

func testDeps(t *testing.T) (*config.Config, *fetch.Fetcher, *normalize.Normalizer, *resource.Store) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	fetcher := fetch.New(ssrf.New(nil), ratelimit.New(60), robots.New(nil, nil), time.Minute, nil)
	return cfg, fetcher, normalize.New(nil), resource.NewStore(10, time.Minute)
}

func TestNewServer(t *testing.T) {
	cfg, fetcher, normalizer, store := testDeps(t)

	s, err := NewServer(ServerConfig{Name: "webfetchd", Version: "test", Config: cfg}, fetcher, normalizer, store)
	require.NoError(t, err)
	assert.NotNil(t, s.Metrics())
	assert.Same(t, store, s.Store())
}

func TestNewServerMissingDeps(t *testing.T) {
	cfg, fetcher, normalizer, store := testDeps(t)

	_, err := NewServer(ServerConfig{Config: nil}, fetcher, normalizer, store)
	assert.ErrorContains(t, err, "config")

	_, err = NewServer(ServerConfig{Config: cfg}, nil, normalizer, store)
	assert.ErrorContains(t, err, "fetcher")

	_, err = NewServer(ServerConfig{Config: cfg}, fetcher, nil, store)
	assert.ErrorContains(t, err, "normalizer")

	_, err = NewServer(ServerConfig{Config: cfg}, fetcher, normalizer, nil)
	assert.ErrorContains(t, err, "store")
}

func TestExtractRespectsPDFToggle(t *testing.T) {
	cfg, fetcher, normalizer, store := testDeps(t)
	cfg.PDFEnabled = false

	s, err := NewServer(ServerConfig{Name: "webfetchd", Version: "test", Config: cfg}, fetcher, normalizer, store)
	require.NoError(t, err)

	_, err = s.handleExtract(context.Background(), extractInput{
		RawBytes:    base64.StdEncoding.EncodeToString([]byte("%PDF-1.4\nfake body")),
		ContentType: "application/pdf",
	})
	require.Error(t, err)
	assert.Equal(t, werrors.CodeExtractionFailed, werrors.CodeOf(err))
	assert.ErrorContains(t, err, "disabled")
}

func TestMetricsRecording(t *testing.T) {
	m := NewMetrics()
	require.NotNil(t, m.Registry())

	// Recording must not panic and the registry must gather cleanly.
	m.RecordFetch("ok")
	m.RecordInvocation("webfetch_fetch", 120*time.Millisecond, nil)
	m.IncrementActive()
	m.DecrementActive()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["webfetchd_fetch_total"])
	assert.True(t, names["webfetchd_tool_invocations_total"])
	assert.True(t, names["webfetchd_tool_duration_seconds"])
}
