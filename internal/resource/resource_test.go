package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

func TestParseURI(t *testing.T) {
	u, err := ParseURI("webfetch://packet/abc123")
	require.NoError(t, err)
	assert.Equal(t, KindPacket, u.Kind)
	assert.Equal(t, "abc123", u.SourceID)
	assert.Equal(t, "webfetch://packet/abc123", u.String())

	for _, kind := range []Kind{KindPacket, KindContent, KindNormalized, KindScreenshot} {
		_, err := ParseURI("webfetch://" + string(kind) + "/deadbeef")
		assert.NoError(t, err, "kind %s", kind)
	}
}

func TestParseURIRejections(t *testing.T) {
	bad := []string{
		"https://packet/abc",
		"webfetch://bogus/abc",
		"webfetch://packet/",
		"webfetch://packet",
		"webfetch://packet/a/b",
		"webfetch://packet/abc?x=1",
		"webfetch://packet/abc#frag",
		"webfetch://packet:8080/abc",
		"webfetch://user@packet/abc",
	}
	for _, raw := range bad {
		_, err := ParseURI(raw)
		require.Error(t, err, "uri %q", raw)
		assert.Equal(t, werrors.CodeInvalidInput, werrors.CodeOf(err), "uri %q", raw)
	}
}

func TestKindMimeTypes(t *testing.T) {
	assert.Equal(t, "application/json", KindPacket.MimeType())
	assert.Equal(t, "text/markdown", KindContent.MimeType())
	assert.Equal(t, "application/json", KindNormalized.MimeType())
	assert.Equal(t, "image/png", KindScreenshot.MimeType())
}

func pkt(id string, retrieved time.Time) *packet.Packet {
	return &packet.Packet{SourceID: id, RetrievedAt: retrieved}
}

func TestStoreSetAndGet(t *testing.T) {
	s := NewStore(10, time.Minute)

	p := pkt("aaaa", time.Now())
	assert.True(t, s.Set(p))
	assert.False(t, s.Set(p), "same id is not new")

	got, ok := s.Get("aaaa")
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStoreListChangedCallback(t *testing.T) {
	s := NewStore(10, time.Minute)
	calls := 0
	s.OnListChanged(func() { calls++ })

	now := time.Now()
	s.Set(pkt("a1", now))
	s.Set(pkt("a2", now))
	s.Set(pkt("a1", now)) // update, not new
	assert.Equal(t, 2, calls)
}

func TestStoreCallbackPanicSwallowed(t *testing.T) {
	s := NewStore(10, time.Minute)
	s.OnListChanged(func() { panic("listener bug") })
	assert.NotPanics(t, func() { s.Set(pkt("a1", time.Now())) })
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(10, time.Minute)
	current := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Set(pkt("a1", current))
	_, ok := s.Get("a1")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = s.Get("a1")
	assert.False(t, ok, "expired entries are not returned")
	assert.Empty(t, s.List())
}

func TestStoreListOrdering(t *testing.T) {
	s := NewStore(10, time.Hour)
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	s.Set(pkt("older", base))
	s.Set(pkt("newest", base.Add(2*time.Minute)))
	s.Set(pkt("bbb", base.Add(time.Minute)))
	s.Set(pkt("aaa", base.Add(time.Minute)))

	got := s.List()
	require.Len(t, got, 4)
	ids := make([]string, len(got))
	for i, p := range got {
		ids[i] = p.SourceID
	}
	// Descending by retrieval time; ties break by source id ascending.
	assert.Equal(t, []string{"newest", "aaa", "bbb", "older"}, ids)
}

func TestStoreResolve(t *testing.T) {
	s := NewStore(10, time.Minute)
	p := pkt("a1", time.Now())
	s.Set(p)

	got, err := s.Resolve(URI{Kind: KindPacket, SourceID: "a1"})
	require.NoError(t, err)
	assert.Same(t, p, got)

	_, err = s.Resolve(URI{Kind: KindPacket, SourceID: "gone"})
	require.Error(t, err)
	assert.Equal(t, werrors.CodeResourceNotFound, werrors.CodeOf(err))
}

func TestStoreDefaults(t *testing.T) {
	s := NewStore(0, 0)
	assert.Equal(t, 15*time.Minute, s.ttl)
}
