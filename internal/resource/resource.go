// Package resource is the in-process TTL store that backs the MCP resource
// surface: packets keyed by source id, exposed under webfetch:// URIs.
package resource

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/webfetchd/internal/cache"
	"github.com/fyrsmithlabs/webfetchd/internal/packet"
	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// Scheme is the resource URI scheme.
const Scheme = "webfetch"

// Kind is the resource view requested in a URI.
type Kind string

const (
	KindPacket     Kind = "packet"
	KindContent    Kind = "content"
	KindNormalized Kind = "normalized"
	KindScreenshot Kind = "screenshot"
)

// MimeType returns the fixed mime type for a resource kind.
func (k Kind) MimeType() string {
	switch k {
	case KindContent:
		return "text/markdown"
	case KindScreenshot:
		return "image/png"
	default:
		return "application/json"
	}
}

var validKinds = map[Kind]bool{
	KindPacket:     true,
	KindContent:    true,
	KindNormalized: true,
	KindScreenshot: true,
}

// URI identifies one stored resource view.
type URI struct {
	Kind     Kind
	SourceID string
}

func (u URI) String() string {
	return Scheme + "://" + string(u.Kind) + "/" + u.SourceID
}

// ParseURI parses a webfetch:// URI strictly: only this scheme, a kind from
// the closed set, exactly one path segment, and no user, port, query, or
// fragment parts.
func ParseURI(raw string) (URI, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URI{}, werrors.Wrap(werrors.CodeInvalidInput, err)
	}
	if u.Scheme != Scheme {
		return URI{}, werrors.Newf(werrors.CodeInvalidInput, "unsupported resource scheme %q", u.Scheme)
	}
	if u.User != nil || u.Port() != "" || u.RawQuery != "" || u.Fragment != "" {
		return URI{}, werrors.New(werrors.CodeInvalidInput, "resource URI must not carry user, port, query, or fragment parts")
	}
	kind := Kind(u.Hostname())
	if !validKinds[kind] {
		return URI{}, werrors.Newf(werrors.CodeInvalidInput, "unknown resource kind %q", u.Hostname())
	}
	sourceID := strings.TrimPrefix(u.Path, "/")
	if sourceID == "" || strings.Contains(sourceID, "/") {
		return URI{}, werrors.New(werrors.CodeInvalidInput, "resource URI must have exactly one path segment")
	}
	return URI{Kind: kind, SourceID: sourceID}, nil
}

// entry pairs a packet with its own expiry so List can prune lazily.
type entry struct {
	packet    *packet.Packet
	expiresAt time.Time
}

// Store holds packets by source id with a bounded capacity and TTL. Adding
// a new source id fires the registered list-changed callback.
type Store struct {
	mu       sync.Mutex
	cache    *cache.Cache[string, *entry]
	ttl      time.Duration
	onChange func()
	now      func() time.Time
}

// NewStore creates a store with the given capacity and TTL. Zero values
// fall back to 100 entries and 15 minutes.
func NewStore(capacity int, ttl time.Duration) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{
		cache: cache.New[string, *entry](capacity, ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

// OnListChanged registers the callback fired when a new source id appears.
// Callback panics are swallowed; notification is best effort.
func (s *Store) OnListChanged(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Set stores a packet and reports whether its source id was new.
func (s *Store) Set(p *packet.Packet) bool {
	s.mu.Lock()
	isNew := s.cache.Set(p.SourceID, &entry{
		packet:    p,
		expiresAt: s.now().Add(s.ttl),
	})
	fn := s.onChange
	s.mu.Unlock()

	if isNew && fn != nil {
		func() {
			defer func() { _ = recover() }()
			fn()
		}()
	}
	return isNew
}

// Get returns the packet for a source id.
func (s *Store) Get(sourceID string) (*packet.Packet, bool) {
	e, ok := s.cache.Get(sourceID)
	if !ok || s.now().After(e.expiresAt) {
		return nil, false
	}
	return e.packet, true
}

// List returns live packets ordered by retrieved_at descending, breaking
// ties by source id ascending. Expired entries are skipped.
func (s *Store) List() []*packet.Packet {
	now := s.now()
	var out []*packet.Packet
	for _, e := range s.cache.Values() {
		if now.After(e.expiresAt) {
			continue
		}
		out = append(out, e.packet)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RetrievedAt.Equal(out[j].RetrievedAt) {
			return out[i].RetrievedAt.After(out[j].RetrievedAt)
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out
}

// Resolve looks up the packet a parsed URI points at.
func (s *Store) Resolve(u URI) (*packet.Packet, error) {
	p, ok := s.Get(u.SourceID)
	if !ok {
		return nil, werrors.Newf(werrors.CodeResourceNotFound, "no stored packet for source id %q", u.SourceID)
	}
	return p, nil
}
