// Package urlutil provides URL canonicalization and parsed views used by the
// fetcher and the normalizer. Canonicalization strips tracking parameters,
// sorts remaining query keys, lowercases the host, and trims default ports
// and trailing slashes.
package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are removed from the query string during normalization.
// Keys are matched case-insensitively; "utm_" and "mc_" match as prefixes.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"dclid":    {},
	"gbraid":   {},
	"wbraid":   {},
	"msclkid":  {},
	"yclid":    {},
	"igshid":   {},
	"_ga":      {},
	"_gl":      {},
	"ref":      {},
	"ref_src":  {},
	"click_id": {},
	"clickid":  {},
	"spm":      {},
	"s_kwcid":  {},
	"mkt_tok":  {},
}

var trackingPrefixes = []string{"utm_", "mc_"}

// isTrackingParam reports whether a query key is a known tracking parameter.
func isTrackingParam(key string) bool {
	k := strings.ToLower(key)
	if _, ok := trackingParams[k]; ok {
		return true
	}
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(k, p) {
			return true
		}
	}
	return false
}

// Normalize canonicalizes a URL: tracking parameters stripped, query keys
// sorted, host lowercased, default port removed, trailing slash trimmed
// unless the path is "/". Invalid URLs are returned unchanged. The result is
// idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isTrackingParam(key) {
				q.Del(key)
			}
		}
		u.RawQuery = encodeSorted(q)
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	u.Fragment = ""
	return u.String()
}

// encodeSorted renders query values with keys in ascending order.
func encodeSorted(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// IsAllowedProtocol reports whether the URL uses http or https.
func IsAllowedProtocol(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Hostname returns the lowercased host of a URL without the port.
// ok is false for unparsable URLs or URLs without a host.
func Hostname(raw string) (host string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Hostname()), true
}

// Origin returns scheme://host[:port] with the host lowercased.
// ok is false for unparsable URLs or URLs without scheme or host.
func Origin(raw string) (origin string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + strings.ToLower(u.Host), true
}
