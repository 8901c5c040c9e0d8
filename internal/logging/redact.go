package logging

import (
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

// URL creates a field with any userinfo stripped from the value. Fetched
// URLs can carry embedded credentials and must never reach the logs intact.
func URL(key, raw string) zap.Field {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return zap.String(key, raw)
	}
	u.User = nil
	return zap.String(key, u.String())
}

// RedactedString creates a field carrying only the value's length.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}
