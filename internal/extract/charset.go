package extract

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DecodeText converts a raw body to a UTF-8 string using the declared
// charset. An unknown charset falls back to UTF-8 and reports fallback=true
// so the caller can attach an extraction_fallback warning.
func DecodeText(body []byte, charset string) (text string, fallback bool) {
	name := strings.ToLower(strings.TrimSpace(charset))
	switch name {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return decodeUTF8(body), false
	case "utf-16", "utf-16le":
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), body)
	case "utf-16be":
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.UseBOM), body)
	case "latin1", "iso-8859-1":
		return decodeWith(charmap.ISO8859_1, body)
	case "windows-1252", "cp1252":
		return decodeWith(charmap.Windows1252, body)
	}

	if enc, err := htmlindex.Get(name); err == nil {
		return decodeWith(enc, body)
	}
	return decodeUTF8(body), true
}

func decodeWith(enc encoding.Encoding, body []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return decodeUTF8(body), true
	}
	return string(out), false
}

// decodeUTF8 strips a BOM, if present.
func decodeUTF8(body []byte) string {
	return string(bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF}))
}
