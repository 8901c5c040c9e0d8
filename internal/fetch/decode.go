package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

// parseEncodings splits a Content-Encoding header into its codec list,
// lowercased, with identity entries dropped.
func parseEncodings(header string) []string {
	var out []string
	for _, part := range strings.Split(header, ",") {
		enc := strings.ToLower(strings.TrimSpace(part))
		if enc == "" || enc == "identity" {
			continue
		}
		out = append(out, enc)
	}
	return out
}

// decodeBody reverses the Content-Encoding codec chain. Codecs are applied in
// reverse of the order they were applied by the server, and every stage is
// bounded by maxBytes.
func decodeBody(body []byte, encodings []string, maxBytes int64) ([]byte, error) {
	for i := len(encodings) - 1; i >= 0; i-- {
		var err error
		body, err = decodeOne(body, encodings[i], maxBytes)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

func decodeOne(body []byte, encoding string, maxBytes int64) ([]byte, error) {
	var r io.Reader
	switch encoding {
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, werrors.Wrap(werrors.CodeDecompressionFailed, err)
		}
		defer gr.Close()
		r = gr
	case "deflate", "x-deflate":
		// Servers send both zlib-wrapped and raw deflate under this name.
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			r = flate.NewReader(bytes.NewReader(body))
		} else {
			defer zr.Close()
			r = zr
		}
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	default:
		return nil, werrors.Newf(werrors.CodeUnsupportedEncoding, "unsupported content encoding %q", encoding)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, werrors.Wrap(werrors.CodeDecompressionFailed, err)
	}
	if int64(len(out)) > maxBytes {
		return nil, werrors.Newf(werrors.CodeContentTooLarge, "decoded body exceeds %d bytes", maxBytes)
	}
	return out, nil
}
