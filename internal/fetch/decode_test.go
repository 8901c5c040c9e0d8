package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/webfetchd/internal/werrors"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseEncodings(t *testing.T) {
	assert.Nil(t, parseEncodings(""))
	assert.Nil(t, parseEncodings("identity"))
	assert.Equal(t, []string{"gzip"}, parseEncodings("GZIP"))
	assert.Equal(t, []string{"gzip", "br"}, parseEncodings("gzip, br"))
	assert.Equal(t, []string{"deflate"}, parseEncodings(" identity , deflate "))
}

func TestDecodeOne(t *testing.T) {
	payload := []byte("hello compressed world, hello compressed world")

	t.Run("gzip", func(t *testing.T) {
		out, err := decodeOne(gzipBytes(t, payload), "gzip", 1<<20)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})

	t.Run("zlib deflate", func(t *testing.T) {
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		_, err := w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out, err := decodeOne(buf.Bytes(), "deflate", 1<<20)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})

	t.Run("raw deflate", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out, err := decodeOne(buf.Bytes(), "deflate", 1<<20)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})

	t.Run("brotli", func(t *testing.T) {
		var buf bytes.Buffer
		w := brotli.NewWriter(&buf)
		_, err := w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		out, err := decodeOne(buf.Bytes(), "br", 1<<20)
		require.NoError(t, err)
		assert.Equal(t, payload, out)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		_, err := decodeOne(payload, "zstd", 1<<20)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeUnsupportedEncoding, werrors.CodeOf(err))
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		_, err := decodeOne([]byte("definitely not gzip"), "gzip", 1<<20)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeDecompressionFailed, werrors.CodeOf(err))
	})

	t.Run("decoded size bounded", func(t *testing.T) {
		big := bytes.Repeat([]byte("A"), 4096)
		_, err := decodeOne(gzipBytes(t, big), "gzip", 100)
		require.Error(t, err)
		assert.Equal(t, werrors.CodeContentTooLarge, werrors.CodeOf(err))
	})
}

func TestDecodeBodyChain(t *testing.T) {
	payload := []byte("chained payload")
	// Server applied gzip first, then br on top.
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write(gzipBytes(t, payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := decodeBody(buf.Bytes(), []string{"gzip", "br"}, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}
