package transfer

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
)

func sha1Hex(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

func TestReaderVerifiesDigestAndSize(t *testing.T) {
	payload := []byte("image file payload")
	s, err := New(Options{
		Algorithm:      "sha1",
		ExpectedDigest: sha1Hex(payload),
		ExpectedSize:   int64(len(payload)),
	})
	require.NoError(t, err)

	var sink bytes.Buffer
	_, err = io.Copy(&sink, s.Reader(bytes.NewReader(payload)))
	require.NoError(t, err)
	require.NoError(t, s.Finish())
	assert.Equal(t, payload, sink.Bytes())
	assert.Equal(t, int64(len(payload)), s.Size())
}

func TestWriterObservesChunks(t *testing.T) {
	payload := []byte("written in several chunks")
	s, err := New(Options{Algorithm: "sha1", ExpectedSize: -1})
	require.NoError(t, err)

	var sink bytes.Buffer
	w := s.Writer(&sink)
	for _, chunk := range [][]byte{payload[:5], payload[5:11], payload[11:]} {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}
	require.NoError(t, s.Finish())
	assert.Equal(t, sha1Hex(payload), s.Digest())
}

func TestChecksumMismatchReportedExactlyOnce(t *testing.T) {
	payload := []byte("corrupted in transit")
	s, err := New(Options{
		Algorithm:      "sha1",
		ExpectedDigest: sha1Hex([]byte("what the server promised")),
		ExpectedSize:   int64(len(payload)),
	})
	require.NoError(t, err)

	_, err = io.Copy(io.Discard, s.Reader(bytes.NewReader(payload)))
	require.NoError(t, err)

	// First terminal event surfaces the mismatch.
	err = s.Finish()
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cmderr.CodeChecksum, ce.Code)

	// A second terminal event (end then error, or error then close) must
	// not report it again.
	assert.NoError(t, s.Finish())
	assert.NoError(t, s.Finish())
}

func TestSizeMismatchDistinctFromChecksum(t *testing.T) {
	payload := []byte("short")
	s, err := New(Options{
		Algorithm:      "sha1",
		ExpectedDigest: sha1Hex(payload),
		ExpectedSize:   int64(len(payload)) + 100,
	})
	require.NoError(t, err)

	_, err = io.Copy(io.Discard, s.Reader(bytes.NewReader(payload)))
	require.NoError(t, err)

	err = s.Finish()
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cmderr.CodeSizeMismatch, ce.Code)
	assert.Contains(t, ce.Message, "105")
	assert.Contains(t, ce.Message, "5")
}

func TestPrefixedDigestForms(t *testing.T) {
	payload := []byte("sha256 payload")
	sum := sha256.Sum256(payload)
	s, err := New(Options{
		Algorithm:      "sha256",
		ExpectedDigest: "sha256:" + hex.EncodeToString(sum[:]),
		ExpectedSize:   -1,
	})
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, s.Reader(bytes.NewReader(payload)))
	require.NoError(t, err)
	require.NoError(t, s.Finish())

	// An algorithm/prefix disagreement is rejected up front.
	_, err = New(Options{Algorithm: "sha1", ExpectedDigest: "sha256:abcd"})
	require.Error(t, err)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := New(Options{Algorithm: "crc32"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crc32")
}

func TestCheckDigestForUploads(t *testing.T) {
	payload := []byte("uploaded data")
	s, err := New(Options{Algorithm: "sha1", ExpectedSize: -1})
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, s.Reader(bytes.NewReader(payload)))
	require.NoError(t, err)
	require.NoError(t, s.Finish())

	require.NoError(t, s.CheckDigest(sha1Hex(payload)))
	require.NoError(t, s.CheckDigest("sha1:"+sha1Hex(payload)))

	err = s.CheckDigest(strings.Repeat("0", 40))
	var ce *cmderr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, cmderr.CodeChecksum, ce.Code)
}

func TestProgressDisabledOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "x", 100, false)
	p.Add(50)
	p.Done()
	// Not a terminal, so nothing may be written.
	assert.Empty(t, buf.String())
}
