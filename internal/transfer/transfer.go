// Package transfer wraps upload and download byte streams with a progress
// indicator and a rolling checksum, verifying the payload against declared
// expectations once the stream ends.
package transfer

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	digest "github.com/opencontainers/go-digest"

	"github.com/imgapi/imgapi-cli/internal/cmderr"
)

// Options configure one transfer session.
type Options struct {
	// Algorithm names the checksum to accumulate: "sha1", "md5", or any
	// algorithm registered with go-digest ("sha256", "sha512").
	Algorithm string
	// ExpectedDigest is the hex digest the payload must hash to, verified
	// by Finish. An "algorithm:hex" form is accepted and must agree with
	// Algorithm. Empty skips digest verification.
	ExpectedDigest string
	// ExpectedSize is the declared payload length in bytes, verified by
	// Finish. Negative means unknown.
	ExpectedSize int64
	// Label prefixes the progress line.
	Label string
	// Progress receives the indicator; nil disables it.
	Progress io.Writer
	// Quiet disables the indicator even on a terminal.
	Quiet bool
}

// Session is one file transfer: bytes observed so far, the running
// checksum, and the optional progress display. A session is finalized
// exactly once; Finish is idempotent.
type Session struct {
	hash     hash.Hash
	algo     string
	expected string
	size     int64
	n        int64
	progress *Progress
	finished bool
}

// New creates a transfer session from opts.
func New(opts Options) (*Session, error) {
	algo := opts.Algorithm
	if algo == "" {
		algo = "sha1"
	}
	h, err := newHash(algo)
	if err != nil {
		return nil, err
	}
	expected := opts.ExpectedDigest
	if i := strings.IndexByte(expected, ':'); i >= 0 {
		if expected[:i] != algo {
			return nil, fmt.Errorf("expected digest algorithm %q does not match %q",
				expected[:i], algo)
		}
		expected = expected[i+1:]
	}
	s := &Session{
		hash:     h,
		algo:     algo,
		expected: expected,
		size:     opts.ExpectedSize,
	}
	if opts.Progress != nil {
		s.progress = NewProgress(opts.Progress, opts.Label, opts.ExpectedSize, opts.Quiet)
	}
	return s, nil
}

func newHash(algo string) (hash.Hash, error) {
	switch algo {
	case "sha1":
		return sha1.New(), nil
	case "md5":
		return md5.New(), nil
	default:
		a := digest.Algorithm(algo)
		if !a.Available() {
			return nil, fmt.Errorf("unsupported checksum algorithm %q", algo)
		}
		return a.Hash(), nil
	}
}

// Reader wraps r so every chunk read through it is observed by the
// session.
func (s *Session) Reader(r io.Reader) io.Reader {
	return &sessionReader{s: s, r: r}
}

// Writer wraps w so every chunk written through it is observed by the
// session.
func (s *Session) Writer(w io.Writer) io.Writer {
	return &sessionWriter{s: s, w: w}
}

func (s *Session) observe(p []byte) {
	s.hash.Write(p)
	s.n += int64(len(p))
	if s.progress != nil {
		s.progress.Add(len(p))
	}
}

// Size returns the byte count observed so far.
func (s *Session) Size() int64 { return s.n }

// Digest returns the hex digest of everything observed so far.
func (s *Session) Digest() string {
	return hex.EncodeToString(s.hash.Sum(nil))
}

// Finish finalizes the session and verifies the observed payload against
// the declared size and digest. It runs the verification at most once:
// subsequent calls return nil even when the underlying stream fires
// multiple terminal events.
func (s *Session) Finish() error {
	if s.finished {
		return nil
	}
	s.finished = true
	if s.progress != nil {
		s.progress.Done()
	}
	if s.size >= 0 && s.n != s.size {
		return cmderr.SizeMismatch(s.size, s.n)
	}
	if s.expected != "" {
		if actual := s.Digest(); actual != s.expected {
			return cmderr.Checksum(s.algo, s.expected, actual)
		}
	}
	return nil
}

// CheckDigest compares an externally declared digest (for example, the
// one the server reports after an upload) against the session's digest.
// Accepts hex or "algorithm:hex".
func (s *Session) CheckDigest(declared string) error {
	expected := declared
	if i := strings.IndexByte(expected, ':'); i >= 0 {
		expected = expected[i+1:]
	}
	if actual := s.Digest(); actual != expected {
		return cmderr.Checksum(s.algo, expected, actual)
	}
	return nil
}

type sessionReader struct {
	s *Session
	r io.Reader
}

func (sr *sessionReader) Read(p []byte) (int, error) {
	n, err := sr.r.Read(p)
	if n > 0 {
		sr.s.observe(p[:n])
	}
	return n, err
}

type sessionWriter struct {
	s *Session
	w io.Writer
}

func (sw *sessionWriter) Write(p []byte) (int, error) {
	n, err := sw.w.Write(p)
	if n > 0 {
		sw.s.observe(p[:n])
	}
	return n, err
}
