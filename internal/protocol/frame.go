package protocol

import (
	"bytes"
	"io"
)

// ReadFrame reads one frame from r into buf and returns its text. A
// frame is whatever a single read delivers, cut at the first newline or
// NUL byte — the legacy framing: one request per wake, no length prefix.
// io.EOF is returned untouched so callers can run the crash path.
func ReadFrame(r io.Reader, buf []byte) (string, error) {
	n, err := r.Read(buf)
	if n == 0 && err != nil {
		return "", err
	}

	frame := buf[:n]
	if i := bytes.IndexAny(frame, "\n\x00"); i >= 0 {
		frame = frame[:i]
	}
	return string(bytes.TrimSuffix(frame, []byte("\r"))), nil
}

// WriteFrame writes msg to w in full.
func WriteFrame(w io.Writer, msg string) error {
	_, err := io.WriteString(w, msg)
	return err
}
