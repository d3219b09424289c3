package ipc

import (
	"bufio"
	"bytes"
)

// readFrame reads one newline-delimited payload. A final payload without a
// trailing newline comes back together with io.EOF.
func readFrame(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	return bytes.TrimRight(line, "\r\n"), err
}

// writeFrame writes payload and a newline, then flushes.
func writeFrame(w *bufio.Writer, payload []byte) error {
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}

func isBlank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}
