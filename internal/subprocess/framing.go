package subprocess

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

// maxFrameSize caps the Content-Length a peer may declare. A larger value is
// treated as a framing error rather than an allocation request.
const maxFrameSize = 64 * 1024 * 1024 // 64MB

const contentLengthHeader = "content-length"

// writeFrame writes one Content-Length framed JSON message.
//
// The header and payload are written in a single Write call so that
// concurrent writers guarded by a mutex never interleave partial frames.
func writeFrame(w io.Writer, f *rpc.Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	buf := make([]byte, 0, len(payload)+32)
	buf = append(buf, "Content-Length: "...)
	buf = strconv.AppendInt(buf, int64(len(payload)), 10)
	buf = append(buf, "\r\n\r\n"...)
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

// readFrame reads one Content-Length framed JSON message.
//
// Header names are matched case-insensitively; headers other than
// Content-Length are ignored. Returns io.EOF only on a clean end-of-stream
// between frames.
func readFrame(r *bufio.Reader) (*rpc.Frame, error) {
	contentLength := -1

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && contentLength < 0 {
				return nil, io.EOF
			}

			return nil, fmt.Errorf("read frame header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			// Blank line ends the header block.
			break
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed frame header %q", line)
		}

		if strings.ToLower(strings.TrimSpace(name)) != contentLengthHeader {
			continue
		}

		contentLength, err = strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("parse Content-Length: %w", err)
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("frame missing Content-Length header")
	}

	if contentLength > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit of %d", contentLength, maxFrameSize)
	}

	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	var frame rpc.Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}

	return &frame, nil
}
