package ipc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ReadChunkSize bounds a single peer read; each chunk is one message.
const ReadChunkSize = 1024

var ErrInvalidState = errors.New("invalid state code")

// EncodeState renders an outbound state code as base-10 text plus newline.
func EncodeState(value int) []byte {
	out := strconv.AppendInt(nil, int64(value), 10)
	return append(out, '\n')
}

// ParseState decodes one inbound chunk as a non-negative base-10 integer.
//
// Surrounding ASCII whitespace is ignored, so both "1" and "1\n" decode.
// No partial-line buffering happens: a chunk holding "1\n2\n" is invalid.
func ParseState(chunk []byte) (int, error) {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("%w: empty payload", ErrInvalidState)
	}

	value, err := strconv.Atoi(string(trimmed))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, trimmed)
	}
	if value < 0 {
		return 0, fmt.Errorf("%w: negative value %d", ErrInvalidState, value)
	}
	return value, nil
}
