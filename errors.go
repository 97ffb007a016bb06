// Copyright (c) 2025 Neomantra Corp

package itch

import "fmt"

var (
	// ErrShortRead means fewer than LEN+2 bytes were available for a frame.
	// Fatal: the caller should terminate the stream.
	ErrShortRead = fmt.Errorf("itch: short read")

	// ErrEndOfStream means a LEN==0 frame was observed. Not an error
	// condition by itself; callers check for it via errors.Is.
	ErrEndOfStream = fmt.Errorf("itch: end of stream")
)

// lengthMismatchError and badSideError are recovered locally by the decoder
// (normalized to Ignored); they are returned from internal helpers only so
// the decoder can log them once per kind.

func lengthMismatchError(msgType byte, declared, got int) error {
	return fmt.Errorf("itch: length mismatch for type %q: declared %d, frame carried %d", msgType, declared, got)
}

func badSideError(msgType byte, got byte) error {
	return fmt.Errorf("itch: bad side byte %q for type %q", got, msgType)
}
