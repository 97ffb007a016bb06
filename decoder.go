// Copyright (c) 2025 Neomantra Corp

package itch

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
)

// DefaultScratchBufferSize is bigger than the largest recognized frame.
const DefaultScratchBufferSize = 64

// Stats counts decode anomalies, one bucket per kind, across the lifetime
// of a Decoder, purely for observability. ShortReads counts the fatal short
// reads Next returned as errors; the other buckets count recovered frames.
type Stats struct {
	ShortReads      uint64
	LengthMismatches uint64
	BadSides        uint64
}

// Decoder reads length-prefixed ITCH 5.0 frames from a byte stream and
// classifies each into a normalized Message. It is stateless with respect
// to book semantics: one call to Next consumes exactly one frame.
type Decoder struct {
	r       *bufio.Reader
	logger  *slog.Logger
	scratch []byte
	stats   Stats
	warned  map[byte]bool // logged-once-per-kind guard
}

// NewDecoder wraps r in a buffered frame decoder. A nil logger disables
// warning logs.
func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decoder{
		r:       bufio.NewReader(r),
		logger:  logger,
		scratch: make([]byte, DefaultScratchBufferSize),
		warned:  make(map[byte]bool),
	}
}

// Stats returns a snapshot of the decoder's anomaly counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Next reads one frame and returns its normalized Message. It returns
// ErrEndOfStream when a LEN==0 frame is read, io.EOF when the stream ends
// cleanly at a frame boundary, or an error matching ErrShortRead when a
// frame is cut short (fewer than LEN+2 bytes remain). Recognized types
// with inconsistent length or an invalid side byte are recovered locally:
// Next returns an Ignored message rather than an error.
func (d *Decoder) Next() (Message, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(d.r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, err
		}
		d.stats.ShortReads++
		return Message{}, errWrap(ErrShortRead, err)
	}
	frameLen := int(binary.BigEndian.Uint16(lenBuf[:]))
	if frameLen == 0 {
		return Message{}, ErrEndOfStream
	}

	if cap(d.scratch) < frameLen {
		d.scratch = make([]byte, frameLen)
	}
	payload := d.scratch[:frameLen]
	if _, err := io.ReadFull(d.r, payload); err != nil {
		d.stats.ShortReads++
		return Message{}, errWrap(ErrShortRead, err)
	}

	return d.classify(payload)
}

// classify dispatches on the type byte and decodes fixed-offset fields.
// Any inconsistency is absorbed into an Ignored message plus a counted,
// logged-once-per-kind warning; classify itself never errors.
func (d *Decoder) classify(payload []byte) (Message, error) {
	msgType := payload[0]
	switch msgType {
	case typeAddOrder:
		return d.decodeAdd(msgType, payload)
	case typeExecute:
		return d.decodeExecute(msgType, payload, lenExecute)
	case typeExecuteWithPrice:
		// ExecuteWithPrice normalizes to Execute: the matched price is
		// informational and irrelevant to book state.
		return d.decodeExecute(msgType, payload, lenExecuteWithPrice)
	case typeCancel:
		return d.decodeCancel(msgType, payload)
	case typeDelete:
		return d.decodeDelete(msgType, payload)
	case typeReplace:
		return d.decodeReplace(msgType, payload)
	default:
		return IgnoredMessage(msgType), nil
	}
}

func (d *Decoder) decodeAdd(msgType byte, payload []byte) (Message, error) {
	if len(payload) != lenAddOrder {
		d.warnLengthMismatch(msgType, lenAddOrder, len(payload))
		return IgnoredMessage(msgType), nil
	}
	side, ok := decodeSide(payload[offAddSide])
	if !ok {
		d.warnBadSide(msgType, payload[offAddSide])
		return IgnoredMessage(msgType), nil
	}
	ref := OrderRef(binary.BigEndian.Uint64(payload[offAddRef : offAddRef+8]))
	shares := Shares(binary.BigEndian.Uint32(payload[offAddShares : offAddShares+4]))
	price := Price(binary.BigEndian.Uint32(payload[offAddPrice : offAddPrice+4]))
	return AddMessage(ref, side, shares, price), nil
}

func (d *Decoder) decodeExecute(msgType byte, payload []byte, wantLen int) (Message, error) {
	if len(payload) != wantLen {
		d.warnLengthMismatch(msgType, wantLen, len(payload))
		return IgnoredMessage(msgType), nil
	}
	ref := OrderRef(binary.BigEndian.Uint64(payload[offExecRef : offExecRef+8]))
	shares := Shares(binary.BigEndian.Uint32(payload[offExecShares : offExecShares+4]))
	return ExecuteMessage(ref, shares), nil
}

func (d *Decoder) decodeCancel(msgType byte, payload []byte) (Message, error) {
	if len(payload) != lenCancel {
		d.warnLengthMismatch(msgType, lenCancel, len(payload))
		return IgnoredMessage(msgType), nil
	}
	ref := OrderRef(binary.BigEndian.Uint64(payload[offCancelRef : offCancelRef+8]))
	shares := Shares(binary.BigEndian.Uint32(payload[offCancelShares : offCancelShares+4]))
	return CancelMessage(ref, shares), nil
}

func (d *Decoder) decodeDelete(msgType byte, payload []byte) (Message, error) {
	if len(payload) != lenDelete {
		d.warnLengthMismatch(msgType, lenDelete, len(payload))
		return IgnoredMessage(msgType), nil
	}
	ref := OrderRef(binary.BigEndian.Uint64(payload[offDeleteRef : offDeleteRef+8]))
	return DeleteMessage(ref), nil
}

func (d *Decoder) decodeReplace(msgType byte, payload []byte) (Message, error) {
	if len(payload) != lenReplace {
		d.warnLengthMismatch(msgType, lenReplace, len(payload))
		return IgnoredMessage(msgType), nil
	}
	oldRef := OrderRef(binary.BigEndian.Uint64(payload[offReplaceOldRef : offReplaceOldRef+8]))
	newRef := OrderRef(binary.BigEndian.Uint64(payload[offReplaceNewRef : offReplaceNewRef+8]))
	shares := Shares(binary.BigEndian.Uint32(payload[offReplaceShares : offReplaceShares+4]))
	price := Price(binary.BigEndian.Uint32(payload[offReplacePrice : offReplacePrice+4]))
	return ReplaceMessage(oldRef, newRef, shares, price), nil
}

func decodeSide(b byte) (Side, bool) {
	switch b {
	case 'B':
		return SideBuy, true
	case 'S':
		return SideSell, true
	default:
		return SideUnknown, false
	}
}

func (d *Decoder) warnLengthMismatch(msgType byte, declared, got int) {
	d.stats.LengthMismatches++
	if d.warned[msgType] {
		return
	}
	d.warned[msgType] = true
	d.logger.Warn("itch: recognized type with inconsistent length, emitting Ignored",
		"type", string(msgType), "err", lengthMismatchError(msgType, declared, got))
}

func (d *Decoder) warnBadSide(msgType byte, got byte) {
	d.stats.BadSides++
	key := msgType ^ 0x80 // distinguish from length-mismatch warning on same type
	if d.warned[key] {
		return
	}
	d.warned[key] = true
	d.logger.Warn("itch: bad side byte, emitting Ignored",
		"type", string(msgType), "err", badSideError(msgType, got))
}

func errWrap(sentinel, cause error) error {
	if errors.Is(cause, io.EOF) {
		return sentinel
	}
	return &wrappedErr{sentinel: sentinel, cause: cause}
}

type wrappedErr struct {
	sentinel error
	cause    error
}

func (w *wrappedErr) Error() string { return w.sentinel.Error() + ": " + w.cause.Error() }
func (w *wrappedErr) Unwrap() error { return w.sentinel }
