// Copyright (c) 2025 Neomantra Corp
//
// Wires the decoder, book, and pricer into the single-producer/single-
// consumer discipline: for the i-th non-Ignored input message, the i-th
// output pair corresponds to the book state immediately after that message
// was applied. Internal processing is non-blocking; the only suspension
// points are the input read and the output write.

package pipeline

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	segjson "github.com/segmentio/encoding/json"

	"github.com/neomantra/itch-blackscholes/book"
	"github.com/neomantra/itch-blackscholes/pricer"

	itch "github.com/neomantra/itch-blackscholes"
)

// OutputMode selects the result stream's wire shape.
type OutputMode int

const (
	// OutputBinary writes 8 bytes little-endian per result: call then put,
	// each an IEEE-754 float32. This is the default and matches the packed
	// 64-bit word emitted by the reference implementation.
	OutputBinary OutputMode = iota
	// OutputText writes one "Call=<float>  Put=<float>" line per result,
	// %.6f formatted.
	OutputText
	// OutputJSON writes one JSON object per line: call, put, and the
	// book's bid/ask volume at the moment of pricing. A debug mode, not
	// part of the binary wire contract.
	OutputJSON
)

// Result is the JSON encoding of one priced message, used only by
// OutputJSON.
type Result struct {
	Call      float32     `json:"call"`
	Put       float32     `json:"put"`
	BidVolume itch.Shares `json:"bid_volume"`
	AskVolume itch.Shares `json:"ask_volume"`
}

// ErrFraming and ErrWrite let callers map a Run error to the exit codes of
// the CLI's contract: errors.Is(err, ErrFraming) means exit 2, and
// errors.Is(err, ErrWrite) means exit 3.
var (
	ErrFraming = errors.New("pipeline: fatal framing error")
	ErrWrite   = errors.New("pipeline: output write failure")
)

// Config configures a Run.
type Config struct {
	Params        pricer.Params
	OutputMode    OutputMode
	EmitOnIgnored bool // if true, emit a (0,0) pair for every Ignored message
	Logger        *slog.Logger
}

// Summary reports end-of-run counters for the CLI's summary line.
type Summary struct {
	Messages uint64 // non-Ignored messages priced
	Ignored  uint64
	DecodeWarnings uint64 // sum of the decoder's LengthMismatches and BadSides counters
}

// Run drains r frame-by-frame, applies each normalized message to a fresh
// Book, prices the resulting top-of-book, and writes one encoded result per
// non-Ignored message to w (or per every message when cfg.EmitOnIgnored is
// set). It returns once r reaches end-of-stream (EOF or a LEN==0 frame) or
// a fatal error occurs.
func Run(r io.Reader, w io.Writer, cfg Config) (Summary, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.Params.Validate(logger)

	dec := itch.NewDecoder(r, logger)
	bk := book.New()
	bw := bufio.NewWriter(w)

	var summary Summary
	for {
		msg, err := dec.Next()
		if err != nil {
			if errors.Is(err, itch.ErrEndOfStream) || errors.Is(err, io.EOF) {
				break
			}
			return summary, fmt.Errorf("%w: %v", ErrFraming, err)
		}

		tob := bk.Apply(msg)

		if msg.Kind == itch.KindIgnored {
			summary.Ignored++
			if !cfg.EmitOnIgnored {
				continue
			}
			if err := writeResult(bw, 0, 0, tob, cfg.OutputMode); err != nil {
				return summary, fmt.Errorf("%w: %v", ErrWrite, err)
			}
			continue
		}

		summary.Messages++
		spot := pricer.Spot(tob)
		call, put := pricer.Price(spot, cfg.Params)
		if err := writeResult(bw, call, put, tob, cfg.OutputMode); err != nil {
			return summary, fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}

	summary.DecodeWarnings = dec.Stats().LengthMismatches + dec.Stats().BadSides

	if err := bw.Flush(); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return summary, nil
}

func writeResult(w io.Writer, call, put float32, tob book.TopOfBook, mode OutputMode) error {
	switch mode {
	case OutputText:
		_, err := fmt.Fprintf(w, "Call=%.6f  Put=%.6f\n", call, put)
		return err
	case OutputJSON:
		encoded, err := segjson.Marshal(Result{Call: call, Put: put, BidVolume: tob.BidVolume, AskVolume: tob.AskVolume})
		if err != nil {
			return err
		}
		if _, err := w.Write(encoded); err != nil {
			return err
		}
		_, err = w.Write([]byte("\n"))
		return err
	default:
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(call))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(put))
		_, err := w.Write(buf[:])
		return err
	}
}
