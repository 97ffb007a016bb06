// Copyright (c) 2025 Neomantra Corp

package itch_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	itch "github.com/neomantra/itch-blackscholes"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestItch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "itch suite")
}

// frame builds a length-prefixed ITCH frame from a payload.
func frame(payload []byte) []byte {
	var buf bytes.Buffer
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)
	return buf.Bytes()
}

func addPayload(ref uint64, side byte, shares, price uint32) []byte {
	p := make([]byte, 36)
	p[0] = 'A'
	binary.BigEndian.PutUint64(p[11:19], ref)
	p[19] = side
	binary.BigEndian.PutUint32(p[20:24], shares)
	binary.BigEndian.PutUint32(p[32:36], price)
	return p
}

var _ = Describe("Decoder", func() {
	Context("Add", func() {
		It("decodes ref, side, shares, price at their documented offsets", func() {
			payload := addPayload(1, 'B', 100, 10000)
			dec := itch.NewDecoder(bytes.NewReader(frame(payload)), nil)
			msg, err := dec.Next()
			Expect(err).To(BeNil())
			Expect(msg.Kind).To(Equal(itch.KindAdd))
			Expect(msg.Ref).To(Equal(itch.OrderRef(1)))
			Expect(msg.Side).To(Equal(itch.SideBuy))
			Expect(msg.Shares).To(Equal(itch.Shares(100)))
			Expect(msg.Price).To(Equal(itch.Price(10000)))
		})

		It("emits Ignored on a bad side byte instead of erroring", func() {
			payload := addPayload(1, 'Z', 100, 10000)
			dec := itch.NewDecoder(bytes.NewReader(frame(payload)), nil)
			msg, err := dec.Next()
			Expect(err).To(BeNil())
			Expect(msg.Kind).To(Equal(itch.KindIgnored))
			Expect(dec.Stats().BadSides).To(Equal(uint64(1)))
		})

		It("emits Ignored on a length mismatch instead of erroring", func() {
			payload := addPayload(1, 'B', 100, 10000)[:30] // truncate the declared-length payload
			dec := itch.NewDecoder(bytes.NewReader(frame(payload)), nil)
			msg, err := dec.Next()
			Expect(err).To(BeNil())
			Expect(msg.Kind).To(Equal(itch.KindIgnored))
			Expect(dec.Stats().LengthMismatches).To(Equal(uint64(1)))
		})
	})

	Context("ExecuteWithPrice normalization", func() {
		It("normalizes 'C' to a plain Execute", func() {
			p := make([]byte, 36)
			p[0] = 'C'
			binary.BigEndian.PutUint64(p[11:19], 42)
			binary.BigEndian.PutUint32(p[19:23], 7)
			dec := itch.NewDecoder(bytes.NewReader(frame(p)), nil)
			msg, err := dec.Next()
			Expect(err).To(BeNil())
			Expect(msg.Kind).To(Equal(itch.KindExecute))
			Expect(msg.Ref).To(Equal(itch.OrderRef(42)))
			Expect(msg.DeltaShares).To(Equal(itch.Shares(7)))
		})
	})

	Context("unrecognized type", func() {
		It("normalizes to Ignored, preserving the raw type byte", func() {
			p := []byte{'S', 0, 0, 0, 0, 0, 0, 0, 0, 0}
			dec := itch.NewDecoder(bytes.NewReader(frame(p)), nil)
			msg, err := dec.Next()
			Expect(err).To(BeNil())
			Expect(msg.Kind).To(Equal(itch.KindIgnored))
			Expect(msg.RawType).To(Equal(byte('S')))
		})
	})

	Context("end of stream", func() {
		It("returns ErrEndOfStream on a LEN==0 frame followed by trailing bytes", func() {
			buf := append([]byte{0x00, 0x00}, []byte("trailing garbage")...)
			dec := itch.NewDecoder(bytes.NewReader(buf), nil)
			_, err := dec.Next()
			Expect(err).To(MatchError(itch.ErrEndOfStream))
		})

		It("surfaces a short read as an error rather than a malformed message", func() {
			// declares 36 bytes but only 5 are present
			p := make([]byte, 2+5)
			binary.BigEndian.PutUint16(p[0:2], 36)
			dec := itch.NewDecoder(bytes.NewReader(p), nil)
			_, err := dec.Next()
			Expect(err).ToNot(BeNil())
			Expect(err).ToNot(MatchError(itch.ErrEndOfStream))
		})

		It("surfaces a clean io.EOF at a frame boundary", func() {
			dec := itch.NewDecoder(bytes.NewReader(nil), nil)
			_, err := dec.Next()
			Expect(err).To(MatchError(io.EOF))
		})
	})
})

func TestDecodeOffsetTable(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    itch.MessageKind
	}{
		{
			name:    "Execute",
			payload: func() []byte { p := make([]byte, 31); p[0] = 'E'; binary.BigEndian.PutUint64(p[11:19], 9); binary.BigEndian.PutUint32(p[19:23], 5); return p }(),
			want:    itch.KindExecute,
		},
		{
			name:    "Cancel",
			payload: func() []byte { p := make([]byte, 23); p[0] = 'X'; binary.BigEndian.PutUint64(p[11:19], 9); binary.BigEndian.PutUint32(p[19:23], 5); return p }(),
			want:    itch.KindCancel,
		},
		{
			name:    "Delete",
			payload: func() []byte { p := make([]byte, 19); p[0] = 'D'; binary.BigEndian.PutUint64(p[11:19], 9); return p }(),
			want:    itch.KindDelete,
		},
		{
			name: "Replace",
			payload: func() []byte {
				p := make([]byte, 35)
				p[0] = 'U'
				binary.BigEndian.PutUint64(p[11:19], 1)
				binary.BigEndian.PutUint64(p[19:27], 2)
				binary.BigEndian.PutUint32(p[27:31], 50)
				binary.BigEndian.PutUint32(p[31:35], 10500)
				return p
			}(),
			want: itch.KindReplace,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := itch.NewDecoder(bytes.NewReader(frame(tt.payload)), nil)
			msg, err := dec.Next()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Kind != tt.want {
				t.Fatalf("got kind %v, want %v", msg.Kind, tt.want)
			}
		})
	}
}
