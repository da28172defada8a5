package mcstatus

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// Protocol varints: 32-bit two's complement, LEB128, at most 5 bytes.

func writeVarInt(buf *bytes.Buffer, v int32) {
	u := uint32(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if u == 0 {
			return
		}
	}
}

var errVarIntTooLong = errors.New("varint longer than 5 bytes")

func readVarInt(r io.ByteReader) (int32, error) {
	var out uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		out |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(out), nil
		}
	}
	return 0, errVarIntTooLong
}

func newByteReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}
