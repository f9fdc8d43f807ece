package muxer

import (
	"bytes"
	"encoding/binary"
)

// box appends a complete ISOBMFF box (4-byte big-endian size, 4-byte
// fourcc, payload) to buf.
func box(buf *bytes.Buffer, fourcc string, payload []byte) {
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], uint32(8+len(payload)))
	buf.Write(sizeBuf[:])
	buf.WriteString(fourcc)
	buf.Write(payload)
}

// be32/be16 append big-endian integers to a byte slice, the idiom used
// throughout this package for building fixed-layout box payloads.
func be32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func be16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func be64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func ftypBox() []byte {
	var buf bytes.Buffer
	payload := make([]byte, 0, 16)
	payload = append(payload, []byte("isom")...) // major brand
	payload = be32(payload, 0x200)                // minor version
	payload = append(payload, []byte("isom")...)
	payload = append(payload, []byte("mp41")...)
	payload = append(payload, []byte("mp42")...)
	box(&buf, "ftyp", payload)
	return buf.Bytes()
}
