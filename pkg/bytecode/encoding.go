package bytecode

import "encoding/binary"

// All multi-byte fields in a container are little-endian.

// ReadUint16 reads a little-endian uint16 from the start of b.
func ReadUint16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

// ReadUint32 reads a little-endian uint32 from the start of b.
func ReadUint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// ReadUint64 reads a little-endian uint64 from the start of b.
func ReadUint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// AppendUint16 appends a little-endian uint16 to buf.
func AppendUint16(buf []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(buf, v)
}

// AppendUint32 appends a little-endian uint32 to buf.
func AppendUint32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

// AppendUint64 appends a little-endian uint64 to buf.
func AppendUint64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}
