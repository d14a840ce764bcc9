package bytecode

// ---------------------------------------------------------------------------
// String Table Entries
// ---------------------------------------------------------------------------

// Compact string entry layout, one uint32 per string:
//
//	bit  0      isUTF16
//	bit  1      isIdentifier
//	bits 2-24   offset into string storage (23 bits)
//	bits 25-31  byte length (7 bits)
//
// A length field of overflowStringLength marks an overflowed entry: the
// offset field is then an index into the overflow table, which holds the
// full-width offset and length. The flag bits always come from the compact
// slot, overflowed or not.
const (
	stringEntryUTF16      = 1 << 0
	stringEntryIdentifier = 1 << 1
	stringOffsetShift     = 2
	stringLengthShift     = 25

	// MaxSmallStringOffset is the widest offset a compact entry can hold.
	MaxSmallStringOffset = 1<<23 - 1

	// MaxSmallStringLength is the longest byte length a compact entry can
	// hold; one value of the 7-bit field is reserved as the overflow mark.
	MaxSmallStringLength = 1<<7 - 2

	overflowStringLength = 1<<7 - 1
)

// StringTableEntry is the logical descriptor of one string: a byte range in
// string storage plus its encoding and identifier flags. Offsets and
// lengths are in bytes; UTF-16 strings occupy an even number of bytes.
type StringTableEntry struct {
	Offset       uint32
	Length       uint32
	IsUTF16      bool
	IsIdentifier bool
}

// DecodeStringEntry resolves the logical descriptor for string index i.
// smallTable is the compact table region and overflowTable the region
// immediately after it. The index must be within the declared string
// count; that is validated once at container construction, not here.
func DecodeStringEntry(smallTable, overflowTable []byte, i uint32) StringTableEntry {
	slot := ReadUint32(smallTable[i*SmallStringEntrySize:])

	entry := StringTableEntry{
		IsUTF16:      slot&stringEntryUTF16 != 0,
		IsIdentifier: slot&stringEntryIdentifier != 0,
	}

	length := slot >> stringLengthShift
	if length == overflowStringLength {
		// The compact offset field is an overflow table index.
		idx := (slot >> stringOffsetShift) & MaxSmallStringOffset
		rec := overflowTable[idx*OverflowStringEntrySize:]
		entry.Offset = ReadUint32(rec)
		entry.Length = ReadUint32(rec[4:])
		return entry
	}

	entry.Offset = (slot >> stringOffsetShift) & MaxSmallStringOffset
	entry.Length = length
	return entry
}

// AppendSmallStringEntry encodes a compact, non-overflowed entry. The
// caller must have checked the offset and length against the compact
// widths.
func AppendSmallStringEntry(buf []byte, e StringTableEntry) []byte {
	slot := e.Offset<<stringOffsetShift | e.Length<<stringLengthShift
	if e.IsUTF16 {
		slot |= stringEntryUTF16
	}
	if e.IsIdentifier {
		slot |= stringEntryIdentifier
	}
	return AppendUint32(buf, slot)
}

// AppendOverflowStringSlot encodes the compact slot for an overflowed
// string: the length field carries the overflow mark and the offset field
// holds the overflow table index. The flags still describe the string.
func AppendOverflowStringSlot(buf []byte, overflowIndex uint32, isUTF16, isIdentifier bool) []byte {
	slot := overflowIndex<<stringOffsetShift | uint32(overflowStringLength)<<stringLengthShift
	if isUTF16 {
		slot |= stringEntryUTF16
	}
	if isIdentifier {
		slot |= stringEntryIdentifier
	}
	return AppendUint32(buf, slot)
}

// AppendOverflowStringEntry encodes one full-width overflow record.
func AppendOverflowStringEntry(buf []byte, offset, length uint32) []byte {
	buf = AppendUint32(buf, offset)
	return AppendUint32(buf, length)
}

// StringFitsSmall reports whether a string at the given storage offset and
// byte length can use the compact form.
func StringFitsSmall(offset, length uint32) bool {
	return offset <= MaxSmallStringOffset && length <= MaxSmallStringLength
}
