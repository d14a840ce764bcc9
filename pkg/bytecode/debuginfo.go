package bytecode

import "fmt"

// ---------------------------------------------------------------------------
// Debug Info Region
// ---------------------------------------------------------------------------

// Debug info region layout, located by the header's DebugInfoOffset:
//
//	[fileCount:4] fileCount x [len:4 | utf8 bytes]   filename table
//	[dataSize:4]  [location blob]
//
// A function's DebugOffsets.SourceLocations is an offset into the location
// blob. At that offset:
//
//	[fileID:4] [entryCount:4] entryCount x [address:4 | line:4 | column:4]
//
// Entries are sorted by address. A lookup returns the entry with the
// largest address not past the queried offset.

// SourceLocation is a resolved source position for a bytecode address.
type SourceLocation struct {
	Filename string
	Line     uint32 // 1-based
	Column   uint32 // 1-based
}

// String formats the location as filename:line:column.
func (s SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
}

// DebugInfo is the decoded debug region of a container. It is constructed
// at most once per container, on first use, and immutable afterwards.
type DebugInfo struct {
	files []string
	blob  []byte
}

// ParseDebugInfo decodes the debug region. data must start at the
// container's DebugInfoOffset and end at the nominal file length.
func ParseDebugInfo(data []byte) (*DebugInfo, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: missing file table", ErrCorruptDebugInfo)
	}
	fileCount := ReadUint32(data)
	pos := uint64(4)

	// Each filename needs at least its 4-byte length prefix, so the count
	// is bounded by the region size before anything is allocated.
	if uint64(fileCount)*4 > uint64(len(data))-pos {
		return nil, fmt.Errorf("%w: file count %d exceeds region size", ErrCorruptDebugInfo, fileCount)
	}

	files := make([]string, fileCount)
	for i := range files {
		if pos+4 > uint64(len(data)) {
			return nil, fmt.Errorf("%w: truncated filename %d", ErrCorruptDebugInfo, i)
		}
		n := uint64(ReadUint32(data[pos:]))
		pos += 4
		if pos+n > uint64(len(data)) {
			return nil, fmt.Errorf("%w: truncated filename %d", ErrCorruptDebugInfo, i)
		}
		files[i] = string(data[pos : pos+n])
		pos += n
	}

	if pos+4 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: missing location blob size", ErrCorruptDebugInfo)
	}
	size := uint64(ReadUint32(data[pos:]))
	pos += 4
	if pos+size > uint64(len(data)) {
		return nil, fmt.Errorf("%w: location blob extends past region", ErrCorruptDebugInfo)
	}

	return &DebugInfo{files: files, blob: data[pos : pos+size]}, nil
}

// FileCount returns the number of filenames in the debug region.
func (d *DebugInfo) FileCount() int { return len(d.files) }

// FileAt returns the i'th filename.
func (d *DebugInfo) FileAt(i int) string { return d.files[i] }

// LookupLocation resolves the source location for a bytecode address inside
// the function whose debug records start at offsets.SourceLocations.
// Returns false when the function has no record covering the address or
// the offsets point outside the blob.
func (d *DebugInfo) LookupLocation(offsets DebugOffsets, address uint32) (SourceLocation, bool) {
	start := uint64(offsets.SourceLocations)
	if start+8 > uint64(len(d.blob)) {
		return SourceLocation{}, false
	}
	fileID := ReadUint32(d.blob[start:])
	count := uint64(ReadUint32(d.blob[start+4:]))
	entries := start + 8
	if entries+count*12 > uint64(len(d.blob)) || int(fileID) >= len(d.files) {
		return SourceLocation{}, false
	}

	// Entries are address-sorted; take the last one at or before address.
	found := false
	var loc SourceLocation
	for i := uint64(0); i < count; i++ {
		rec := d.blob[entries+i*12:]
		addr := ReadUint32(rec)
		if addr > address {
			break
		}
		loc = SourceLocation{
			Filename: d.files[fileID],
			Line:     ReadUint32(rec[4:]),
			Column:   ReadUint32(rec[8:]),
		}
		found = true
	}
	return loc, found
}
