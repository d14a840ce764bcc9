package bytecode

// ---------------------------------------------------------------------------
// Per-function info block records
// ---------------------------------------------------------------------------

// ExceptionHandlerInfo describes one handler range: a fault at an offset in
// [Start, End) transfers control to Target. The compiler emits nested
// ranges after their enclosing ones, so within one function's table the
// last matching range is the innermost.
type ExceptionHandlerInfo struct {
	Start  uint32
	End    uint32
	Target uint32
}

// Covers reports whether the range contains the given bytecode offset.
func (e ExceptionHandlerInfo) Covers(offset uint32) bool {
	return e.Start <= offset && offset < e.End
}

// DebugOffsets locates a function's debug records inside the debug info
// region. SourceLocations is an offset into the debug location blob;
// LexicalData is reserved.
type DebugOffsets struct {
	SourceLocations uint32
	LexicalData     uint32
}

// DecodeDebugOffsets reads a DebugOffsets record from the start of b.
func DecodeDebugOffsets(b []byte) DebugOffsets {
	return DebugOffsets{
		SourceLocations: ReadUint32(b),
		LexicalData:     ReadUint32(b[4:]),
	}
}

// AppendDebugOffsets encodes a DebugOffsets record.
func AppendDebugOffsets(buf []byte, d DebugOffsets) []byte {
	buf = AppendUint32(buf, d.SourceLocations)
	return AppendUint32(buf, d.LexicalData)
}

// ExceptionTable is a zero-copy view over one function's handler records.
// The zero value is an empty table.
type ExceptionTable struct {
	data []byte
}

// NewExceptionTable views count records starting at the front of data.
func NewExceptionTable(data []byte, count uint32) ExceptionTable {
	return ExceptionTable{data: data[:count*ExceptionHandlerSize]}
}

// Len returns the number of handler records.
func (t ExceptionTable) Len() int { return len(t.data) / ExceptionHandlerSize }

// At decodes the i'th handler record.
func (t ExceptionTable) At(i int) ExceptionHandlerInfo {
	rec := t.data[i*ExceptionHandlerSize:]
	return ExceptionHandlerInfo{
		Start:  ReadUint32(rec),
		End:    ReadUint32(rec[4:]),
		Target: ReadUint32(rec[8:]),
	}
}

// ---------------------------------------------------------------------------
// Global table views
// ---------------------------------------------------------------------------

// IdentifierHashTable views the per-identifier hash array. Entries are
// parallel to the container's identifier strings in table order.
type IdentifierHashTable struct {
	data []byte
}

// NewIdentifierHashTable views count uint32 hashes at the front of data.
func NewIdentifierHashTable(data []byte, count uint32) IdentifierHashTable {
	return IdentifierHashTable{data: data[:count*4]}
}

// Len returns the number of identifier hashes.
func (t IdentifierHashTable) Len() int { return len(t.data) / 4 }

// At returns the i'th identifier hash.
func (t IdentifierHashTable) At(i int) uint32 { return ReadUint32(t.data[i*4:]) }

// RegExpTableEntry locates one compiled pattern in regexp storage.
type RegExpTableEntry struct {
	Offset uint32
	Length uint32
}

// RegExpTable views the regular expression descriptor table.
type RegExpTable struct {
	data []byte
}

// NewRegExpTable views count entries at the front of data.
func NewRegExpTable(data []byte, count uint32) RegExpTable {
	return RegExpTable{data: data[:count*RegExpEntrySize]}
}

// Len returns the number of regexp entries.
func (t RegExpTable) Len() int { return len(t.data) / RegExpEntrySize }

// At decodes the i'th regexp entry.
func (t RegExpTable) At(i int) RegExpTableEntry {
	rec := t.data[i*RegExpEntrySize:]
	return RegExpTableEntry{Offset: ReadUint32(rec), Length: ReadUint32(rec[4:])}
}

// CJSModuleEntry maps a module filename string ID to the function index
// implementing that module's top-level code. The table is unsorted.
type CJSModuleEntry struct {
	SymbolID   uint32
	FunctionID uint32
}

// CJSModuleTable views the CommonJS module pair table.
type CJSModuleTable struct {
	data []byte
}

// NewCJSModuleTable views count pairs at the front of data.
func NewCJSModuleTable(data []byte, count uint32) CJSModuleTable {
	return CJSModuleTable{data: data[:count*CJSModuleEntrySize]}
}

// Len returns the number of module pairs.
func (t CJSModuleTable) Len() int { return len(t.data) / CJSModuleEntrySize }

// At decodes the i'th module pair.
func (t CJSModuleTable) At(i int) CJSModuleEntry {
	rec := t.data[i*CJSModuleEntrySize:]
	return CJSModuleEntry{SymbolID: ReadUint32(rec), FunctionID: ReadUint32(rec[4:])}
}

// CJSStaticTable views the statically resolved module table: a flat vector
// of function indices, populated when OptionCJSResolvedStatically is set.
type CJSStaticTable struct {
	data []byte
}

// NewCJSStaticTable views count function indices at the front of data.
func NewCJSStaticTable(data []byte, count uint32) CJSStaticTable {
	return CJSStaticTable{data: data[:count*4]}
}

// Len returns the number of statically resolved modules.
func (t CJSStaticTable) Len() int { return len(t.data) / 4 }

// At returns the function index of the i'th statically resolved module.
func (t CJSStaticTable) At(i int) uint32 { return ReadUint32(t.data[i*4:]) }
