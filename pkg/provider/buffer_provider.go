package provider

import (
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/chazu/ripley/pkg/bytecode"
)

var log = commonlog.GetLogger("ripley.provider")

// ---------------------------------------------------------------------------
// BufferProvider: flat-buffer backed container
// ---------------------------------------------------------------------------

// BufferProvider interprets a complete container held in one contiguous
// immutable buffer. Construction validates the header and table bounds and
// locates every region; after that, all accessors are in-place reads with
// no decoding state.
type BufferProvider struct {
	buf  Buffer
	data []byte

	header bytecode.Header
	layout bytecode.Layout

	funcHeaders     []byte
	stringTable     []byte
	overflowStrings []byte
	identHashes     bytecode.IdentifierHashTable
	stringStorage   []byte
	arrayBuffer     []byte
	objKeyBuffer    []byte
	objValueBuffer  []byte
	regexpTable     bytecode.RegExpTable
	regexpStorage   []byte
	cjsModules      bytecode.CJSModuleTable
	cjsStatic       bytecode.CJSStaticTable

	// Debug info is the one lazily materialized piece of state: built at
	// most once, then read-only.
	debugOnce sync.Once
	debugInfo *bytecode.DebugInfo

	// Warmup worker state. warmupDone is non-nil while a worker runs.
	warmupMu    sync.Mutex
	warmupDone  chan struct{}
	warmupAbort atomic.Bool
}

// NewBufferProvider constructs a provider over buf, taking ownership of it.
// The buffer is fully validated first: a failure returns a descriptive
// error and no provider, never a partially initialized one. On failure the
// buffer is not released; it stays with the caller.
func NewBufferProvider(buf Buffer) (*BufferProvider, error) {
	data := buf.Data()

	h, err := bytecode.DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	layout := bytecode.ComputeLayout(h)
	if err := layout.Validate(h, len(data)); err != nil {
		return nil, err
	}

	p := &BufferProvider{
		buf:    buf,
		data:   data,
		header: *h,
		layout: layout,
	}

	p.funcHeaders = data[layout.FuncHeaders:layout.StringTable]
	p.stringTable = data[layout.StringTable:layout.OverflowStrings]
	p.overflowStrings = data[layout.OverflowStrings:layout.IdentifierHash]
	p.identHashes = bytecode.NewIdentifierHashTable(data[layout.IdentifierHash:], h.IdentifierCount)
	p.stringStorage = data[layout.StringStorage:layout.ArrayBuffer]
	p.arrayBuffer = data[layout.ArrayBuffer:layout.ObjKeyBuffer]
	p.objKeyBuffer = data[layout.ObjKeyBuffer:layout.ObjValueBuffer]
	p.objValueBuffer = data[layout.ObjValueBuffer:layout.RegExpTable]
	p.regexpTable = bytecode.NewRegExpTable(data[layout.RegExpTable:], h.RegExpCount)
	p.regexpStorage = data[layout.RegExpStorage:layout.CJSModules]
	p.cjsModules = bytecode.NewCJSModuleTable(data[layout.CJSModules:], h.CJSModuleCount)
	p.cjsStatic = bytecode.NewCJSStaticTable(data[layout.CJSModuleStatic:], h.CJSModuleStaticCount)

	return p, nil
}

// Close stops any running warmup worker, then releases the owned buffer.
// The provider must not be used afterwards.
func (p *BufferProvider) Close() {
	p.StopWarmup()
	if p.buf != nil {
		p.buf.Release()
		p.buf = nil
		p.data = nil
	}
}

// Header returns a copy of the parsed container header.
func (p *BufferProvider) Header() bytecode.Header { return p.header }

// BytecodeOptions returns the production flags from the header.
func (p *BufferProvider) BytecodeOptions() bytecode.BytecodeOptions { return p.header.Options }

// FunctionCount returns the number of functions in the container.
func (p *BufferProvider) FunctionCount() uint32 { return p.header.FunctionCount }

// GlobalFunctionIndex returns the function index of top-level code.
func (p *BufferProvider) GlobalFunctionIndex() uint32 { return p.header.GlobalCodeIndex }

// StringCount returns the number of string table entries.
func (p *BufferProvider) StringCount() uint32 { return p.header.StringCount }

// StringTableEntry resolves the logical descriptor for a string ID.
func (p *BufferProvider) StringTableEntry(id uint32) bytecode.StringTableEntry {
	return bytecode.DecodeStringEntry(p.stringTable, p.overflowStrings, id)
}

// StringStorage returns the raw string byte storage.
func (p *BufferProvider) StringStorage() []byte { return p.stringStorage }

// IdentifierHashes returns the per-identifier hash table.
func (p *BufferProvider) IdentifierHashes() bytecode.IdentifierHashTable { return p.identHashes }

// ArrayBuffer returns the array literal buffer.
func (p *BufferProvider) ArrayBuffer() []byte { return p.arrayBuffer }

// ObjectKeyBuffer returns the object literal key buffer.
func (p *BufferProvider) ObjectKeyBuffer() []byte { return p.objKeyBuffer }

// ObjectValueBuffer returns the object literal value buffer.
func (p *BufferProvider) ObjectValueBuffer() []byte { return p.objValueBuffer }

// RegExpTable returns the regular expression descriptor table.
func (p *BufferProvider) RegExpTable() bytecode.RegExpTable { return p.regexpTable }

// RegExpStorage returns the compiled regexp pattern storage.
func (p *BufferProvider) RegExpStorage() []byte { return p.regexpStorage }

// CJSModuleTable returns the filename-ID to function-index module table.
func (p *BufferProvider) CJSModuleTable() bytecode.CJSModuleTable { return p.cjsModules }

// CJSModuleTableStatic returns the statically resolved module table.
func (p *BufferProvider) CJSModuleTableStatic() bytecode.CJSStaticTable { return p.cjsStatic }

// FunctionHeader returns a tagged reference to the function's header. A
// compact slot with the overflowed flag set defers to the out-of-line large
// record it points at; the returned reference hides which shape was used.
func (p *BufferProvider) FunctionHeader(functionID uint32) bytecode.FunctionHeaderRef {
	slot := p.funcHeaders[functionID*bytecode.SmallFuncHeaderSize:]
	slot = slot[:bytecode.SmallFuncHeaderSize]
	if bytecode.SmallSlotOverflowed(slot) {
		return bytecode.NewLargeFunctionHeaderRef(p.data[bytecode.SmallSlotLargeOffset(slot):])
	}
	return bytecode.NewSmallFunctionHeaderRef(slot)
}

// Bytecode returns the function's raw instruction bytes.
func (p *BufferProvider) Bytecode(functionID uint32) []byte {
	hdr := p.FunctionHeader(functionID)
	start := hdr.BytecodeOffset()
	return p.data[start : start+hdr.BytecodeLength()]
}

// ExceptionTable returns the function's handler ranges.
func (p *BufferProvider) ExceptionTable(functionID uint32) bytecode.ExceptionTable {
	table, _ := p.exceptionTableAndDebugOffsets(functionID)
	return table
}

// DebugOffsets returns the function's debug offsets record, or nil.
func (p *BufferProvider) DebugOffsets(functionID uint32) *bytecode.DebugOffsets {
	_, offsets := p.exceptionTableAndDebugOffsets(functionID)
	return offsets
}

// exceptionTableAndDebugOffsets performs the joint info block lookup. The
// debug offsets record sits immediately after the exception table, so both
// are derived from one walk over the shared base offset.
func (p *BufferProvider) exceptionTableAndDebugOffsets(functionID uint32) (bytecode.ExceptionTable, *bytecode.DebugOffsets) {
	hdr := p.FunctionHeader(functionID)
	flags := hdr.Flags()
	if !flags.HasExceptionHandler() && !flags.HasDebugInfo() {
		return bytecode.ExceptionTable{}, nil
	}

	pos := uint64(hdr.InfoOffset())
	var table bytecode.ExceptionTable
	if flags.HasExceptionHandler() {
		count := bytecode.ReadUint32(p.data[pos:])
		table = bytecode.NewExceptionTable(p.data[pos+4:], count)
		pos += 4 + uint64(count)*bytecode.ExceptionHandlerSize
	}
	if !flags.HasDebugInfo() {
		return table, nil
	}
	offsets := bytecode.DecodeDebugOffsets(p.data[pos:])
	return table, &offsets
}

// DebugInfo returns the container's debug info, building it on first call.
// The build happens at most once even under concurrent first access.
func (p *BufferProvider) DebugInfo() *bytecode.DebugInfo {
	p.debugOnce.Do(func() {
		if p.header.DebugInfoOffset == 0 {
			return
		}
		region := p.data[p.header.DebugInfoOffset:p.header.FileLength]
		info, err := bytecode.ParseDebugInfo(region)
		if err != nil {
			log.Errorf("discarding debug info: %s", err.Error())
			return
		}
		p.debugInfo = info
	})
	return p.debugInfo
}

// Epilogue returns the bytes past the nominal file length.
func (p *BufferProvider) Epilogue() []byte {
	return p.data[p.header.FileLength:]
}

// SourceHash returns the source hash recorded in the header.
func (p *BufferProvider) SourceHash() [bytecode.SourceHashSize]byte {
	return p.header.SourceHash
}

// IsFunctionLazy always reports false: a buffer-backed container only holds
// fully compiled functions.
func (p *BufferProvider) IsFunctionLazy(functionID uint32) bool { return false }

// IsLazy always reports false for buffer-backed containers.
func (p *BufferProvider) IsLazy() bool { return false }

// ---------------------------------------------------------------------------
// Static entry points (usable without a live provider)
// ---------------------------------------------------------------------------

// IsBytecodeStream cheaply probes whether data plausibly is a container:
// enough bytes for a header and the right magic. It does not validate
// anything else; use SanityCheck before trusting the contents.
func IsBytecodeStream(data []byte) bool {
	return len(data) >= bytecode.HeaderSize &&
		[4]byte(data[0:4]) == bytecode.ContainerMagic
}

// SanityCheck validates that data is a well-formed container. The basic
// check covers the header (size, magic, version). With full set, every
// table region is additionally bounds-checked against the buffer, which is
// the same validation construction performs.
func SanityCheck(data []byte, full bool) error {
	h, err := bytecode.DecodeHeader(data)
	if err != nil {
		return err
	}
	if !full {
		return nil
	}
	return bytecode.ComputeLayout(h).Validate(h, len(data))
}

// EpilogueFromBytecode extracts the epilogue from raw container bytes
// without constructing a provider. Returns nil for data that is not a
// plausible container or has no trailing bytes.
func EpilogueFromBytecode(data []byte) []byte {
	if err := SanityCheck(data, false); err != nil {
		return nil
	}
	fileLength := fileLengthFromHeader(data)
	if uint64(fileLength) >= uint64(len(data)) {
		return nil
	}
	return data[fileLength:]
}

// SourceHashFromBytecode extracts the source hash recorded in the header
// of raw container bytes. Returns the all-zero hash when data is not a
// plausible container.
func SourceHashFromBytecode(data []byte) [bytecode.SourceHashSize]byte {
	var hash [bytecode.SourceHashSize]byte
	if err := SanityCheck(data, false); err != nil {
		return hash
	}
	copy(hash[:], data[8:8+bytecode.SourceHashSize])
	return hash
}

// fileLengthFromHeader reads the nominal file length field. The caller
// must have probed the header first.
func fileLengthFromHeader(data []byte) uint32 {
	return bytecode.ReadUint32(data[8+bytecode.SourceHashSize:])
}

var _ Provider = (*BufferProvider)(nil)
