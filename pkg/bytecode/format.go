package bytecode

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Container Format Constants
// ---------------------------------------------------------------------------

// ContainerMagic is the magic number identifying an RBC container.
var ContainerMagic = [4]byte{'R', 'B', 'C', '1'}

// Container format version
// v1: initial format
// v2: added read/write cache sizes on function headers
// v3: added static CJS module table and source hash
const ContainerVersion uint32 = 3

// SourceHashSize is the width of the SHA-256 source hash in the header.
const SourceHashSize = 32

// HeaderSize is the fixed container header size in bytes:
// magic(4) + version(4) + sourceHash(32) + fileLength(4) + globalCodeIndex(4) +
// functionCount(4) + stringCount(4) + overflowStringCount(4) +
// identifierCount(4) + stringStorageSize(4) + arrayBufferSize(4) +
// objKeyBufferSize(4) + objValueBufferSize(4) + regExpCount(4) +
// regExpStorageSize(4) + cjsModuleCount(4) + cjsModuleStaticCount(4) +
// debugInfoOffset(4) + options(1) + pad(3) = 104
const HeaderSize = 104

// Record sizes.
const (
	SmallFuncHeaderSize     = 16
	LargeFuncHeaderSize     = 32
	SmallStringEntrySize    = 4
	OverflowStringEntrySize = 8
	RegExpEntrySize         = 8
	ExceptionHandlerSize    = 12
	DebugOffsetsSize        = 8
	CJSModuleEntrySize      = 8
)

// ---------------------------------------------------------------------------
// Format Error Types
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic     = errors.New("invalid magic number: expected RBC1")
	ErrVersionMismatch  = errors.New("container version mismatch")
	ErrCorruptHeader    = errors.New("corrupt container header")
	ErrCorruptTables    = errors.New("corrupt container tables")
	ErrFieldOverflow    = errors.New("field value exceeds encodable width")
	ErrUnexpectedEOF    = errors.New("unexpected end of container data")
	ErrCorruptDebugInfo = errors.New("corrupt debug info region")
)

// ---------------------------------------------------------------------------
// BytecodeOptions
// ---------------------------------------------------------------------------

// BytecodeOptions is a one-byte flag set describing how the container was
// produced. It is copied by value and immutable.
type BytecodeOptions uint8

const (
	// OptionStaticBuiltins indicates builtins were bound at compile time.
	OptionStaticBuiltins BytecodeOptions = 1 << 0

	// OptionCJSResolvedStatically indicates CJS module requires were
	// resolved at compile time, populating the static module table.
	OptionCJSResolvedStatically BytecodeOptions = 1 << 1
)

// StaticBuiltins reports whether builtins were bound at compile time.
func (o BytecodeOptions) StaticBuiltins() bool {
	return o&OptionStaticBuiltins != 0
}

// CJSResolvedStatically reports whether CJS modules were statically resolved.
func (o BytecodeOptions) CJSResolvedStatically() bool {
	return o&OptionCJSResolvedStatically != 0
}

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

// Header contains the parsed fixed-size container header.
type Header struct {
	Magic                [4]byte
	Version              uint32
	SourceHash           [SourceHashSize]byte
	FileLength           uint32 // nominal length; bytes past it are the epilogue
	GlobalCodeIndex      uint32 // function index of the top-level code
	FunctionCount        uint32
	StringCount          uint32
	OverflowStringCount  uint32
	IdentifierCount      uint32
	StringStorageSize    uint32
	ArrayBufferSize      uint32
	ObjKeyBufferSize     uint32
	ObjValueBufferSize   uint32
	RegExpCount          uint32
	RegExpStorageSize    uint32
	CJSModuleCount       uint32
	CJSModuleStaticCount uint32
	DebugInfoOffset      uint32 // 0 when no debug info is present
	Options              BytecodeOptions
}

// DecodeHeader parses the fixed header at the start of data.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrCorruptHeader, HeaderSize, len(data))
	}

	var h Header
	copy(h.Magic[:], data[0:4])
	if h.Magic != ContainerMagic {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, h.Magic)
	}

	h.Version = ReadUint32(data[4:])
	if h.Version > ContainerVersion {
		return nil, fmt.Errorf("%w: container is v%d, newest supported is v%d",
			ErrVersionMismatch, h.Version, ContainerVersion)
	}

	copy(h.SourceHash[:], data[8:8+SourceHashSize])

	pos := 8 + SourceHashSize
	next := func() uint32 {
		v := ReadUint32(data[pos:])
		pos += 4
		return v
	}
	h.FileLength = next()
	h.GlobalCodeIndex = next()
	h.FunctionCount = next()
	h.StringCount = next()
	h.OverflowStringCount = next()
	h.IdentifierCount = next()
	h.StringStorageSize = next()
	h.ArrayBufferSize = next()
	h.ObjKeyBufferSize = next()
	h.ObjValueBufferSize = next()
	h.RegExpCount = next()
	h.RegExpStorageSize = next()
	h.CJSModuleCount = next()
	h.CJSModuleStaticCount = next()
	h.DebugInfoOffset = next()
	h.Options = BytecodeOptions(data[pos])

	return &h, nil
}

// AppendTo serializes the header to buf in container layout order.
func (h *Header) AppendTo(buf []byte) []byte {
	buf = append(buf, h.Magic[:]...)
	buf = AppendUint32(buf, h.Version)
	buf = append(buf, h.SourceHash[:]...)
	buf = AppendUint32(buf, h.FileLength)
	buf = AppendUint32(buf, h.GlobalCodeIndex)
	buf = AppendUint32(buf, h.FunctionCount)
	buf = AppendUint32(buf, h.StringCount)
	buf = AppendUint32(buf, h.OverflowStringCount)
	buf = AppendUint32(buf, h.IdentifierCount)
	buf = AppendUint32(buf, h.StringStorageSize)
	buf = AppendUint32(buf, h.ArrayBufferSize)
	buf = AppendUint32(buf, h.ObjKeyBufferSize)
	buf = AppendUint32(buf, h.ObjValueBufferSize)
	buf = AppendUint32(buf, h.RegExpCount)
	buf = AppendUint32(buf, h.RegExpStorageSize)
	buf = AppendUint32(buf, h.CJSModuleCount)
	buf = AppendUint32(buf, h.CJSModuleStaticCount)
	buf = AppendUint32(buf, h.DebugInfoOffset)
	buf = append(buf, byte(h.Options), 0, 0, 0)
	return buf
}

// ---------------------------------------------------------------------------
// Layout: table region offsets derived from header counts
// ---------------------------------------------------------------------------

// Layout holds the byte offset of every fixed table region, computed once
// from the header counts. Offsets are relative to the start of the buffer.
type Layout struct {
	FuncHeaders     uint64
	StringTable     uint64
	OverflowStrings uint64
	IdentifierHash  uint64
	StringStorage   uint64
	ArrayBuffer     uint64
	ObjKeyBuffer    uint64
	ObjValueBuffer  uint64
	RegExpTable     uint64
	RegExpStorage   uint64
	CJSModules      uint64
	CJSModuleStatic uint64
	End             uint64 // first byte past the fixed tables
}

// ComputeLayout derives the table region offsets from header counts.
// The arithmetic is done in 64 bits so hostile counts cannot wrap.
func ComputeLayout(h *Header) Layout {
	var l Layout
	pos := uint64(HeaderSize)

	l.FuncHeaders = pos
	pos += uint64(h.FunctionCount) * SmallFuncHeaderSize
	l.StringTable = pos
	pos += uint64(h.StringCount) * SmallStringEntrySize
	l.OverflowStrings = pos
	pos += uint64(h.OverflowStringCount) * OverflowStringEntrySize
	l.IdentifierHash = pos
	pos += uint64(h.IdentifierCount) * 4
	l.StringStorage = pos
	pos += uint64(h.StringStorageSize)
	l.ArrayBuffer = pos
	pos += uint64(h.ArrayBufferSize)
	l.ObjKeyBuffer = pos
	pos += uint64(h.ObjKeyBufferSize)
	l.ObjValueBuffer = pos
	pos += uint64(h.ObjValueBufferSize)
	l.RegExpTable = pos
	pos += uint64(h.RegExpCount) * RegExpEntrySize
	l.RegExpStorage = pos
	pos += uint64(h.RegExpStorageSize)
	l.CJSModules = pos
	pos += uint64(h.CJSModuleCount) * CJSModuleEntrySize
	l.CJSModuleStatic = pos
	pos += uint64(h.CJSModuleStaticCount) * 4
	l.End = pos

	return l
}

// Validate checks that every table region fits within the nominal file
// length and that header offsets are in bounds.
func (l Layout) Validate(h *Header, bufLen int) error {
	if uint64(h.FileLength) > uint64(bufLen) {
		return fmt.Errorf("%w: file length %d exceeds buffer size %d",
			ErrCorruptHeader, h.FileLength, bufLen)
	}
	if l.End > uint64(h.FileLength) {
		return fmt.Errorf("%w: tables end at %d, past file length %d",
			ErrCorruptTables, l.End, h.FileLength)
	}
	if h.FunctionCount > 0 && h.GlobalCodeIndex >= h.FunctionCount {
		return fmt.Errorf("%w: global code index %d out of range (%d functions)",
			ErrCorruptHeader, h.GlobalCodeIndex, h.FunctionCount)
	}
	if h.DebugInfoOffset != 0 {
		if uint64(h.DebugInfoOffset) < l.End || h.DebugInfoOffset > h.FileLength {
			return fmt.Errorf("%w: debug info offset %d out of range",
				ErrCorruptHeader, h.DebugInfoOffset)
		}
	}
	return nil
}
