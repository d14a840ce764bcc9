package bytecode

import "fmt"

// ---------------------------------------------------------------------------
// Function Header Flags
// ---------------------------------------------------------------------------

// FuncHeaderFlags is the one-byte flag field shared by both header shapes.
type FuncHeaderFlags uint8

const (
	// ProhibitMask selects the two prohibit-invoke bits.
	ProhibitMask FuncHeaderFlags = 0x03

	// FlagStrictMode indicates the function body is strict-mode code.
	FlagStrictMode FuncHeaderFlags = 1 << 2

	// FlagHasExceptionHandler indicates an exception handler table is
	// present in the function's info block.
	FlagHasExceptionHandler FuncHeaderFlags = 1 << 3

	// FlagHasDebugInfo indicates a debug offsets record follows the
	// exception table in the function's info block.
	FlagHasDebugInfo FuncHeaderFlags = 1 << 4

	// FlagOverflowed marks a compact slot whose fields did not fit; the
	// slot then stores the offset of the out-of-line large header.
	FlagOverflowed FuncHeaderFlags = 1 << 5
)

// ProhibitInvoke describes call restrictions on a function.
type ProhibitInvoke uint8

const (
	ProhibitNone      ProhibitInvoke = 0 // callable and constructable
	ProhibitCall      ProhibitInvoke = 1 // only constructable
	ProhibitConstruct ProhibitInvoke = 2 // only callable
)

// Prohibit returns the prohibit-invoke restriction encoded in the flags.
func (f FuncHeaderFlags) Prohibit() ProhibitInvoke {
	return ProhibitInvoke(f & ProhibitMask)
}

// StrictMode reports whether the function is strict-mode code.
func (f FuncHeaderFlags) StrictMode() bool { return f&FlagStrictMode != 0 }

// HasExceptionHandler reports whether the function has handler ranges.
func (f FuncHeaderFlags) HasExceptionHandler() bool { return f&FlagHasExceptionHandler != 0 }

// HasDebugInfo reports whether debug offsets were retained for the function.
func (f FuncHeaderFlags) HasDebugInfo() bool { return f&FlagHasDebugInfo != 0 }

// Overflowed reports whether the compact slot points at a large header.
func (f FuncHeaderFlags) Overflowed() bool { return f&FlagOverflowed != 0 }

// ---------------------------------------------------------------------------
// Compact Field Widths
// ---------------------------------------------------------------------------

// Compact header field widths. A function whose values exceed any of these
// is stored out of line in the large form.
const (
	MaxSmallBytecodeOffset = 1<<25 - 1
	MaxSmallParamCount     = 1<<7 - 1
	MaxSmallBytecodeLength = 1<<15 - 1
	MaxSmallFunctionNameID = 1<<17 - 1
	MaxSmallInfoOffset     = 1<<25 - 1
	MaxSmallFrameSize      = 1<<7 - 1
	MaxSmallEnvironment    = 1<<8 - 1
)

// ---------------------------------------------------------------------------
// FuncHeaderValues: logical field set, used by the builder
// ---------------------------------------------------------------------------

// FuncHeaderValues is the full logical field set of a function header,
// independent of physical shape.
type FuncHeaderValues struct {
	BytecodeOffset  uint32
	BytecodeLength  uint32
	ParamCount      uint32
	FunctionNameID  uint32
	InfoOffset      uint32
	FrameSize       uint32
	EnvironmentSize uint32
	ReadCacheSize   uint8
	WriteCacheSize  uint8
	Flags           FuncHeaderFlags
}

// FitsSmall reports whether every field fits the compact widths.
func (v FuncHeaderValues) FitsSmall() bool {
	return v.BytecodeOffset <= MaxSmallBytecodeOffset &&
		v.ParamCount <= MaxSmallParamCount &&
		v.BytecodeLength <= MaxSmallBytecodeLength &&
		v.FunctionNameID <= MaxSmallFunctionNameID &&
		v.InfoOffset <= MaxSmallInfoOffset &&
		v.FrameSize <= MaxSmallFrameSize &&
		v.EnvironmentSize <= MaxSmallEnvironment
}

// AppendSmall encodes v as a 16-byte compact slot. The caller must have
// checked FitsSmall; out-of-width values would corrupt neighboring fields.
func (v FuncHeaderValues) AppendSmall(buf []byte) []byte {
	buf = AppendUint32(buf, v.BytecodeOffset|v.ParamCount<<25)
	buf = AppendUint32(buf, v.BytecodeLength|v.FunctionNameID<<15)
	buf = AppendUint32(buf, v.InfoOffset|v.FrameSize<<25)
	buf = append(buf,
		byte(v.EnvironmentSize),
		v.ReadCacheSize,
		v.WriteCacheSize,
		byte(v.Flags&^FlagOverflowed))
	return buf
}

// AppendLarge encodes v as a large header record, preceded by the reserved
// lead byte. The slot referencing it must carry FlagOverflowed and store
// the offset of the lead byte.
func (v FuncHeaderValues) AppendLarge(buf []byte) []byte {
	buf = append(buf, 0) // reserved lead byte
	buf = AppendUint32(buf, v.BytecodeOffset)
	buf = AppendUint32(buf, v.BytecodeLength)
	buf = AppendUint32(buf, v.ParamCount)
	buf = AppendUint32(buf, v.FunctionNameID)
	buf = AppendUint32(buf, v.InfoOffset)
	buf = AppendUint32(buf, v.FrameSize)
	buf = AppendUint32(buf, v.EnvironmentSize)
	buf = append(buf,
		v.ReadCacheSize,
		v.WriteCacheSize,
		byte(v.Flags|FlagOverflowed),
		0)
	return buf
}

// AppendOverflowSlot encodes the compact slot for an overflowed function:
// the first word holds the absolute offset of the large header's lead byte
// and the flags byte carries FlagOverflowed. All other fields live in the
// large header.
func AppendOverflowSlot(buf []byte, largeOffset uint32, flags FuncHeaderFlags) []byte {
	buf = AppendUint32(buf, largeOffset)
	buf = AppendUint32(buf, 0)
	buf = AppendUint32(buf, 0)
	buf = append(buf, 0, 0, 0, byte(flags|FlagOverflowed))
	return buf
}

// ---------------------------------------------------------------------------
// FunctionHeaderRef: tagged reference over either header shape
// ---------------------------------------------------------------------------

// FunctionHeaderRef is a non-owning reference to a function header record.
// A single discriminant selects between the compact and the large layout;
// every accessor returns identical logical values for both shapes. It is a
// small value type, cheap to copy and return by value.
type FunctionHeaderRef struct {
	data  []byte // the record bytes, lead byte already skipped for large
	large bool
}

// NewSmallFunctionHeaderRef references a 16-byte compact slot.
func NewSmallFunctionHeaderRef(slot []byte) FunctionHeaderRef {
	return FunctionHeaderRef{data: slot[:SmallFuncHeaderSize]}
}

// NewLargeFunctionHeaderRef references a large header record. rec must
// start at the record's reserved lead byte; the byte is skipped here so no
// accessor ever reads the record at its nominal offset.
func NewLargeFunctionHeaderRef(rec []byte) FunctionHeaderRef {
	return FunctionHeaderRef{data: rec[1 : 1+LargeFuncHeaderSize], large: true}
}

// Large reports which physical shape the reference points at.
func (r FunctionHeaderRef) Large() bool { return r.large }

// BytecodeOffset returns the function's bytecode offset within the buffer.
func (r FunctionHeaderRef) BytecodeOffset() uint32 {
	if r.large {
		return ReadUint32(r.data)
	}
	return ReadUint32(r.data) & MaxSmallBytecodeOffset
}

// BytecodeLength returns the length of the function's bytecode in bytes.
func (r FunctionHeaderRef) BytecodeLength() uint32 {
	if r.large {
		return ReadUint32(r.data[4:])
	}
	return ReadUint32(r.data[4:]) & MaxSmallBytecodeLength
}

// ParamCount returns the declared parameter count.
func (r FunctionHeaderRef) ParamCount() uint32 {
	if r.large {
		return ReadUint32(r.data[8:])
	}
	return ReadUint32(r.data) >> 25
}

// FunctionNameID returns the string table index of the function's name.
func (r FunctionHeaderRef) FunctionNameID() uint32 {
	if r.large {
		return ReadUint32(r.data[12:])
	}
	return ReadUint32(r.data[4:]) >> 15
}

// InfoOffset returns the buffer offset of the function's info block
// (exception table and debug offsets), or 0 when the function has neither.
func (r FunctionHeaderRef) InfoOffset() uint32 {
	if r.large {
		return ReadUint32(r.data[16:])
	}
	return ReadUint32(r.data[8:]) & MaxSmallInfoOffset
}

// FrameSize returns the stack frame size in slots.
func (r FunctionHeaderRef) FrameSize() uint32 {
	if r.large {
		return ReadUint32(r.data[20:])
	}
	return ReadUint32(r.data[8:]) >> 25
}

// EnvironmentSize returns the environment slot count.
func (r FunctionHeaderRef) EnvironmentSize() uint32 {
	if r.large {
		return ReadUint32(r.data[24:])
	}
	return uint32(r.data[12])
}

// ReadCacheSize returns the property read cache size.
func (r FunctionHeaderRef) ReadCacheSize() uint8 {
	if r.large {
		return r.data[28]
	}
	return r.data[13]
}

// WriteCacheSize returns the property write cache size.
func (r FunctionHeaderRef) WriteCacheSize() uint8 {
	if r.large {
		return r.data[29]
	}
	return r.data[14]
}

// Flags returns the function's flag byte.
func (r FunctionHeaderRef) Flags() FuncHeaderFlags {
	if r.large {
		return FuncHeaderFlags(r.data[30])
	}
	return FuncHeaderFlags(r.data[15])
}

// ---------------------------------------------------------------------------
// Compact slot inspection (pre-shape-resolution)
// ---------------------------------------------------------------------------

// SmallSlotOverflowed reports whether a compact slot defers to a large
// header. This is the only field a caller may read before resolving shape.
func SmallSlotOverflowed(slot []byte) bool {
	return FuncHeaderFlags(slot[15]).Overflowed()
}

// SmallSlotLargeOffset returns the absolute buffer offset of the large
// header's lead byte stored in an overflowed compact slot.
func SmallSlotLargeOffset(slot []byte) uint32 {
	return ReadUint32(slot)
}

// String formats the prohibit-invoke restriction.
func (p ProhibitInvoke) String() string {
	switch p {
	case ProhibitNone:
		return "none"
	case ProhibitCall:
		return "call"
	case ProhibitConstruct:
		return "construct"
	default:
		return fmt.Sprintf("ProhibitInvoke(%d)", uint8(p))
	}
}
