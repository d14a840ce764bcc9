package provider

import (
	"github.com/chazu/ripley/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Buffer: owned, contiguous, read-only byte range
// ---------------------------------------------------------------------------

// Buffer is an owned, contiguous, read-only byte range backing a container.
// A provider takes exclusive ownership of the buffer it is constructed over
// and calls Release exactly once, during Close, after any background warmup
// has been stopped.
type Buffer interface {
	// Data returns the underlying bytes. The slice must stay valid and
	// unchanged until Release is called.
	Data() []byte

	// Release frees the backing storage. No reads may follow.
	Release()
}

// BytesBuffer adapts a plain byte slice to the Buffer contract.
type BytesBuffer struct {
	data []byte
}

// NewBytesBuffer wraps data without copying it.
func NewBytesBuffer(data []byte) *BytesBuffer {
	return &BytesBuffer{data: data}
}

// Data returns the wrapped bytes.
func (b *BytesBuffer) Data() []byte { return b.data }

// Release drops the reference so the storage can be collected.
func (b *BytesBuffer) Release() { b.data = nil }

// ---------------------------------------------------------------------------
// Provider: the bytecode data contract
// ---------------------------------------------------------------------------

// Provider is the contract between bytecode storage and the execution
// engine. Implementations must uphold:
//
//   - All table accessors are zero-copy views into backing storage.
//   - Data reachable through the provider is immutable for its lifetime;
//     reads need no synchronization.
//   - Function and string indices are trusted: they are validated once
//     against declared counts when the backing is created, and callers must
//     stay within FunctionCount and StringCount. Out-of-range indices are
//     programmer errors, not recoverable conditions.
//   - DebugInfo is constructed at most once, on first use, and cached.
//   - Absence is not an error: no epilogue is an empty slice, no source
//     hash is all zeros, no debug offsets is a nil pointer.
//
// Backings that do not hold a raw buffer return empty/zero values for
// Epilogue and SourceHash and treat StartWarmup as a no-op.
type Provider interface {
	// BytecodeOptions returns the production flags from the header.
	BytecodeOptions() bytecode.BytecodeOptions

	// FunctionCount returns the number of functions in the container.
	FunctionCount() uint32

	// GlobalFunctionIndex returns the function index of top-level code.
	GlobalFunctionIndex() uint32

	// StringCount returns the number of string table entries.
	StringCount() uint32

	// StringTableEntry resolves the logical descriptor for a string ID,
	// joining the compact and overflow tables as needed.
	StringTableEntry(id uint32) bytecode.StringTableEntry

	// StringStorage returns the raw string byte storage.
	StringStorage() []byte

	// IdentifierHashes returns the per-identifier hash table.
	IdentifierHashes() bytecode.IdentifierHashTable

	// ArrayBuffer returns the array literal buffer.
	ArrayBuffer() []byte

	// ObjectKeyBuffer returns the object literal key buffer.
	ObjectKeyBuffer() []byte

	// ObjectValueBuffer returns the object literal value buffer.
	ObjectValueBuffer() []byte

	// RegExpTable returns the regular expression descriptor table.
	RegExpTable() bytecode.RegExpTable

	// RegExpStorage returns the compiled regexp pattern storage.
	RegExpStorage() []byte

	// CJSModuleTable returns the unsorted filename-ID to function-index
	// module table.
	CJSModuleTable() bytecode.CJSModuleTable

	// CJSModuleTableStatic returns the statically resolved module table.
	CJSModuleTableStatic() bytecode.CJSStaticTable

	// FunctionHeader returns a tagged reference to the function's header,
	// resolving the compact or overflow shape internally. Callers never
	// branch on shape.
	FunctionHeader(functionID uint32) bytecode.FunctionHeaderRef

	// Bytecode returns the function's raw instruction bytes.
	Bytecode(functionID uint32) []byte

	// ExceptionTable returns the function's handler ranges; empty when the
	// function has none.
	ExceptionTable(functionID uint32) bytecode.ExceptionTable

	// DebugOffsets returns the function's debug offsets record, or nil
	// when debug info was not retained for it.
	DebugOffsets(functionID uint32) *bytecode.DebugOffsets

	// DebugInfo returns the container's debug info, constructing it on
	// first call and caching it. Nil when the container carries none.
	DebugInfo() *bytecode.DebugInfo

	// Epilogue returns any bytes past the nominal bytecode length.
	Epilogue() []byte

	// SourceHash returns the hash of the source that produced the
	// container.
	SourceHash() [bytecode.SourceHashSize]byte

	// IsFunctionLazy reports whether the function's body has not been
	// compiled yet.
	IsFunctionLazy(functionID uint32) bool

	// IsLazy reports whether the whole backing is lazily compiled.
	IsLazy() bool

	// StartWarmup begins best-effort OS page-cache prefetching of up to
	// the given percentage of the container.
	StartWarmup(percent uint8)

	// StopWarmup cancels any running warmup and waits for it to stop.
	// Safe to call at any time, repeatedly.
	StopWarmup()
}

// ---------------------------------------------------------------------------
// Shared lookups over the contract
// ---------------------------------------------------------------------------

// FindCatchTargetOffset scans the function's handler ranges for the
// innermost one containing exceptionOffset and returns its target, or -1
// when no handler covers the offset. The compiler emits nested ranges after
// their enclosing ones, so the last matching table entry is the innermost;
// the lookup relies on that ordering rather than recomputing nesting.
func FindCatchTargetOffset(p Provider, functionID, exceptionOffset uint32) int32 {
	table := p.ExceptionTable(functionID)
	target := int32(-1)
	for i := 0; i < table.Len(); i++ {
		if e := table.At(i); e.Covers(exceptionOffset) {
			target = int32(e.Target)
		}
	}
	return target
}

// VirtualOffsetForFunction returns the sum of the bytecode lengths of every
// function with a smaller index. When bytecode dedup is enabled, distinct
// functions can share one buffer offset, which confuses symbolication; this
// synthetic offset is unique per function as if no dedup had happened. It
// is a symbolication coordinate only and must never be used to index the
// buffer.
func VirtualOffsetForFunction(p Provider, functionID uint32) uint32 {
	var offset uint32
	for i := uint32(0); i < functionID; i++ {
		offset += p.FunctionHeader(i).BytecodeLength()
	}
	return offset
}

// StringFromID returns the raw bytes of a string by table ID. For UTF-16
// strings the slice holds little-endian code units.
func StringFromID(p Provider, id uint32) []byte {
	entry := p.StringTableEntry(id)
	return p.StringStorage()[entry.Offset : entry.Offset+entry.Length]
}

// LocationForAddress resolves the source location of an instruction offset
// within a function. Absence of debug info, at either the container or the
// function level, is an ordinary no-result.
func LocationForAddress(p Provider, functionID, offsetInFunction uint32) (bytecode.SourceLocation, bool) {
	offsets := p.DebugOffsets(functionID)
	if offsets == nil {
		return bytecode.SourceLocation{}, false
	}
	info := p.DebugInfo()
	if info == nil {
		return bytecode.SourceLocation{}, false
	}
	return info.LookupLocation(*offsets, offsetInFunction)
}
