package bytecode

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// ---------------------------------------------------------------------------
// ContainerBuilder: assembles RBC containers
// ---------------------------------------------------------------------------

// DebugLocation is one source position recorded for a bytecode address.
type DebugLocation struct {
	Address uint32 // offset within the function's bytecode
	Line    uint32
	Column  uint32
}

// FunctionDef is the input for one function added to a builder.
type FunctionDef struct {
	Bytecode        []byte
	ParamCount      uint32
	FrameSize       uint32
	EnvironmentSize uint32
	ReadCacheSize   uint8
	WriteCacheSize  uint8
	NameID          uint32 // string table index of the function name
	Prohibit        ProhibitInvoke
	StrictMode      bool

	// Exception handler ranges, in enclosing-to-inner emission order.
	// The catch-target lookup takes the last matching range, so nested
	// ranges must appear after the ranges that enclose them.
	Handlers []ExceptionHandlerInfo

	// Debug locations; FileID indexes the builder's debug file table.
	FileID    uint32
	Locations []DebugLocation
}

type builderString struct {
	offset       uint32
	length       uint32
	isUTF16      bool
	isIdentifier bool
}

// ContainerBuilder assembles a container buffer from compiled functions and
// their tables. The compact or overflow shape of every record is chosen
// automatically from the exported field-width limits. Output is
// deterministic for identical inputs.
type ContainerBuilder struct {
	options     BytecodeOptions
	sourceHash  [SourceHashSize]byte
	globalIndex uint32

	functions []FunctionDef

	strings     []builderString
	stringData  []byte
	stringIndex map[string]uint32
	identHashes []uint32

	arrayBuffer    []byte
	objKeyBuffer   []byte
	objValueBuffer []byte

	regexps       []RegExpTableEntry
	regexpStorage []byte

	cjsModules []CJSModuleEntry
	cjsStatic  []uint32

	debugFiles []string
	fileIndex  map[string]uint32

	epilogue []byte
}

// NewContainerBuilder creates an empty builder.
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		stringIndex: make(map[string]uint32),
		fileIndex:   make(map[string]uint32),
	}
}

// SetOptions records the production options stored in the header.
func (b *ContainerBuilder) SetOptions(opts BytecodeOptions) { b.options = opts }

// SetSourceHash records the SHA-256 hash of the source that was compiled.
func (b *ContainerBuilder) SetSourceHash(h [SourceHashSize]byte) { b.sourceHash = h }

// SetGlobalCodeIndex records which function index is the top-level code.
func (b *ContainerBuilder) SetGlobalCodeIndex(i uint32) { b.globalIndex = i }

// SetEpilogue records opaque bytes appended after the nominal file length.
func (b *ContainerBuilder) SetEpilogue(data []byte) { b.epilogue = data }

// AddString interns a UTF-8 string and returns its string table index.
// Identifier strings additionally get an entry in the identifier hash
// table. Duplicate adds return the existing index.
func (b *ContainerBuilder) AddString(s string, isIdentifier bool) uint32 {
	return b.addString([]byte(s), false, isIdentifier)
}

// AddUTF16String interns a string stored as raw UTF-16LE code unit bytes.
func (b *ContainerBuilder) AddUTF16String(units []byte, isIdentifier bool) uint32 {
	return b.addString(units, true, isIdentifier)
}

func (b *ContainerBuilder) addString(data []byte, isUTF16, isIdentifier bool) uint32 {
	key := fmt.Sprintf("%t/%t/%s", isUTF16, isIdentifier, data)
	if idx, ok := b.stringIndex[key]; ok {
		return idx
	}

	idx := uint32(len(b.strings))
	b.strings = append(b.strings, builderString{
		offset:       uint32(len(b.stringData)),
		length:       uint32(len(data)),
		isUTF16:      isUTF16,
		isIdentifier: isIdentifier,
	})
	b.stringData = append(b.stringData, data...)
	b.stringIndex[key] = idx

	if isIdentifier {
		b.identHashes = append(b.identHashes, hashIdentifier(data))
	}
	return idx
}

// hashIdentifier computes the hash stored in the identifier hash table,
// used by the VM for fast identifier lookup without touching storage.
func hashIdentifier(data []byte) uint32 {
	h := fnv.New32a()
	h.Write(data)
	return h.Sum32()
}

// AddDebugFile interns a source filename and returns its debug file ID.
func (b *ContainerBuilder) AddDebugFile(name string) uint32 {
	if idx, ok := b.fileIndex[name]; ok {
		return idx
	}
	idx := uint32(len(b.debugFiles))
	b.debugFiles = append(b.debugFiles, name)
	b.fileIndex[name] = idx
	return idx
}

// AddFunction appends a function and returns its index.
func (b *ContainerBuilder) AddFunction(fn FunctionDef) uint32 {
	idx := uint32(len(b.functions))
	b.functions = append(b.functions, fn)
	return idx
}

// SetArrayBuffer sets the array literal buffer.
func (b *ContainerBuilder) SetArrayBuffer(data []byte) { b.arrayBuffer = data }

// SetObjectKeyBuffer sets the object literal key buffer.
func (b *ContainerBuilder) SetObjectKeyBuffer(data []byte) { b.objKeyBuffer = data }

// SetObjectValueBuffer sets the object literal value buffer.
func (b *ContainerBuilder) SetObjectValueBuffer(data []byte) { b.objValueBuffer = data }

// AddRegExp appends a compiled pattern and returns its regexp table index.
func (b *ContainerBuilder) AddRegExp(compiled []byte) uint32 {
	idx := uint32(len(b.regexps))
	b.regexps = append(b.regexps, RegExpTableEntry{
		Offset: uint32(len(b.regexpStorage)),
		Length: uint32(len(compiled)),
	})
	b.regexpStorage = append(b.regexpStorage, compiled...)
	return idx
}

// AddCJSModule records a filename-string-ID to function-index mapping.
func (b *ContainerBuilder) AddCJSModule(symbolID, functionID uint32) {
	b.cjsModules = append(b.cjsModules, CJSModuleEntry{SymbolID: symbolID, FunctionID: functionID})
}

// AddStaticCJSModule records a statically resolved module's function index.
func (b *ContainerBuilder) AddStaticCJSModule(functionID uint32) {
	b.cjsStatic = append(b.cjsStatic, functionID)
}

// Build assembles and returns the container buffer.
func (b *ContainerBuilder) Build() ([]byte, error) {
	if len(b.functions) > 0 && b.globalIndex >= uint32(len(b.functions)) {
		return nil, fmt.Errorf("global code index %d out of range (%d functions)",
			b.globalIndex, len(b.functions))
	}

	// Split strings into compact and overflow shapes.
	overflowIndex := make(map[int]uint32)
	var overflowCount uint32
	for i, s := range b.strings {
		if !StringFitsSmall(s.offset, s.length) {
			overflowIndex[i] = overflowCount
			overflowCount++
		}
	}

	h := Header{
		Magic:                ContainerMagic,
		Version:              ContainerVersion,
		SourceHash:           b.sourceHash,
		GlobalCodeIndex:      b.globalIndex,
		FunctionCount:        uint32(len(b.functions)),
		StringCount:          uint32(len(b.strings)),
		OverflowStringCount:  overflowCount,
		IdentifierCount:      uint32(len(b.identHashes)),
		StringStorageSize:    uint32(len(b.stringData)),
		ArrayBufferSize:      uint32(len(b.arrayBuffer)),
		ObjKeyBufferSize:     uint32(len(b.objKeyBuffer)),
		ObjValueBufferSize:   uint32(len(b.objValueBuffer)),
		RegExpCount:          uint32(len(b.regexps)),
		RegExpStorageSize:    uint32(len(b.regexpStorage)),
		CJSModuleCount:       uint32(len(b.cjsModules)),
		CJSModuleStaticCount: uint32(len(b.cjsStatic)),
		Options:              b.options,
	}
	layout := ComputeLayout(&h)

	// Lay out the function data region: bytecode blobs first, then info
	// blocks, then out-of-line large headers. Offsets must be known before
	// any header is encoded, so this is a pure measurement pass.
	cursor := layout.End

	values := make([]FuncHeaderValues, len(b.functions))
	for i, fn := range b.functions {
		values[i] = FuncHeaderValues{
			BytecodeOffset:  uint32(cursor),
			BytecodeLength:  uint32(len(fn.Bytecode)),
			ParamCount:      fn.ParamCount,
			FunctionNameID:  fn.NameID,
			FrameSize:       fn.FrameSize,
			EnvironmentSize: fn.EnvironmentSize,
			ReadCacheSize:   fn.ReadCacheSize,
			WriteCacheSize:  fn.WriteCacheSize,
			Flags:           functionFlags(fn),
		}
		cursor += uint64(len(fn.Bytecode))
	}

	for i, fn := range b.functions {
		if len(fn.Handlers) == 0 && len(fn.Locations) == 0 {
			continue
		}
		values[i].InfoOffset = uint32(cursor)
		if len(fn.Handlers) > 0 {
			cursor += 4 + uint64(len(fn.Handlers))*ExceptionHandlerSize
		}
		if len(fn.Locations) > 0 {
			cursor += DebugOffsetsSize
		}
	}

	largeOffsets := make(map[int]uint64)
	for i := range b.functions {
		if !values[i].FitsSmall() {
			largeOffsets[i] = cursor
			cursor += 1 + LargeFuncHeaderSize
		}
	}

	// Debug info region: filename table plus one location run per function
	// that recorded locations, in function order.
	debugOffsets := make(map[int]DebugOffsets)
	var blob []byte
	for i, fn := range b.functions {
		if len(fn.Locations) == 0 {
			continue
		}
		if int(fn.FileID) >= len(b.debugFiles) {
			return nil, fmt.Errorf("function %d: debug file ID %d out of range (%d files)",
				i, fn.FileID, len(b.debugFiles))
		}
		debugOffsets[i] = DebugOffsets{SourceLocations: uint32(len(blob))}

		locs := make([]DebugLocation, len(fn.Locations))
		copy(locs, fn.Locations)
		sort.Slice(locs, func(x, y int) bool { return locs[x].Address < locs[y].Address })

		blob = AppendUint32(blob, fn.FileID)
		blob = AppendUint32(blob, uint32(len(locs)))
		for _, loc := range locs {
			blob = AppendUint32(blob, loc.Address)
			blob = AppendUint32(blob, loc.Line)
			blob = AppendUint32(blob, loc.Column)
		}
	}

	if len(blob) > 0 || len(b.debugFiles) > 0 {
		h.DebugInfoOffset = uint32(cursor)
		cursor += 4
		for _, f := range b.debugFiles {
			cursor += 4 + uint64(len(f))
		}
		cursor += 4 + uint64(len(blob))
	}

	if cursor > 1<<32-1 {
		return nil, fmt.Errorf("%w: container size %d exceeds 32-bit addressing", ErrFieldOverflow, cursor)
	}
	h.FileLength = uint32(cursor)

	// Emission pass.
	buf := make([]byte, 0, cursor+uint64(len(b.epilogue)))
	buf = h.AppendTo(buf)

	for i := range b.functions {
		if off, ok := largeOffsets[i]; ok {
			buf = AppendOverflowSlot(buf, uint32(off), values[i].Flags)
		} else {
			buf = values[i].AppendSmall(buf)
		}
	}

	for i, s := range b.strings {
		if idx, ok := overflowIndex[i]; ok {
			buf = AppendOverflowStringSlot(buf, idx, s.isUTF16, s.isIdentifier)
		} else {
			buf = AppendSmallStringEntry(buf, StringTableEntry{
				Offset:       s.offset,
				Length:       s.length,
				IsUTF16:      s.isUTF16,
				IsIdentifier: s.isIdentifier,
			})
		}
	}
	for i, s := range b.strings {
		if _, ok := overflowIndex[i]; ok {
			buf = AppendOverflowStringEntry(buf, s.offset, s.length)
		}
	}

	for _, hash := range b.identHashes {
		buf = AppendUint32(buf, hash)
	}
	buf = append(buf, b.stringData...)
	buf = append(buf, b.arrayBuffer...)
	buf = append(buf, b.objKeyBuffer...)
	buf = append(buf, b.objValueBuffer...)

	for _, re := range b.regexps {
		buf = AppendUint32(buf, re.Offset)
		buf = AppendUint32(buf, re.Length)
	}
	buf = append(buf, b.regexpStorage...)

	for _, m := range b.cjsModules {
		buf = AppendUint32(buf, m.SymbolID)
		buf = AppendUint32(buf, m.FunctionID)
	}
	for _, fnID := range b.cjsStatic {
		buf = AppendUint32(buf, fnID)
	}

	for _, fn := range b.functions {
		buf = append(buf, fn.Bytecode...)
	}

	for i, fn := range b.functions {
		if len(fn.Handlers) == 0 && len(fn.Locations) == 0 {
			continue
		}
		if len(fn.Handlers) > 0 {
			buf = AppendUint32(buf, uint32(len(fn.Handlers)))
			for _, hr := range fn.Handlers {
				buf = AppendUint32(buf, hr.Start)
				buf = AppendUint32(buf, hr.End)
				buf = AppendUint32(buf, hr.Target)
			}
		}
		if len(fn.Locations) > 0 {
			buf = AppendDebugOffsets(buf, debugOffsets[i])
		}
	}

	// Large headers are written in the same order their offsets were
	// assigned, each behind its reserved lead byte.
	for i := range b.functions {
		if _, ok := largeOffsets[i]; ok {
			buf = values[i].AppendLarge(buf)
		}
	}

	if h.DebugInfoOffset != 0 {
		buf = AppendUint32(buf, uint32(len(b.debugFiles)))
		for _, f := range b.debugFiles {
			buf = AppendUint32(buf, uint32(len(f)))
			buf = append(buf, f...)
		}
		buf = AppendUint32(buf, uint32(len(blob)))
		buf = append(buf, blob...)
	}

	if uint64(len(buf)) != cursor {
		return nil, fmt.Errorf("internal layout mismatch: wrote %d bytes, measured %d", len(buf), cursor)
	}

	buf = append(buf, b.epilogue...)
	return buf, nil
}

func functionFlags(fn FunctionDef) FuncHeaderFlags {
	flags := FuncHeaderFlags(fn.Prohibit) & ProhibitMask
	if fn.StrictMode {
		flags |= FlagStrictMode
	}
	if len(fn.Handlers) > 0 {
		flags |= FlagHasExceptionHandler
	}
	if len(fn.Locations) > 0 {
		flags |= FlagHasDebugInfo
	}
	return flags
}
