package bytecode

import (
	"bytes"
	"testing"
)

func TestBuilderEmptyContainer(t *testing.T) {
	data, err := NewContainerBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(data) != HeaderSize {
		t.Fatalf("empty container size = %d, want %d", len(data), HeaderSize)
	}

	h, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.Version != ContainerVersion {
		t.Errorf("Version = %d, want %d", h.Version, ContainerVersion)
	}
	if h.FileLength != HeaderSize {
		t.Errorf("FileLength = %d, want %d", h.FileLength, HeaderSize)
	}
	if h.FunctionCount != 0 || h.StringCount != 0 {
		t.Errorf("counts = %d functions, %d strings, want 0, 0", h.FunctionCount, h.StringCount)
	}
}

func TestBuilderHeaderCounts(t *testing.T) {
	b := NewContainerBuilder()
	b.SetOptions(OptionStaticBuiltins)
	b.SetGlobalCodeIndex(0)

	var hash [SourceHashSize]byte
	hash[0] = 0xAB
	b.SetSourceHash(hash)

	nameID := b.AddString("main", true)
	b.AddString("hello world", false)
	b.AddFunction(FunctionDef{
		Bytecode:   []byte{1, 2, 3, 4},
		ParamCount: 1,
		NameID:     nameID,
	})
	b.AddRegExp([]byte{9, 9})
	b.AddCJSModule(0, 0)
	b.AddStaticCJSModule(0)
	b.SetArrayBuffer([]byte{1})
	b.SetObjectKeyBuffer([]byte{2, 2})
	b.SetObjectValueBuffer([]byte{3, 3, 3})

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}

	if h.SourceHash != hash {
		t.Error("source hash not preserved")
	}
	if h.FunctionCount != 1 {
		t.Errorf("FunctionCount = %d, want 1", h.FunctionCount)
	}
	if h.StringCount != 2 {
		t.Errorf("StringCount = %d, want 2", h.StringCount)
	}
	if h.IdentifierCount != 1 {
		t.Errorf("IdentifierCount = %d, want 1", h.IdentifierCount)
	}
	if h.StringStorageSize != uint32(len("main")+len("hello world")) {
		t.Errorf("StringStorageSize = %d", h.StringStorageSize)
	}
	if h.RegExpCount != 1 || h.RegExpStorageSize != 2 {
		t.Errorf("regexp header fields = %d, %d, want 1, 2", h.RegExpCount, h.RegExpStorageSize)
	}
	if h.CJSModuleCount != 1 || h.CJSModuleStaticCount != 1 {
		t.Errorf("cjs header fields = %d, %d, want 1, 1", h.CJSModuleCount, h.CJSModuleStaticCount)
	}
	if h.ArrayBufferSize != 1 || h.ObjKeyBufferSize != 2 || h.ObjValueBufferSize != 3 {
		t.Errorf("literal buffer sizes = %d, %d, %d, want 1, 2, 3",
			h.ArrayBufferSize, h.ObjKeyBufferSize, h.ObjValueBufferSize)
	}
	if uint32(len(data)) != h.FileLength {
		t.Errorf("buffer size = %d, FileLength = %d", len(data), h.FileLength)
	}
	if !h.Options.StaticBuiltins() {
		t.Error("StaticBuiltins option lost")
	}
}

func TestBuilderStringInterning(t *testing.T) {
	b := NewContainerBuilder()
	a := b.AddString("x", false)
	c := b.AddString("x", false)
	if a != c {
		t.Errorf("duplicate add returned %d, want %d", c, a)
	}

	// Same bytes under different flags are distinct strings.
	d := b.AddString("x", true)
	if d == a {
		t.Error("identifier add returned the non-identifier index")
	}
}

func TestBuilderFunctionBytecode(t *testing.T) {
	b := NewContainerBuilder()
	code := []byte{0x10, 0x20, 0x30}
	b.AddFunction(FunctionDef{Bytecode: code})

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h, _ := DecodeHeader(data)
	layout := ComputeLayout(h)

	slot := data[layout.FuncHeaders : layout.FuncHeaders+SmallFuncHeaderSize]
	if SmallSlotOverflowed(slot) {
		t.Fatal("tiny function used the large header shape")
	}
	r := NewSmallFunctionHeaderRef(slot)
	got := data[r.BytecodeOffset() : r.BytecodeOffset()+r.BytecodeLength()]
	if !bytes.Equal(got, code) {
		t.Errorf("bytecode = % x, want % x", got, code)
	}
}

func TestBuilderLargeHeader(t *testing.T) {
	// A parameter count past the compact width forces the large shape.
	b := NewContainerBuilder()
	b.AddFunction(FunctionDef{
		Bytecode:   []byte{1},
		ParamCount: MaxSmallParamCount + 1,
	})

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h, _ := DecodeHeader(data)
	layout := ComputeLayout(h)

	slot := data[layout.FuncHeaders : layout.FuncHeaders+SmallFuncHeaderSize]
	if !SmallSlotOverflowed(slot) {
		t.Fatal("oversized function kept the compact shape")
	}
	r := NewLargeFunctionHeaderRef(data[SmallSlotLargeOffset(slot):])
	if got := r.ParamCount(); got != MaxSmallParamCount+1 {
		t.Errorf("ParamCount = %d, want %d", got, MaxSmallParamCount+1)
	}
	if got := r.BytecodeLength(); got != 1 {
		t.Errorf("BytecodeLength = %d, want 1", got)
	}
}

func TestBuilderOverflowString(t *testing.T) {
	long := bytes.Repeat([]byte{'a'}, MaxSmallStringLength+1)

	b := NewContainerBuilder()
	b.AddString("short", false)
	b.AddString(string(long), false)

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h, _ := DecodeHeader(data)
	if h.OverflowStringCount != 1 {
		t.Fatalf("OverflowStringCount = %d, want 1", h.OverflowStringCount)
	}

	layout := ComputeLayout(h)
	small := data[layout.StringTable:layout.OverflowStrings]
	overflow := data[layout.OverflowStrings:layout.IdentifierHash]
	storage := data[layout.StringStorage : layout.StringStorage+uint64(h.StringStorageSize)]

	e := DecodeStringEntry(small, overflow, 1)
	if e.Length != uint32(len(long)) {
		t.Errorf("overflowed length = %d, want %d", e.Length, len(long))
	}
	if got := storage[e.Offset : e.Offset+e.Length]; !bytes.Equal(got, long) {
		t.Error("overflowed string bytes corrupted")
	}
}

func TestBuilderDeterministic(t *testing.T) {
	build := func() []byte {
		b := NewContainerBuilder()
		b.AddString("f", true)
		b.AddString("g", true)
		b.AddFunction(FunctionDef{Bytecode: []byte{1, 2}, NameID: 0})
		b.AddFunction(FunctionDef{
			Bytecode: []byte{3},
			NameID:   1,
			Handlers: []ExceptionHandlerInfo{{Start: 0, End: 1, Target: 0}},
		})
		data, err := b.Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		return data
	}

	first := build()
	second := build()
	if !bytes.Equal(first, second) {
		t.Error("identical inputs produced different containers")
	}
}

func TestBuilderGlobalIndexOutOfRange(t *testing.T) {
	b := NewContainerBuilder()
	b.AddFunction(FunctionDef{Bytecode: []byte{1}})
	b.SetGlobalCodeIndex(5)

	if _, err := b.Build(); err == nil {
		t.Error("accepted a global code index past the function count")
	}
}

func TestBuilderDebugFileIDOutOfRange(t *testing.T) {
	b := NewContainerBuilder()
	b.AddFunction(FunctionDef{
		Bytecode:  []byte{1},
		FileID:    3,
		Locations: []DebugLocation{{Address: 0, Line: 1, Column: 1}},
	})

	if _, err := b.Build(); err == nil {
		t.Error("accepted a debug file ID with no file table")
	}
}

func TestBuilderEpilogue(t *testing.T) {
	b := NewContainerBuilder()
	b.SetEpilogue([]byte("trailing"))

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h, _ := DecodeHeader(data)
	if got := data[h.FileLength:]; !bytes.Equal(got, []byte("trailing")) {
		t.Errorf("epilogue = %q, want %q", got, "trailing")
	}
}

func TestBuilderRoundTripValidates(t *testing.T) {
	b := NewContainerBuilder()
	nameID := b.AddString("run", true)
	fileID := b.AddDebugFile("run.js")
	b.AddFunction(FunctionDef{
		Bytecode:   []byte{1, 2, 3, 4, 5},
		NameID:     nameID,
		StrictMode: true,
		Handlers:   []ExceptionHandlerInfo{{Start: 0, End: 5, Target: 2}},
		FileID:     fileID,
		Locations:  []DebugLocation{{Address: 0, Line: 1, Column: 1}},
	})

	data, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h, err := DecodeHeader(data)
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if err := ComputeLayout(h).Validate(h, len(data)); err != nil {
		t.Errorf("built container failed validation: %v", err)
	}
	if h.DebugInfoOffset == 0 {
		t.Error("DebugInfoOffset = 0, want a debug region")
	}
}
