package bytecode

import "testing"

func TestSmallHeaderRoundTrip(t *testing.T) {
	v := FuncHeaderValues{
		BytecodeOffset:  12345,
		BytecodeLength:  678,
		ParamCount:      3,
		FunctionNameID:  42,
		InfoOffset:      20000,
		FrameSize:       17,
		EnvironmentSize: 4,
		ReadCacheSize:   5,
		WriteCacheSize:  6,
		Flags:           FlagStrictMode | FlagHasExceptionHandler | FuncHeaderFlags(ProhibitConstruct),
	}
	if !v.FitsSmall() {
		t.Fatal("values should fit the compact shape")
	}

	slot := v.AppendSmall(nil)
	if len(slot) != SmallFuncHeaderSize {
		t.Fatalf("compact slot size = %d, want %d", len(slot), SmallFuncHeaderSize)
	}
	if SmallSlotOverflowed(slot) {
		t.Fatal("compact slot reports overflowed")
	}

	r := NewSmallFunctionHeaderRef(slot)
	checkHeaderValues(t, r, v)
	if r.Large() {
		t.Error("Large() = true for compact slot")
	}
}

func TestLargeHeaderRoundTrip(t *testing.T) {
	v := FuncHeaderValues{
		BytecodeOffset:  1 << 26, // exceeds the compact offset width
		BytecodeLength:  100000,
		ParamCount:      300,
		FunctionNameID:  1 << 20,
		InfoOffset:      1 << 27,
		FrameSize:       500,
		EnvironmentSize: 1000,
		ReadCacheSize:   200,
		WriteCacheSize:  201,
		Flags:           FlagHasDebugInfo,
	}
	if v.FitsSmall() {
		t.Fatal("values should not fit the compact shape")
	}

	rec := v.AppendLarge(nil)
	if len(rec) != 1+LargeFuncHeaderSize {
		t.Fatalf("large record size = %d, want %d", len(rec), 1+LargeFuncHeaderSize)
	}
	if rec[0] != 0 {
		t.Errorf("lead byte = %d, want 0", rec[0])
	}

	r := NewLargeFunctionHeaderRef(rec)
	want := v
	want.Flags |= FlagOverflowed
	checkHeaderValues(t, r, want)
	if !r.Large() {
		t.Error("Large() = false for large record")
	}
}

// checkHeaderValues verifies every accessor against the logical values, so
// both shapes are held to the same contract.
func checkHeaderValues(t *testing.T, r FunctionHeaderRef, v FuncHeaderValues) {
	t.Helper()
	if got := r.BytecodeOffset(); got != v.BytecodeOffset {
		t.Errorf("BytecodeOffset = %d, want %d", got, v.BytecodeOffset)
	}
	if got := r.BytecodeLength(); got != v.BytecodeLength {
		t.Errorf("BytecodeLength = %d, want %d", got, v.BytecodeLength)
	}
	if got := r.ParamCount(); got != v.ParamCount {
		t.Errorf("ParamCount = %d, want %d", got, v.ParamCount)
	}
	if got := r.FunctionNameID(); got != v.FunctionNameID {
		t.Errorf("FunctionNameID = %d, want %d", got, v.FunctionNameID)
	}
	if got := r.InfoOffset(); got != v.InfoOffset {
		t.Errorf("InfoOffset = %d, want %d", got, v.InfoOffset)
	}
	if got := r.FrameSize(); got != v.FrameSize {
		t.Errorf("FrameSize = %d, want %d", got, v.FrameSize)
	}
	if got := r.EnvironmentSize(); got != v.EnvironmentSize {
		t.Errorf("EnvironmentSize = %d, want %d", got, v.EnvironmentSize)
	}
	if got := r.ReadCacheSize(); got != v.ReadCacheSize {
		t.Errorf("ReadCacheSize = %d, want %d", got, v.ReadCacheSize)
	}
	if got := r.WriteCacheSize(); got != v.WriteCacheSize {
		t.Errorf("WriteCacheSize = %d, want %d", got, v.WriteCacheSize)
	}
	if got := r.Flags(); got&^FlagOverflowed != v.Flags&^FlagOverflowed {
		t.Errorf("Flags = 0x%02x, want 0x%02x", got, v.Flags)
	}
}

func TestSmallHeaderMaxFields(t *testing.T) {
	// Every field at its compact maximum must survive packing intact.
	v := FuncHeaderValues{
		BytecodeOffset:  MaxSmallBytecodeOffset,
		BytecodeLength:  MaxSmallBytecodeLength,
		ParamCount:      MaxSmallParamCount,
		FunctionNameID:  MaxSmallFunctionNameID,
		InfoOffset:      MaxSmallInfoOffset,
		FrameSize:       MaxSmallFrameSize,
		EnvironmentSize: MaxSmallEnvironment,
		ReadCacheSize:   255,
		WriteCacheSize:  255,
	}
	if !v.FitsSmall() {
		t.Fatal("maximum compact values should fit")
	}
	checkHeaderValues(t, NewSmallFunctionHeaderRef(v.AppendSmall(nil)), v)
}

func TestFitsSmallLimits(t *testing.T) {
	tests := []struct {
		name string
		v    FuncHeaderValues
		want bool
	}{
		{"zero", FuncHeaderValues{}, true},
		{"offset too wide", FuncHeaderValues{BytecodeOffset: MaxSmallBytecodeOffset + 1}, false},
		{"length too wide", FuncHeaderValues{BytecodeLength: MaxSmallBytecodeLength + 1}, false},
		{"params too wide", FuncHeaderValues{ParamCount: MaxSmallParamCount + 1}, false},
		{"name too wide", FuncHeaderValues{FunctionNameID: MaxSmallFunctionNameID + 1}, false},
		{"info too wide", FuncHeaderValues{InfoOffset: MaxSmallInfoOffset + 1}, false},
		{"frame too wide", FuncHeaderValues{FrameSize: MaxSmallFrameSize + 1}, false},
		{"env too wide", FuncHeaderValues{EnvironmentSize: MaxSmallEnvironment + 1}, false},
	}
	for _, tt := range tests {
		if got := tt.v.FitsSmall(); got != tt.want {
			t.Errorf("%s: FitsSmall() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOverflowSlot(t *testing.T) {
	slot := AppendOverflowSlot(nil, 0xDEADBEEF, FlagStrictMode)
	if len(slot) != SmallFuncHeaderSize {
		t.Fatalf("slot size = %d, want %d", len(slot), SmallFuncHeaderSize)
	}
	if !SmallSlotOverflowed(slot) {
		t.Fatal("overflow slot not marked overflowed")
	}
	if got := SmallSlotLargeOffset(slot); got != 0xDEADBEEF {
		t.Errorf("SmallSlotLargeOffset = 0x%x, want 0xDEADBEEF", got)
	}
	flags := FuncHeaderFlags(slot[15])
	if !flags.StrictMode() {
		t.Error("strict mode flag lost in overflow slot")
	}
}

func TestFlagAccessors(t *testing.T) {
	f := FuncHeaderFlags(ProhibitCall) | FlagStrictMode | FlagHasDebugInfo
	if got := f.Prohibit(); got != ProhibitCall {
		t.Errorf("Prohibit() = %v, want %v", got, ProhibitCall)
	}
	if !f.StrictMode() {
		t.Error("StrictMode() = false")
	}
	if f.HasExceptionHandler() {
		t.Error("HasExceptionHandler() = true")
	}
	if !f.HasDebugInfo() {
		t.Error("HasDebugInfo() = false")
	}
	if f.Overflowed() {
		t.Error("Overflowed() = true")
	}
}

func TestProhibitInvokeString(t *testing.T) {
	tests := []struct {
		p    ProhibitInvoke
		want string
	}{
		{ProhibitNone, "none"},
		{ProhibitCall, "call"},
		{ProhibitConstruct, "construct"},
		{ProhibitInvoke(7), "ProhibitInvoke(7)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("ProhibitInvoke(%d).String() = %q, want %q", uint8(tt.p), got, tt.want)
		}
	}
}
