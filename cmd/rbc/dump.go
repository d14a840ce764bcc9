package main

import (
	"fmt"
	"io"

	"github.com/chazu/ripley/manifest"
	"github.com/chazu/ripley/pkg/bytecode"
	"github.com/chazu/ripley/pkg/provider"
)

// dump writes a human-readable listing of the container to w.
func dump(w io.Writer, path string, p *provider.BufferProvider, showStrings bool) {
	h := p.Header()
	srcHash := p.SourceHash()

	fmt.Fprintf(w, "Container:      %s\n", path)
	fmt.Fprintf(w, "Version:        %d\n", h.Version)
	fmt.Fprintf(w, "Source hash:    %s\n", manifest.HashHex(srcHash[:]))
	fmt.Fprintf(w, "File length:    %d\n", h.FileLength)
	fmt.Fprintf(w, "Options:        %s\n", describeOptions(h.Options))
	fmt.Fprintf(w, "Functions:      %d (global: %d)\n", h.FunctionCount, h.GlobalCodeIndex)
	fmt.Fprintf(w, "Strings:        %d (%d identifiers, %d overflow)\n",
		h.StringCount, h.IdentifierCount, h.OverflowStringCount)
	fmt.Fprintf(w, "RegExps:        %d\n", h.RegExpCount)
	fmt.Fprintf(w, "CJS modules:    %d dynamic, %d static\n", h.CJSModuleCount, h.CJSModuleStaticCount)
	if len(p.Epilogue()) > 0 {
		fmt.Fprintf(w, "Epilogue:       %d bytes\n", len(p.Epilogue()))
	}

	fmt.Fprintf(w, "\nFunctions:\n")
	for id := uint32(0); id < h.FunctionCount; id++ {
		dumpFunction(w, p, id)
	}

	if showStrings {
		fmt.Fprintf(w, "\nStrings:\n")
		for id := uint32(0); id < h.StringCount; id++ {
			dumpString(w, p, id)
		}
	}
}

func dumpFunction(w io.Writer, p *provider.BufferProvider, id uint32) {
	hdr := p.FunctionHeader(id)
	name := string(provider.StringFromID(p, hdr.FunctionNameID()))
	if name == "" {
		name = "<anonymous>"
	}
	kind := "small"
	if hdr.Large() {
		kind = "large"
	}
	fmt.Fprintf(w, "  [%d] %s: %d bytes at 0x%x (virtual 0x%x), %d params, frame %d, %s header\n",
		id, name, hdr.BytecodeLength(), hdr.BytecodeOffset(),
		provider.VirtualOffsetForFunction(p, id), hdr.ParamCount(), hdr.FrameSize(), kind)

	flags := hdr.Flags()
	if flags&bytecode.FlagHasExceptionHandler != 0 {
		table := p.ExceptionTable(id)
		for i := 0; i < table.Len(); i++ {
			e := table.At(i)
			fmt.Fprintf(w, "      handler [0x%x, 0x%x) -> 0x%x\n", e.Start, e.End, e.Target)
		}
	}
	if offsets := p.DebugOffsets(id); offsets != nil {
		if loc, ok := provider.LocationForAddress(p, id, 0); ok {
			fmt.Fprintf(w, "      source %s\n", loc)
		}
	}
}

func dumpString(w io.Writer, p *provider.BufferProvider, id uint32) {
	entry := p.StringTableEntry(id)
	tag := "s"
	if entry.IsUTF16 {
		tag = "u"
	}
	if entry.IsIdentifier {
		tag += "i"
	}
	raw := provider.StringFromID(p, id)
	if entry.IsUTF16 {
		fmt.Fprintf(w, "  [%d] %s <%d utf16 units>\n", id, tag, entry.Length)
	} else {
		fmt.Fprintf(w, "  [%d] %s %q\n", id, tag, string(raw))
	}
}

func describeOptions(opts bytecode.BytecodeOptions) string {
	if opts == 0 {
		return "none"
	}
	s := ""
	if opts&bytecode.OptionStaticBuiltins != 0 {
		s += "static-builtins "
	}
	if opts&bytecode.OptionCJSResolvedStatically != 0 {
		s += "cjs-resolved-statically "
	}
	return s[:len(s)-1]
}
