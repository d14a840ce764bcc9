// rbc inspects RBC bytecode containers: probe, validate, dump, summarize.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/ripley/manifest"
	"github.com/chazu/ripley/pkg/provider"

	_ "github.com/tliron/commonlog/simple"
)

const toolVersion = "0.3.0"

func main() {
	probe := flag.Bool("probe", false, "Check whether the file is plausibly a container and exit")
	check := flag.Bool("check", false, "Run the full table-bounds sanity check and exit")
	hash := flag.Bool("hash", false, "Print the source hash and exit")
	epilogue := flag.Bool("epilogue", false, "Decode the pack record from the container epilogue")
	summaryOut := flag.String("summary", "", "Write a CBOR container summary to the given path")
	warmupPct := flag.Int("warmup", 0, "Warm up this percentage of the container before dumping")
	showStrings := flag.Bool("strings", false, "Include the string table in the dump")
	verbose := flag.Int("v", 0, "Log verbosity")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rbc [options] container.rbc\n\n")
		fmt.Fprintf(os.Stderr, "Inspects an RBC bytecode container.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rbc app.rbc                  # Dump header and function list\n")
		fmt.Fprintf(os.Stderr, "  rbc -probe app.rbc           # Exit 0 if app.rbc looks like a container\n")
		fmt.Fprintf(os.Stderr, "  rbc -summary app.cbor app.rbc # Emit a CBOR summary\n")
		fmt.Fprintf(os.Stderr, "  rbc -warmup 25 app.rbc       # Pre-fault 25%% before dumping\n")
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ripley.toml, when present, supplies dump defaults.
	if m, err := manifest.FindAndLoad("."); err == nil && m != nil {
		if *warmupPct == 0 {
			*warmupPct = m.Inspection.WarmupPercent
		}
		if m.Inspection.ShowStrings {
			*showStrings = true
		}
	}

	if *probe {
		if !provider.IsBytecodeStream(data) {
			fmt.Printf("%s: not a container\n", path)
			os.Exit(1)
		}
		fmt.Printf("%s: container\n", path)
		return
	}

	if *check {
		if err := provider.SanityCheck(data, true); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s: ok\n", path)
		return
	}

	if *hash {
		h := provider.SourceHashFromBytecode(data)
		fmt.Println(manifest.HashHex(h[:]))
		return
	}

	if *epilogue {
		dumpEpilogue(path, data)
		return
	}

	p, err := provider.NewBufferProvider(provider.NewBytesBuffer(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
		os.Exit(1)
	}
	defer p.Close()

	if *warmupPct > 0 {
		p.StartWarmup(uint8(*warmupPct))
		defer p.StopWarmup()
	}

	if *summaryOut != "" {
		if err := writeSummary(*summaryOut, p); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote summary to %s\n", *summaryOut)
		return
	}

	dump(os.Stdout, path, p, *showStrings)
}

func dumpEpilogue(path string, data []byte) {
	tail := provider.EpilogueFromBytecode(data)
	if len(tail) == 0 {
		fmt.Printf("%s: no epilogue\n", path)
		return
	}
	rec, err := manifest.DecodePackRecord(tail)
	if err != nil {
		fmt.Printf("%s: %d epilogue bytes (not a pack record)\n", path, len(tail))
		return
	}
	fmt.Printf("Build ID:     %s\n", rec.BuildID)
	fmt.Printf("Tool version: %s\n", rec.ToolVersion)
	fmt.Printf("Created at:   %d\n", rec.CreatedAt)
	if rec.Note != "" {
		fmt.Printf("Note:         %s\n", rec.Note)
	}
}

func writeSummary(path string, p *provider.BufferProvider) error {
	h := p.Header()
	srcHash := p.SourceHash()
	data, err := manifest.EncodeSummary(manifest.Summary{
		Version:        h.Version,
		SourceHash:     manifest.HashHex(srcHash[:]),
		FunctionCount:  h.FunctionCount,
		StringCount:    h.StringCount,
		RegExpCount:    h.RegExpCount,
		CJSModuleCount: h.CJSModuleCount,
		FileLength:     h.FileLength,
		Options:        uint8(h.Options),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
