package provider

import (
	"os"
	"unsafe"
)

// warmupChunkSize is how many bytes each page hint covers. The abort flag
// is checked between chunks, so this also bounds how long StopWarmup can
// block behind an in-flight hint.
const warmupChunkSize = 256 * 1024

// StartWarmup spawns a background worker that asks the OS to pre-fault up
// to percent of the container into the page cache, most-likely-first: the
// fixed tables (headers and strings are touched on nearly every load),
// then the top-level function's instructions, then the remaining function
// data in order. At most one worker runs at a time; a second call while
// one is running is a no-op. All hints are advisory; the worker never
// writes to the buffer and normal reads may proceed concurrently.
func (p *BufferProvider) StartWarmup(percent uint8) {
	if percent > 100 {
		percent = 100
	}

	p.warmupMu.Lock()
	defer p.warmupMu.Unlock()
	if p.warmupDone != nil || percent == 0 {
		return
	}

	p.warmupAbort.Store(false)
	done := make(chan struct{})
	p.warmupDone = done
	go p.warmup(percent, done)
}

// StopWarmup tells any running worker to abort, then waits for it to exit.
// The worker polls the flag between hint calls, so the wait is bounded by
// one chunk's hint. Idempotent; a call with no worker running returns
// immediately.
func (p *BufferProvider) StopWarmup() {
	p.warmupMu.Lock()
	defer p.warmupMu.Unlock()
	if p.warmupDone == nil {
		return
	}
	p.warmupAbort.Store(true)
	<-p.warmupDone
	p.warmupDone = nil
}

func (p *BufferProvider) warmup(percent uint8, done chan struct{}) {
	defer close(done)

	budget := uint64(p.header.FileLength) * uint64(percent) / 100

	ranges := [][2]uint64{{0, p.layout.End}}

	// The global function's bytecode is hinted ahead of the rest of the
	// function data even though its range lies inside it; the duplicate
	// hint is harmless. A container can hold zero functions, in which
	// case there is no global function to prioritize.
	if p.header.FunctionCount > 0 {
		globalHdr := p.FunctionHeader(p.header.GlobalCodeIndex)
		start := uint64(globalHdr.BytecodeOffset())
		ranges = append(ranges, [2]uint64{start, start + uint64(globalHdr.BytecodeLength())})
	}
	ranges = append(ranges, [2]uint64{p.layout.End, uint64(p.header.FileLength)})

	for _, r := range ranges {
		for off := r[0]; off < r[1] && budget > 0; off += warmupChunkSize {
			if p.warmupAbort.Load() {
				return
			}
			n := uint64(warmupChunkSize)
			if off+n > r[1] {
				n = r[1] - off
			}
			if n > budget {
				n = budget
			}
			budget -= n
			if chunk := pageAlign(p.data, off, n); chunk != nil {
				if err := adviseWillNeed(chunk); err != nil {
					log.Debugf("page hint at %d: %s", off, err.Error())
				}
			}
		}
	}
}

// pageAlign widens [off, off+length) down to the enclosing page boundary,
// clamped to the buffer, since the kernel rejects unaligned hint ranges.
// Returns nil when nothing usable remains.
func pageAlign(data []byte, off, length uint64) []byte {
	if len(data) == 0 {
		return nil
	}
	page := uint64(os.Getpagesize())
	base := uint64(uintptr(unsafe.Pointer(&data[0])))

	start := off
	if misalign := (base + off) % page; misalign != 0 && off >= misalign {
		start = off - misalign
	}
	end := off + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	if start >= end {
		return nil
	}
	return data[start:end]
}
