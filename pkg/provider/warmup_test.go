package provider

import (
	"testing"
	"time"

	"github.com/chazu/ripley/pkg/bytecode"
)

func TestWarmupStartStop(t *testing.T) {
	p := newTestProvider(t)

	p.StartWarmup(50)
	done := make(chan struct{})
	go func() {
		p.StopWarmup()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("StopWarmup did not return")
	}
}

func TestWarmupStopWithoutStart(t *testing.T) {
	p := newTestProvider(t)

	// Must be a no-op, not a deadlock.
	p.StopWarmup()
	p.StopWarmup()
}

func TestWarmupStopIdempotent(t *testing.T) {
	p := newTestProvider(t)

	p.StartWarmup(100)
	p.StopWarmup()
	p.StopWarmup()
}

func TestWarmupZeroPercentIsNoop(t *testing.T) {
	p := newTestProvider(t)

	p.StartWarmup(0)
	p.StopWarmup()
}

func TestWarmupPercentClamped(t *testing.T) {
	p := newTestProvider(t)

	// Anything past 100 means the whole container.
	p.StartWarmup(250)
	p.StopWarmup()
}

func TestWarmupEmptyContainer(t *testing.T) {
	// A container with no functions has no global function to prioritize;
	// the worker must hint what exists and exit cleanly.
	data, err := bytecode.NewContainerBuilder().Build()
	if err != nil {
		t.Fatalf("building empty container: %v", err)
	}
	p, err := NewBufferProvider(NewBytesBuffer(data))
	if err != nil {
		t.Fatalf("NewBufferProvider failed: %v", err)
	}
	defer p.Close()

	p.StartWarmup(100)
	p.StopWarmup()
}

func TestWarmupSecondStartIgnoredWhileRunning(t *testing.T) {
	p := newTestProvider(t)

	p.StartWarmup(100)
	p.StartWarmup(100)
	p.StopWarmup()
}

func TestCloseStopsWarmup(t *testing.T) {
	buf := NewBytesBuffer(buildTestContainer(t))
	p, err := NewBufferProvider(buf)
	if err != nil {
		t.Fatalf("NewBufferProvider failed: %v", err)
	}

	p.StartWarmup(100)

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return with a warmup running")
	}
}
