package waithandle

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoneIsImmediatelyReady(t *testing.T) {
	h := Done(nil)
	done, err := h.Ready()
	if !done || err != nil {
		t.Fatalf("Done handle should be ready with nil error, got done=%v err=%v", done, err)
	}
}

func TestCompleteUnblocksWait(t *testing.T) {
	h := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Complete(errBoom)
	}()
	if err := h.Wait(context.Background()); err != errBoom {
		t.Fatalf("Wait returned %v, want %v", err, errBoom)
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Wait(ctx); err == nil {
		t.Fatal("expected Wait to return the context error")
	}
}

func TestCompleteTwicePanics(t *testing.T) {
	h := New()
	h.Complete(nil)
	defer func() {
		if recover() == nil {
			t.Fatal("expected second Complete to panic")
		}
	}()
	h.Complete(nil)
}

var errBoom = errors.New("boom")
