package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacerAllowsFirstSubmissionImmediately(t *testing.T) {
	pacer := NewPacer(time.Second)

	if !pacer.Allow() {
		t.Error("first submission should be allowed immediately")
	}
	if pacer.Allow() {
		t.Error("second submission should wait out the interval")
	}
}

func TestPacerWaits(t *testing.T) {
	pacer := NewPacer(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := pacer.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := pacer.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	if elapsed < 40*time.Millisecond {
		t.Errorf("second wait should take about the interval, took %v", elapsed)
	}
}

func TestPacerWaitCancellable(t *testing.T) {
	pacer := NewPacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("first wait should pass: %v", err)
	}
	if err := pacer.Wait(ctx); err == nil {
		t.Error("a wait longer than the context deadline must fail")
	}
}
