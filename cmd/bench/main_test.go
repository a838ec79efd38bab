package main

import (
	"testing"
	"time"
)

func TestFailed(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		strict  bool
		want    bool
	}{
		{"all pass", []Result{{Status: statusPass}, {Status: statusSkip}}, true, false},
		{"one failure", []Result{{Status: statusPass}, {Status: statusFail}}, false, true},
		{"pending lenient", []Result{{Status: statusPending}}, false, false},
		{"pending strict", []Result{{Status: statusPending}}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failed(tally(tt.results), tt.strict); got != tt.want {
				t.Fatalf("failed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("PARCEL_BENCH_CONCURRENCY", "abc")
	if got := envInt("PARCEL_BENCH_CONCURRENCY", 20); got != 20 {
		t.Fatalf("expected default for garbage, got %d", got)
	}
	t.Setenv("PARCEL_BENCH_CONCURRENCY", "5")
	if got := envInt("PARCEL_BENCH_CONCURRENCY", 20); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	t.Setenv("PARCEL_BENCH_DURATION", "-1s")
	if got := envDuration("PARCEL_BENCH_DURATION", time.Second); got != time.Second {
		t.Fatalf("expected default for negative duration, got %s", got)
	}
	t.Setenv("PARCEL_BENCH_STRICT", "true")
	if !envBool("PARCEL_BENCH_STRICT") {
		t.Fatal("expected strict")
	}
}
