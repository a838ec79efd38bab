// README: Smoke/benchmark runner against a running parcel-api; executes HTTP, channel, DB and Redis checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	counts := tally(NewRunner(cfg).RunAll(ctx))
	fmt.Printf("\n%s=%d %s=%d %s=%d %s=%d\n",
		statusPass, counts[statusPass], statusFail, counts[statusFail],
		statusPending, counts[statusPending], statusSkip, counts[statusSkip])

	if failed(counts, cfg.Strict) {
		os.Exit(1)
	}
}

const (
	statusPass    = "PASS"
	statusFail    = "FAIL"
	statusPending = "PENDING"
	statusSkip    = "SKIP"
)

func tally(results []Result) map[string]int {
	counts := make(map[string]int, 4)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// failed reports whether the run should exit non-zero. Pending checks (live
// providers unreachable) only fail a strict run.
func failed(counts map[string]int, strict bool) bool {
	return counts[statusFail] > 0 || (strict && counts[statusPending] > 0)
}

type Config struct {
	BaseURL     string
	DSN         string
	RedisAddr   string
	Source      string
	Destination string
	Strict      bool
	Timeout     time.Duration
	Concurrency int
	Duration    time.Duration
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("PARCEL_BENCH_BASE_URL", "http://localhost:3000"), "API base URL")
	flag.StringVar(&cfg.DSN, "dsn", os.Getenv("PARCEL_DB_DSN"), "Postgres DSN (optional)")
	flag.StringVar(&cfg.RedisAddr, "redis", os.Getenv("PARCEL_REDIS_ADDR"), "Redis address (optional)")
	flag.StringVar(&cfg.Source, "source", envOrDefault("PARCEL_BENCH_SOURCE", "New Delhi"), "Source place for the live quote check")
	flag.StringVar(&cfg.Destination, "destination", envOrDefault("PARCEL_BENCH_DESTINATION", "Jaipur"), "Destination place for the live quote check")
	flag.BoolVar(&cfg.Strict, "strict", envBool("PARCEL_BENCH_STRICT"), "Fail on pending checks")
	flag.DurationVar(&cfg.Timeout, "timeout", envDuration("PARCEL_BENCH_TIMEOUT", 60*time.Second), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envInt("PARCEL_BENCH_CONCURRENCY", 20), "Concurrent sessions for the load check")
	flag.DurationVar(&cfg.Duration, "duration", envDuration("PARCEL_BENCH_DURATION", 10*time.Second), "Duration of the load check")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}
