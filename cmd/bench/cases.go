// README: Bench checks; HTTP, channel events, Postgres/Redis reachability and a session load test.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"parcel/internal/chatclient"
	"parcel/internal/modules/transcript"
	"parcel/internal/protocol"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) wsURL() string {
	return "ws" + strings.TrimPrefix(r.cfg.BaseURL, "http") + "/ws"
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name:  "Env: Postgres transcript table",
			Focus: "DB",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "no DSN"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				var exists bool
				if err := r.db.QueryRow(ctx, "SELECT to_regclass('public.chat_messages') IS NOT NULL").Scan(&exists); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if !exists {
					return Result{Status: statusFail, Note: "chat_messages missing; apply migrations/0001_chat_messages.sql"}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Env: Redis ping",
			Focus: "Redis",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "no redis address"}
				}
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		httpCase("HTTP: GET /health", base+"/health", "OK"),
		httpCase("HTTP: GET /metrics", base+"/metrics", "parcel_channel_connections"),
		{
			Name:  "WS: bad conversation id rejected",
			Focus: "Channel",
			Run: func(ctx context.Context, r *Runner) Result {
				_, resp, err := websocket.DefaultDialer.DialContext(ctx, r.wsURL()+"?conversation=bad%20id", nil)
				if err == nil {
					return Result{Status: statusFail, Note: "handshake accepted"}
				}
				if resp == nil || resp.StatusCode != http.StatusBadRequest {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass, Note: "status=400"}
			},
		},
		channelCase("WS: unknown event", "teleport", nil, protocol.EventError, ""),
		channelCase("WS: sendMessage saved", protocol.EventSendMessage,
			[]transcript.Message{{Sender: transcript.RoleUser, Text: "bench"}},
			protocol.EventMessageSaved, ""),
		channelCase("WS: invalid message rejected", protocol.EventSendMessage,
			[]transcript.Message{{Text: "no sender"}},
			protocol.EventMessageError, `"Missing required fields"`),
		channelCase("WS: parcelData missing fields", protocol.EventParcelData,
			map[string]any{"source": "", "destination": "Jaipur", "weight": "1"},
			protocol.EventCalculationError, `"Missing parcel data"`),
		channelCase("WS: question before quote", protocol.EventChatgptQuestion, "How much?",
			protocol.EventChatgptError, ""),
		{
			Name:  "WS: live quote",
			Focus: "Pipeline",
			Run: func(ctx context.Context, r *Runner) Result {
				env, latency, err := r.exchange(ctx, protocol.EventParcelData, protocol.ParcelData{
					Source: r.cfg.Source, Destination: r.cfg.Destination, Weight: "1",
				})
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				switch env.Event {
				case protocol.EventCalculationResult:
					return Result{Status: statusPass, Latency: latency, Note: string(env.Data)}
				case protocol.EventCalculationError:
					return Result{Status: statusPending, Latency: latency, Note: string(env.Data)}
				}
				return Result{Status: statusFail, Note: "unexpected event " + env.Event}
			},
		},
		{
			Name:  "Perf: concurrent sessions",
			Focus: "Load",
			Run:   sessionLoad,
		},
	}
}

func httpCase(name, url, wantBody string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP",
		Run: func(ctx context.Context, r *Runner) Result {
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			latency := time.Since(start)

			if resp.StatusCode != http.StatusOK {
				return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			if !strings.Contains(string(body), wantBody) {
				return Result{Status: statusFail, Latency: latency, Note: "unexpected body"}
			}
			return Result{Status: statusPass, Latency: latency}
		},
	}
}

// channelCase sends one event and expects wantEvent back; wantData, when
// set, must match the raw payload.
func channelCase(name, event string, payload any, wantEvent, wantData string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Channel",
		Run: func(ctx context.Context, r *Runner) Result {
			env, latency, err := r.exchange(ctx, event, payload)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if env.Event != wantEvent {
				return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("got %s %s", env.Event, env.Data)}
			}
			if wantData != "" && string(env.Data) != wantData {
				return Result{Status: statusFail, Latency: latency, Note: "payload " + string(env.Data)}
			}
			return Result{Status: statusPass, Latency: latency}
		},
	}
}

// exchange opens a fresh session, sends one event and returns the first reply.
func (r *Runner) exchange(ctx context.Context, event string, payload any) (protocol.Envelope, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	conn, err := chatclient.Dial(ctx, r.wsURL(), "")
	if err != nil {
		return protocol.Envelope{}, 0, err
	}
	defer conn.Close()

	replies := make(chan protocol.Envelope, 1)
	go func() {
		_ = conn.ReadLoop(ctx, func(env protocol.Envelope) {
			select {
			case replies <- env:
			default:
			}
		})
	}()

	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return protocol.Envelope{}, 0, err
	}
	start := time.Now()
	if err := conn.Send(env); err != nil {
		return protocol.Envelope{}, 0, err
	}
	select {
	case reply := <-replies:
		return reply, time.Since(start), nil
	case <-ctx.Done():
		return protocol.Envelope{}, 0, errors.New("no reply before timeout")
	}
}

func sessionLoad(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				env, _, err := r.exchange(ctx, protocol.EventSendMessage,
					[]transcript.Message{{Sender: transcript.RoleUser, Text: "load"}})
				if err != nil || env.Event != protocol.EventMessageSaved {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: statusFail, Note: "no exchanges completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("exchanges/s=%.1f errors=%d", rps, errCount.Load())}
}
