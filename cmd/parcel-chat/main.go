// README: Terminal chat client; runs the intake form against parcel-api and then forwards free-form questions.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"parcel/internal/chatclient"
)

func main() {
	endpoint := flag.String("url", envOrDefault("PARCEL_CHAT_URL", "ws://localhost:3000/ws"), "chat channel websocket URL")
	conversation := flag.String("conversation", envOrDefault("PARCEL_CONVERSATION_ID", uuid.NewString()), "conversation id")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := chatclient.Dial(ctx, *endpoint, *conversation)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	client := chatclient.New(conn, printLine, chatclient.DefaultOptions())

	go func() {
		if err := conn.ReadLoop(ctx, client.HandleEvent); err != nil {
			fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
		}
		stop()
	}()

	fmt.Printf("conversation %s (Ctrl+C to quit)\n", *conversation)
	client.Start()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			client.Input(line)
		}
	}
}

// printLine skips user lines; the terminal already shows what was typed.
func printLine(l chatclient.Line) {
	switch l.Kind {
	case chatclient.LineBot:
		fmt.Printf("bot> %s\n", l.Text)
	case chatclient.LineNotice:
		fmt.Printf("  ! %s\n", l.Text)
	}
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
