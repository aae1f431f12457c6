package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samvad-hq/review-harvester/internal/config"
	"github.com/samvad-hq/review-harvester/internal/logger"
	"github.com/samvad-hq/review-harvester/pkg/chat"
)

// Usage: chat
// Reads one message per line from stdin; "/reset" clears the history and
// "/quit" or EOF exits.
func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chat failed: %v\n", err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	session, err := chat.NewSession(chat.Options{
		APIKey:        cfg.ChatAPIKey,
		BaseURL:       cfg.ChatBaseURL,
		Model:         cfg.ChatModel,
		HistoryWindow: cfg.ChatHistoryWindow,
	})
	if err != nil {
		return fmt.Errorf("init chat: %w", err)
	}
	logger.InfoObj("chat session started", "chat_config", map[string]any{
		"base_url":       cfg.ChatBaseURL,
		"model":          cfg.ChatModel,
		"history_window": cfg.ChatHistoryWindow,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/reset":
			session.Reset()
			fmt.Fprintln(out, "history cleared")
		default:
			reply, err := session.Send(ctx, line)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.ErrorObj("chat request failed", "error", err.Error())
				fmt.Fprintf(out, "request failed: %v\n", err)
				break
			}
			fmt.Fprintln(out, reply)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
