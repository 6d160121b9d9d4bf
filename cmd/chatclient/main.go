package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/pairchat/internal/chatclient"
	"github.com/vovakirdan/pairchat/internal/log"
)

var (
	serverURL string
	token     string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "chatclient",
	Short: "Terminal client for a pairchat server",
	Long: `Terminal client for a pairchat server.

Defaults for --server and --token are read from PAIRCHAT_SERVER and
PAIRCHAT_TOKEN, which may also come from a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: load .env:", err)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&serverURL, "server", envOr("PAIRCHAT_SERVER", "http://localhost:8080"), "server base URL")
	flags.StringVar(&token, "token", os.Getenv("PAIRCHAT_TOKEN"), "bearer token")
	flags.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(registerCmd, loginCmd, usersCmd, chatsCmd, openCmd, sendCmd, historyCmd, watchCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func apiClient() (*chatclient.Client, error) {
	if token == "" {
		return nil, errors.New("no token: pass --token or set PAIRCHAT_TOKEN (see the login command)")
	}
	return chatclient.NewClient(serverURL, token), nil
}

// logger writes to stderr so stdout stays usable for command output.
func newLogger() *zerolog.Logger {
	return log.NewWithWriter(os.Stderr, logLevel)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
