package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/pairchat/internal/auth"
	"github.com/vovakirdan/pairchat/internal/chatclient"
	"github.com/vovakirdan/pairchat/internal/chatsync"
	"github.com/vovakirdan/pairchat/internal/chatsync/badgercache"
	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/utils"
)

var (
	watchOpen     string
	watchCacheDir string
	watchNoCache  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay connected and print the chat list on every change",
	Long: `Connect to the push channel and keep a local chat list in sync.

The list with unread counters is printed after every change. Lines read
from stdin are sent to the open chat; "/open <chat-id>" switches chats and
"/close" leaves the open one. --open selects a chat at start.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	flags := watchCmd.Flags()
	flags.StringVar(&watchOpen, "open", "", "chat id to select")
	flags.StringVar(&watchCacheDir, "cache", defaultCacheDir(), "directory for the local chat state")
	flags.BoolVar(&watchNoCache, "no-cache", false, "keep chat state in memory only")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pairchat")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	client, err := apiClient()
	if err != nil {
		return err
	}
	selfID, err := auth.PeekUserID(token)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}

	dir := watchCacheDir
	if watchNoCache {
		dir = ""
	}
	cache, err := badgercache.Open(dir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if errClose := cache.Close(); errClose != nil {
			logger.Warn().Err(errClose).Msg("failed to close cache")
		}
	}()

	engine, err := chatsync.NewEngine(ctx, selfID, cache, client, logger)
	if err != nil {
		return err
	}
	engine.OnChange(func(s chatsync.State) {
		fmt.Printf("\n-- %d unread --\n", s.TotalUnread())
		if errPrint := printChats(s.Summaries(), s.UnreadCount); errPrint != nil {
			logger.Warn().Err(errPrint).Msg("failed to print chats")
		}
	})

	rt := chatclient.NewRealtime(serverURL, token, nil, logger)
	rt.OnConnected(func(ctx context.Context, data proto.ConnectedData) {
		logger.Info().Str("connection_id", data.ConnectionID).Msg("connected")
		if errSync := engine.Resync(ctx); errSync != nil {
			logger.Warn().Err(errSync).Msg("resync failed")
		}
	})
	rt.OnEvent(func(env proto.Envelope) {
		switch env.Event {
		case proto.EventTyping:
			fmt.Fprintln(os.Stderr, "typing...")
			return
		case proto.EventStopTyping:
			return
		}
		if errApply := engine.HandleEvent(ctx, env); errApply != nil {
			logger.Warn().Err(errApply).Str("event", env.Event).Msg("failed to apply event")
		}
	})

	chat := &chatSession{client: client, engine: engine, rt: rt}
	if watchOpen != "" {
		// Resolved before the first resync so a stale chat can still be
		// recovered from its cached participants.
		if errOpen := chat.open(ctx, watchOpen); errOpen != nil {
			return errOpen
		}
	}
	go chat.readLines(ctx, os.Stdin)

	err = rt.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type chatGetter interface {
	GetChat(ctx context.Context, chatID string) (proto.ChatSummary, error)
}

// recipientFor names the other participant of chatID. A chat the server no
// longer knows falls back to the cached summary.
func recipientFor(ctx context.Context, getter chatGetter, state chatsync.State, chatID string) string {
	if chat, err := getter.GetChat(ctx, chatID); err == nil && chat.OtherUser != nil && chat.OtherUser.ID != "" {
		return chat.OtherUser.ID
	}
	peer, _ := state.Peer(chatID)
	return peer
}

// chatSession sends stdin lines to the open chat. Lines starting with
// "/open <chat-id>" switch chats and "/close" leaves the open one.
type chatSession struct {
	client    *chatclient.Client
	engine    *chatsync.Engine
	rt        *chatclient.Realtime
	recipient string
}

func (c *chatSession) open(ctx context.Context, chatID string) error {
	c.recipient = recipientFor(ctx, c.client, c.engine.State(), chatID)
	if err := c.engine.Select(ctx, chatID); err != nil {
		return err
	}
	return c.rt.JoinChat(ctx, chatID)
}

func (c *chatSession) close(ctx context.Context) error {
	c.recipient = ""
	if err := c.rt.LeaveChat(ctx); err != nil && !errors.Is(err, chatclient.ErrNotConnected) {
		return err
	}
	return c.engine.Select(ctx, "")
}

func (c *chatSession) readLines(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		var err error
		switch {
		case text == "":
			continue
		case text == "/close":
			err = c.close(ctx)
		case strings.HasPrefix(text, "/open "):
			err = c.open(ctx, strings.TrimSpace(strings.TrimPrefix(text, "/open ")))
		default:
			err = c.send(ctx, text)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func (c *chatSession) send(ctx context.Context, text string) error {
	chatID := c.engine.State().OpenChatID
	if chatID == "" {
		return errors.New("no open chat: use /open <chat-id>")
	}
	tempID := utils.NewID()
	if err := c.engine.AddPending(ctx, tempID, chatID); err != nil {
		return err
	}
	msg, err := c.client.SendMessage(ctx, chatID, proto.SendMessageRequest{
		Content:     text,
		TempID:      tempID,
		RecipientID: c.recipient,
	})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if note := recoveryNote(msg); note != "" {
		fmt.Fprintln(os.Stderr, note)
		if errJoin := c.rt.JoinChat(ctx, msg.NewChatID); errJoin != nil {
			fmt.Fprintln(os.Stderr, "join failed:", errJoin)
		}
	}
	return c.engine.ApplySendResult(ctx, msg)
}
