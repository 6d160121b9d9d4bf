package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/pairchat/internal/chatclient"
	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/utils"
)

var registerCmd = &cobra.Command{
	Use:   "register <username> <password>",
	Short: "Create an account and print its token",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := chatclient.NewClient(serverURL, "").Register(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:     "login <username> <password>",
	Short:   "Log in and print a token",
	Example: `  export PAIRCHAT_TOKEN=$(chatclient login alice secret1)`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := chatclient.NewClient(serverURL, "").Login(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users <query>",
	Short: "Search other users by username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		users, err := client.SearchUsers(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\n", u.ID, u.Username)
		}
		return w.Flush()
	},
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List your chats, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		chats, err := client.ListChats(cmd.Context())
		if err != nil {
			return err
		}
		return printChats(chats, nil)
	},
}

var openCmd = &cobra.Command{
	Use:   "open <recipient-id>",
	Short: "Open (or resurface) the chat with another user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		chat, err := client.CreateChat(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(chat.ID)
		return nil
	},
}

var sendRecipient string

var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <text...>",
	Short: "Send a message",
	Long: `Send a message to a chat.

With --to, a chat that no longer exists is restored or recreated with that
user and the outcome is printed.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		msg, err := client.SendMessage(cmd.Context(), args[0], proto.SendMessageRequest{
			Content:     strings.Join(args[1:], " "),
			TempID:      utils.NewID(),
			RecipientID: sendRecipient,
		})
		if err != nil {
			return err
		}
		fmt.Println(msg.ID)
		if note := recoveryNote(msg); note != "" {
			fmt.Fprintln(os.Stderr, note)
		}
		return nil
	},
}

var (
	historyLimit  int
	historyBefore string
)

var historyCmd = &cobra.Command{
	Use:   "history <chat-id>",
	Short: "Print messages of a chat, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		msgs, err := client.ListMessages(cmd.Context(), args[0], historyLimit, historyBefore)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Printf("%s  %s  %s\n", m.CreatedAt.Local().Format(time.DateTime), short(m.Sender), m.Content)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendRecipient, "to", "", "recipient id used to recover a missing chat")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "page size (server default when 0)")
	historyCmd.Flags().StringVar(&historyBefore, "before", "", "return messages older than this message id")
}

func recoveryNote(msg proto.Message) string {
	switch {
	case msg.ChatRestored:
		return fmt.Sprintf("chat %s was gone; message delivered to existing chat %s", msg.OriginalChatID, msg.NewChatID)
	case msg.ChatCreated:
		return fmt.Sprintf("chat %s was gone; created chat %s", msg.OriginalChatID, msg.NewChatID)
	default:
		return ""
	}
}

func printChats(chats []proto.ChatSummary, unread func(string) int) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, c := range chats {
		name := "?"
		if c.OtherUser != nil {
			name = c.OtherUser.Username
		}
		updated := c.CreatedAt
		if c.UpdatedAt != nil {
			updated = *c.UpdatedAt
		}
		badge := ""
		if unread != nil {
			if n := unread(c.ID); n > 0 {
				badge = fmt.Sprintf("(%d)", n)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, name, badge, updated.Local().Format(time.DateTime), c.LastMessage)
	}
	return w.Flush()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
