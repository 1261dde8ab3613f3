// chat-cli is a terminal client for the support chat, used for local
// development against a running chat service. It drives the same client core
// the storefront embeds: shopper widget or staff console, history API plus
// push channel.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artinalushaku/onlineStore-sub000/internal/auth"
	"github.com/artinalushaku/onlineStore-sub000/internal/chat"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/console"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/history"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/identity"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/pushchannel"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/session"
	"github.com/artinalushaku/onlineStore-sub000/internal/client/widget"
	"github.com/artinalushaku/onlineStore-sub000/internal/config"
	"github.com/artinalushaku/onlineStore-sub000/internal/models"
)

var reader = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Print(label)
	input, err := reader.ReadString('\n')
	if err != nil {
		os.Exit(0)
	}
	return strings.TrimSpace(input)
}

func main() {
	cfg := config.Load()

	baseURL := os.Getenv("CHAT_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	wsURL := os.Getenv("CHAT_WS_URL")
	if wsURL == "" {
		wsURL = "ws" + strings.TrimPrefix(baseURL, "http")
	}

	fmt.Println("Welcome to the support chat CLI")
	idStr := prompt("User id: ")
	userID, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || userID == 0 {
		log.Fatalf("invalid user id %q", idStr)
	}
	role := prompt("Role (shopper/staff): ")
	if role != models.RoleShopper && role != models.RoleStaff {
		log.Fatalf("invalid role %q", role)
	}

	// dev credential; the storefront's auth service issues the real one
	token := os.Getenv("CHAT_TOKEN")
	if token == "" {
		token, err = auth.SignJWT(userID, role, cfg.JWTSecret, 24*time.Hour)
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
	}

	api := history.New(baseURL, token)

	if role == models.RoleShopper {
		runShopper(userID, api, wsURL, token)
		return
	}
	runStaff(userID, api, wsURL, token)
}

func dialChannel(wsURL, token string) *pushchannel.Channel {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ch, err := pushchannel.Dial(ctx, wsURL, token)
	if err != nil {
		fmt.Printf("push channel unavailable, live updates disabled: %v\n", err)
		return nil
	}
	return ch
}

func runShopper(userID uint64, api *history.Client, wsURL, token string) {
	sessions := session.NewStore(session.DefaultPath())
	resolver := identity.NewResolver(api, sessions)
	w := widget.New(userID, api, resolver, sessions)
	defer w.Unmount()

	ctx := context.Background()
	if err := w.Mount(ctx); err != nil {
		fmt.Printf("Resume failed: %v\n", err)
	}

	ch := dialChannel(wsURL, token)
	var typist *pushchannel.Typist
	if ch != nil {
		defer ch.Close()
		go func() {
			for ev := range ch.Events() {
				wasTyping := w.StaffTyping()
				w.ApplyEvent(ev)
				if msg := latest(w.Messages()); msg != nil && msg.SenderID != userID {
					fmt.Printf("\n[staff] %s\n> ", msg.Content)
				}
				if w.StaffTyping() && !wasTyping {
					fmt.Print("\n[staff is typing...]\n> ")
				}
			}
		}()
	}

	if w.State() == widget.StateLive {
		fmt.Println("Resumed your conversation:")
		for _, m := range w.Messages() {
			printMessage(userID, m)
		}
	} else {
		w.StartCompose()
		fmt.Println("No previous conversation. Type your first message.")
		for w.State() == widget.StateComposing {
			w.SetDraft(prompt("> "))
			if err := w.Submit(ctx); err != nil {
				fmt.Printf("Could not start the chat: %v\n", err)
				if w.ComposeDisabled() {
					fmt.Println("Support is unavailable right now, try again later.")
					return
				}
			}
		}
	}

	if ch != nil {
		if key, ok := w.Key(); ok {
			typist = pushchannel.NewTypist(ch, key)
			defer typist.Stop()
		}
	}

	fmt.Println("You are live. /quit to exit.")
	for {
		line := prompt("> ")
		if line == "/quit" {
			return
		}
		if line == "" {
			continue
		}
		if typist != nil {
			typist.Keystroke()
		}
		if err := w.Send(ctx, line); err != nil {
			fmt.Printf("Send failed: %v\n", err)
		}
	}
}

func runStaff(userID uint64, api *history.Client, wsURL, token string) {
	c := console.New(userID, api)
	defer c.Unmount()
	ctx := context.Background()

	ch := dialChannel(wsURL, token)
	if ch != nil {
		defer ch.Close()
		go func() {
			for ev := range ch.Events() {
				if refresh := c.ApplyEvent(ev); refresh {
					if err := c.RefreshList(ctx); err != nil {
						log.Printf("refresh summaries: %v", err)
					}
				}
				if c.ShopperTyping() {
					fmt.Print("\n[shopper is typing...]\n> ")
				}
			}
		}()
	}

	for {
		switch c.State() {
		case console.StateList:
			staffListMenu(ctx, c)
		case console.StateReview:
			staffReviewMenu(ctx, c)
		case console.StateChat:
			staffChatLoop(ctx, c, ch)
		}
	}
}

func staffListMenu(ctx context.Context, c *console.Console) {
	if err := c.RefreshList(ctx); err != nil {
		fmt.Printf("Could not load conversations: %v\n", err)
	}
	fmt.Println("\n=== Conversations ===")
	for _, s := range c.Summaries() {
		fmt.Printf("  #%d %s: %q (%s, %d unread)\n",
			s.Counterpart.ID, s.Counterpart.DisplayName,
			s.LastMessage.Content, s.LastMessage.CreatedAt.Format(time.Kitchen), s.Unread)
	}
	fmt.Println("Commands: open <id>, delete <id>, refresh, quit")
	line := prompt("> ")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "open", "delete":
		if len(fields) != 2 {
			fmt.Println("usage:", fields[0], "<shopper id>")
			return
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			fmt.Println("invalid id")
			return
		}
		if fields[0] == "open" {
			if err := c.Open(ctx, id); err != nil {
				fmt.Printf("Could not open conversation: %v\n", err)
			}
			return
		}
		if err := c.Delete(ctx, id); err != nil {
			fmt.Printf("Delete failed: %v\n", err)
		}
	case "refresh":
	case "quit":
		os.Exit(0)
	default:
		fmt.Println("unknown command")
	}
}

func staffReviewMenu(ctx context.Context, c *console.Console) {
	shopperID, _ := c.Selected()
	fmt.Printf("\n=== Reviewing conversation with shopper #%d ===\n", shopperID)
	for _, m := range c.Messages() {
		printMessage(0, m)
	}
	fmt.Println("Commands: accept, back, delete")
	switch prompt("> ") {
	case "accept":
		c.Accept()
	case "back":
		c.Back()
	case "delete":
		if err := c.Delete(ctx, shopperID); err != nil {
			fmt.Printf("Delete failed: %v\n", err)
		}
	default:
		fmt.Println("unknown command")
	}
}

func staffChatLoop(ctx context.Context, c *console.Console, ch *pushchannel.Channel) {
	shopperID, _ := c.Selected()
	var typist *pushchannel.Typist
	if ch != nil {
		typist = pushchannel.NewTypist(ch, shopperID)
		defer typist.Stop()
	}
	fmt.Printf("Replying to shopper #%d. /back to return to the list.\n", shopperID)
	for c.State() == console.StateChat {
		line := prompt("> ")
		if line == "/back" {
			c.Back()
			return
		}
		if line == "" {
			continue
		}
		if typist != nil {
			typist.Keystroke()
		}
		if err := c.Send(ctx, line); err != nil {
			fmt.Printf("Send failed: %v\n", err)
		}
	}
}

func printMessage(selfID uint64, m chat.Message) {
	who := fmt.Sprintf("user %d", m.SenderID)
	if selfID != 0 && m.SenderID == selfID {
		who = "you"
	}
	fmt.Printf("  [%s] %s: %s\n", m.CreatedAt.Format(time.Kitchen), who, m.Content)
}

func latest(msgs []chat.Message) *chat.Message {
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[len(msgs)-1]
}
