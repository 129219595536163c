package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/channelhub/internal/proto"
)

type chatOptions struct {
	addr    string
	token   string
	channel string
	private bool
}

func newChatCmd() *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal client",
		Long: `Connects to a running server and joins a channel.

Lines are sent as messages. Slash commands:
  /join <channel>      switch channel
  /leave               leave the current channel
  /users               list members
  /invite <user>       invite or unban
  /kick <user>         vote to kick (admins ban)
  /revoke <user>       remove a member (admin only)
  /status <status>     online, idle, dnd or offline`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.token == "" {
				opts.token = os.Getenv("CHANNELHUB_TOKEN")
			}
			if opts.token == "" {
				return errors.New("a token is required (--token or CHANNELHUB_TOKEN)")
			}
			return runChat(cmd.Context(), opts, os.Stdin, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", "ws://localhost:8080/ws", "WebSocket address")
	flags.StringVar(&opts.token, "token", "", "JWT from /api/login")
	flags.StringVarP(&opts.channel, "channel", "c", "general", "channel to join")
	flags.BoolVar(&opts.private, "private", false, "create the channel as private if it does not exist")
	return cmd
}

func runChat(parent context.Context, opts *chatOptions, in io.Reader, out io.Writer) error {
	baseCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, opts.addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c := &chatSession{conn: conn, out: out, channel: opts.channel}
	if err := c.send(ctx, proto.InboundTypeHello, "", proto.HelloData{Token: opts.token}); err != nil {
		return err
	}
	if err := c.send(ctx, proto.InboundTypeJoinChannel, c.channel, proto.JoinData{IsPrivate: opts.private}); err != nil {
		return err
	}

	fmt.Fprintf(out, "Connected to %s, joining %s\n", opts.addr, c.channel)
	fmt.Fprintln(out, "Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		c.readLoop(ctx)
	}()

	c.writeLoop(ctx, in)
	return nil
}

type chatSession struct {
	conn    *websocket.Conn
	out     io.Writer
	channel string
}

func (c *chatSession) send(ctx context.Context, typ, channel string, data any) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		raw = b
	}
	if err := wsjson.Write(ctx, c.conn, proto.Inbound{Type: typ, Channel: channel, Data: raw}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func (c *chatSession) readLoop(ctx context.Context) {
	for {
		var frame struct {
			Type    string          `json:"type"`
			Event   string          `json:"event"`
			Channel string          `json:"channel"`
			Data    json.RawMessage `json:"data"`
			Error   *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			fmt.Fprintf(c.out, "read error: %v\n", err)
			return
		}

		if frame.Error != nil {
			fmt.Fprintf(c.out, "! %s %s: %s\n", frame.Event, frame.Error.Code, frame.Error.Msg)
			continue
		}
		c.print(frame.Event, frame.Channel, frame.Data)
	}
}

func (c *chatSession) print(event, channel string, data json.RawMessage) {
	switch event {
	case "message":
		var evt proto.EventMessage
		if json.Unmarshal(data, &evt) == nil {
			fmt.Fprintf(c.out, "[%s] %s: %s\n", channel, evt.User, evt.Text)
			return
		}
	case "messages":
		var evt proto.EventMessages
		if json.Unmarshal(data, &evt) == nil {
			for _, m := range evt.Messages {
				fmt.Fprintf(c.out, "[%s] %s: %s\n", channel, m.User, m.Text)
			}
			return
		}
	case "channel:joined":
		fmt.Fprintf(c.out, "[%s] joined\n", channel)
		_ = c.send(context.Background(), proto.InboundTypeLoadMessages, channel, nil)
		return
	case "user:joined", "user:left":
		var evt proto.EventUser
		if json.Unmarshal(data, &evt) == nil {
			fmt.Fprintf(c.out, "[%s] %s %s\n", channel, evt.User, strings.TrimPrefix(event, "user:"))
			return
		}
	case "user:typing", "user:list", "user:online", "user:offline", "user:status":
		return
	}
	fmt.Fprintf(c.out, "event=%s channel=%s data=%s\n", event, channel, data)
}

func (c *chatSession) writeLoop(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
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
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := c.handleLine(ctx, text); err != nil {
				fmt.Fprintf(c.out, "send error: %v\n", err)
				return
			}
		}
	}
}

func (c *chatSession) handleLine(ctx context.Context, text string) error {
	if !strings.HasPrefix(text, "/") {
		return c.send(ctx, proto.InboundTypeAddMessage, c.channel, proto.MessageData{Content: text})
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "join":
		if arg == "" {
			break
		}
		c.channel = arg
		return c.send(ctx, proto.InboundTypeJoinChannel, c.channel, nil)
	case "leave":
		return c.send(ctx, proto.InboundTypeLeaveChannel, c.channel, nil)
	case "users":
		return c.send(ctx, proto.InboundTypeListUsers, c.channel, nil)
	case "channels":
		return c.send(ctx, proto.InboundTypeLoadChannels, "", nil)
	case "invite":
		return c.send(ctx, proto.InboundTypeInviteUser, c.channel, proto.TargetData{Username: arg})
	case "kick":
		return c.send(ctx, proto.InboundTypeKickUser, c.channel, proto.TargetData{Username: arg})
	case "revoke":
		return c.send(ctx, proto.InboundTypeRevokeUser, c.channel, proto.TargetData{Username: arg})
	case "status":
		return c.send(ctx, proto.InboundTypeSetStatus, "", proto.StatusData{Status: arg})
	}
	fmt.Fprintf(c.out, "unknown command %q\n", text)
	return nil
}
