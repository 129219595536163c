package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/auth"
	"github.com/vovakirdan/channelhub/internal/config"
	"github.com/vovakirdan/channelhub/internal/core"
	"github.com/vovakirdan/channelhub/internal/proto"
	"github.com/vovakirdan/channelhub/internal/store"
	"github.com/vovakirdan/channelhub/internal/utils"
)

const helloTimeout = 10 * time.Second

var errRateLimited = errors.New("rate limit exceeded")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub  *core.Hub
	auth *auth.Service
	cfg  *config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, auth: authService, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// A bearer header authenticates before the upgrade; otherwise the
	// first frame must be a hello carrying the token.
	var user *store.User
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		u, err := h.auth.Identify(ctx, token)
		if err != nil {
			h.log.Debug().Err(err).Msg("ws bearer rejected")
			stdhttp.Error(w, "invalid token", stdhttp.StatusUnauthorized)
			return
		}
		user = u
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	if user == nil {
		user, err = h.hello(ctx, conn)
		if err != nil {
			h.log.Debug().Err(err).Msg("ws hello rejected")
			_ = wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "authentication required"},
			})
			conn.Close(websocket.StatusPolicyViolation, "unauthorized")
			return
		}
	}

	client := core.NewClient(utils.NewID(), user.ID, user.Username)
	logger := h.log.With().Str("client_id", client.ID).Int64("user_id", user.ID).Logger()
	logger.Debug().Str("username", user.Username).Msg("ws client connected")

	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errRateLimited) {
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// hello waits for the authentication frame.
func (h *WSHandler) hello(ctx context.Context, conn *websocket.Conn) (*store.User, error) {
	ctx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return nil, err
	}
	if inbound.Type != proto.InboundTypeHello {
		return nil, auth.ErrUnauthenticated
	}
	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return nil, err
	}
	return h.auth.Identify(ctx, hello.Token)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter, logger *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			logger.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			logger.Warn().Msg("ws rate limit exceeded")
			_ = wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: "rate_limited", Msg: errRateLimited.Error()},
			})
			return errRateLimited
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger *zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
