package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/reversi-client/internal/session"
	"github.com/rocketscienceinc/reversi-client/internal/usecase"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

type gameManager interface {
	Move(ctx context.Context, row, col int) error
	View(ctx context.Context) (session.View, error)
	Leave()
	Subscribe(fn func(session.View)) func()
}

// Server pushes every redraw of the mounted session to connected UIs and accepts
// moves over the same socket.
type Server struct {
	logger   *slog.Logger
	manager  gameManager
	upgrader websocket.Upgrader

	handlers map[string]func(ctx context.Context, message *Message) (Message, error)
}

func New(logger *slog.Logger, manager gameManager) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		handlers: make(map[string]func(context.Context, *Message) (Message, error)),
	}

	server.handlers[actionView] = server.handleView
	server.handlers[actionMove] = server.handleMove
	server.handlers[actionLeave] = server.handleLeave

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS", "remote", r.RemoteAddr)

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Info("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan Message, sendBuffer)

	// redraws are dropped rather than stalling the session when this client lags
	unsubscribe := that.manager.Subscribe(func(view session.View) {
		msg, msgErr := newMessage(actionUpdate, ResponsePayload{View: &view})
		if msgErr != nil {
			return
		}

		select {
		case out <- msg:
		default:
			log.Warn("client is lagging, redraw dropped")
		}
	})
	defer unsubscribe()

	go that.writeLoop(ctx, conn, out, log)

	log.Info("WebSocket connection established")

	if err = that.readLoop(ctx, conn, out); err != nil {
		log.Info("connection closed", "error", err)
	}
}

func (that *Server) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- Message) error {
	for {
		var message Message
		if err := conn.ReadJSON(&message); err != nil {
			return err
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			that.send(ctx, out, errorMessage(fmt.Sprintf("unknown action %q", message.Action)))
			continue
		}

		reply, err := handler(ctx, &message)
		switch {
		case err == nil:
		case usecase.IsUserError(err):
			that.logger.Info("action refused", "action", message.Action, "error", err)
		default:
			that.logger.Warn("action failed", "action", message.Action, "error", err)
		}

		that.send(ctx, out, reply)
	}
}

func (that *Server) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan Message, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			// unblocks the reader
			_ = conn.Close()
			return
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Info("failed to write message", "error", err)
				_ = conn.Close()

				return
			}
		}
	}
}

func (that *Server) send(ctx context.Context, out chan<- Message, msg Message) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}
