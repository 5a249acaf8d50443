package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/reversi-client/internal/entity"
	"github.com/rocketscienceinc/reversi-client/internal/session"
	"github.com/rocketscienceinc/reversi-client/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type gameManager interface {
	Register(ctx context.Context, name string) (*entity.ParticipantInfo, error)
	StartSession(ctx context.Context, player, opponent string, dimension int) (session.View, error)
	Move(ctx context.Context, row, col int) error
	View(ctx context.Context) (session.View, error)
	Hint(ctx context.Context) (usecase.Hint, error)
	Leave()
	Players(ctx context.Context) (*entity.PlayerLists, error)
}

// Server is the HTTP API the UI drives the game client through.
type Server struct {
	logger  *slog.Logger
	manager gameManager
	router  chi.Router
}

func NewServer(logger *slog.Logger, manager gameManager) *Server {
	server := &Server{
		logger:  logger.With("component", "rest"),
		manager: manager,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/ping", pingHandler)
	router.Post("/register", server.handleRegister)
	router.Get("/players", server.handlePlayers)

	router.Route("/session", func(r chi.Router) {
		r.Post("/", server.handleStartSession)
		r.Get("/", server.handleView)
		r.Delete("/", server.handleLeave)
		r.Post("/move", server.handleMove)
		r.Get("/hint", server.handleHint)
	})

	server.router = router

	return server
}

func (that *Server) Handler() http.Handler {
	return that.router
}

// Start serves on port until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
