package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/reversi-client/internal/config"
	"github.com/rocketscienceinc/reversi-client/internal/storage"
	"github.com/rocketscienceinc/reversi-client/internal/transport/redis"
	"github.com/rocketscienceinc/reversi-client/internal/usecase"
	"github.com/rocketscienceinc/reversi-client/transport/rest"
	"github.com/rocketscienceinc/reversi-client/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

type listener interface {
	Start(ctx context.Context, port string) error
}

// RunApp connects to the game service and serves the UI until a signal arrives
// or one of the listeners fails.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisAddr := conf.Redis.GetRedisAddr()
	if redisAddr == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddr)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if closeErr := redisStorage.Close(); closeErr != nil {
			log.Error("could not close redis storage", "error", closeErr)
		}
	}()

	remote := redis.New(logger, redisStorage.Connection, conf.Session.RequestTimeout)

	gameManager := usecase.NewGameManager(logger, remote, conf.Session.Dimensions, conf.Session.PollInterval)
	defer gameManager.Leave()

	log.Info("game client ready",
		"redis", redisAddr,
		"poll_interval", conf.Session.PollInterval,
		"dimensions", conf.Session.Dimensions,
	)

	listeners := map[string]struct {
		server listener
		port   string
	}{
		"http":      {server: rest.NewServer(logger, gameManager), port: conf.HTTPPort},
		"websocket": {server: websocket.New(logger, gameManager), port: conf.SocketPort},
	}

	errCh := make(chan error, len(listeners))
	for name, l := range listeners {
		go func() {
			log.Info("starting listener", "listener", name, "port", l.port)

			if startErr := l.server.Start(ctx, l.port); startErr != nil {
				errCh <- fmt.Errorf("%s listener: %w", name, startErr)
			}
		}()
	}

	select {
	case err = <-errCh:
		log.Error("listener failed", "error", err)
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	}
}
