package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/dealAuth/backend"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference auth/profile backend",
		Long: `serve exposes the auth and profile endpoints the client commands talk to.
With --memory it runs on an in-process Redis and a throwaway signing key, which
is enough for local development; nothing survives a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rdb, closeRedis, err := a.serverRedis(memory)
			if err != nil {
				return err
			}
			defer closeRedis()

			cfg, err := a.backendConfig(memory)
			if err != nil {
				return err
			}
			svc, err := backend.New(rdb, cfg, backend.WithLogger(a.logger))
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", a.config.Server.Addr)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), ln, backend.NewRouter(svc), a)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "use an in-process Redis instead of redis.addr")
	return cmd
}

func (a *app) serverRedis(memory bool) (redis.UniversalClient, func(), error) {
	if memory {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-memory redis: %w", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		a.logger.Info("using in-memory redis", "addr", mr.Addr())
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	}
	if a.config.Redis.Addr == "" {
		return nil, nil, errors.New("redis.addr is required unless --memory is set")
	}
	rdb := a.redisClient()
	return rdb, func() { _ = rdb.Close() }, nil
}

func (a *app) backendConfig(memory bool) (backend.Config, error) {
	cfg := backend.DefaultConfig()
	cfg.APIKey = a.config.Remote.APIKey
	cfg.RequireEmailVerification = a.config.Server.RequireEmailVerification
	if a.config.Server.TokenTTL > 0 {
		cfg.Token.TTL = a.config.Server.TokenTTL
	}

	switch {
	case a.config.Server.SigningKey != "":
		cfg.Token.PrivateKey = []byte(a.config.Server.SigningKey)
	case memory:
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return backend.Config{}, err
		}
		cfg.Token.PrivateKey = key
	default:
		return backend.Config{}, errors.New("server.signing_key is required unless --memory is set")
	}
	return cfg, nil
}

func serve(ctx context.Context, ln net.Listener, h http.Handler, a *app) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("backend listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
