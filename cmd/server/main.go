package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/viktor111/keyz/internal/config"
	"github.com/viktor111/keyz/internal/logger"
	"github.com/viktor111/keyz/internal/server"
	"github.com/viktor111/keyz/internal/store"
)

// acceptBackoff is the fixed pause after a transient Accept error.
const acceptBackoff = 100 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "path to keyz.toml (overrides KEYZ_CONFIG and ./keyz.toml)")
	flag.Parse()

	cfg, source, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("keyz: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	log.Info("keyz starting",
		zap.String("config_source", source.String()),
		zap.String("address", cfg.Server.Addr()),
	)

	st, err := store.New(store.Config{
		CompressionThreshold: cfg.Store.CompressionThreshold,
		CleanupInterval:      time.Duration(cfg.Store.CleanupIntervalMs) * time.Millisecond,
		DefaultTTL:           defaultTTL(cfg.Store.DefaultTTLSecs),
	}, log)
	if err != nil {
		log.Error("cannot initialize store", zap.Error(err))
		os.Exit(1)
	}

	listener, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		log.Error("listener error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("listening", zap.String("address", cfg.Server.Addr()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	go acceptLoop(listener, st, cfg.Protocol, log, &wg)

	<-ctx.Done()
	log.Info("shutting down")

	_ = listener.Close()
	st.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("all connections closed gracefully")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timed out, forcing exit", zap.Duration("timeout", 5*time.Second))
	}

	log.Info("keyz stopped")
}

// acceptLoop accepts connections until the listener is closed. A transient
// accept error (e.g. file-descriptor exhaustion) never kills the server: it
// logs, waits acceptBackoff, and retries.
func acceptLoop(listener net.Listener, st *store.Store, protoCfg config.ProtocolConfig, log *zap.Logger, wg *sync.WaitGroup) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("accept error, backing off", zap.Error(err), zap.Duration("backoff", acceptBackoff))
			time.Sleep(acceptBackoff)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			server.ServeConn(conn, st, protoCfg, log)
		}()
	}
}

func defaultTTL(secs *int) *time.Duration {
	if secs == nil {
		return nil
	}
	d := time.Duration(*secs) * time.Second
	return &d
}
