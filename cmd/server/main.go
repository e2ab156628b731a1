package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Knighty7-ciper/cmd-chat/internal/api"
	"github.com/Knighty7-ciper/cmd-chat/internal/config"
	"github.com/Knighty7-ciper/cmd-chat/internal/crypto"
	"github.com/Knighty7-ciper/cmd-chat/internal/server"
	"github.com/Knighty7-ciper/cmd-chat/internal/stats"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	adminPassword  string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&adminPassword, "admin-password", "", "shared password required to connect; empty disables the check")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[cmd-chat] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, adminPassword, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	for _, name := range []string{
		stats.ActiveConnections,
		stats.ActiveRooms,
		stats.TotalMessages,
		stats.TotalUsers,
		stats.DroppedMessages,
	} {
		statsUpdater.RegisterMetric(name)
	}

	// the symmetric key lives for the process lifetime; every client gets
	// it through the key exchange endpoint
	cipher, err := crypto.GenerateCipher(cfg.TokenTTL)
	if err != nil {
		logger.Fatal("generate cipher:", err)
	}

	registry := server.NewRegistry(logger, statsUpdater, cipher, cfg)

	srv := api.NewChatApp(mux, logger, registry, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("closing active connections...")
	registry.CloseAll()

	logger.Println("shutdown complete")
}
