package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Knighty7-ciper/cmd-chat/internal/client"
	"github.com/Knighty7-ciper/cmd-chat/internal/config"
)

var (
	serverAddr string
	username   string
	password   string
	room       string
)

func main() {
	flag.StringVar(&serverAddr, "server", "localhost:8000", "chat server address")
	flag.StringVar(&username, "username", "", "username to chat as")
	flag.StringVar(&password, "password", "", "server password, if one is set")
	flag.StringVar(&room, "room", "", "room to join on connect")
	flag.Parse()

	logger := log.New(os.Stderr, "[cmd-chat] ", log.LstdFlags)
	renderer := client.NewTextRenderer(os.Stdout)

	cfg, err := config.NewClientConfig(serverAddr, username, password, room)
	if err != nil {
		renderer.Error(err.Error())
		os.Exit(1)
	}

	manager := client.NewManager(cfg, logger, renderer)

	renderer.Info("connecting to " + cfg.ServerAddr)
	if err := manager.Handshake(); err != nil {
		renderer.Error(err.Error())
		os.Exit(1)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		renderer.Info("disconnecting...")
		manager.Close()
		os.Exit(0)
	}()

	defer manager.Close()
	if err := manager.Run(os.Stdin); err != nil {
		renderer.Error(err.Error())
		os.Exit(1)
	}
}
