package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kdimtricp/emostim/internal/client"
	"github.com/kdimtricp/emostim/internal/config"
	"github.com/kdimtricp/emostim/internal/logging"
	"github.com/kdimtricp/emostim/internal/session"
)

func main() {
	var (
		configDir = flag.String("config", ".", "Directory holding an optional .env file")
		serverURL = flag.String("server", "", "Server base URL (default http://localhost:$PORT)")
		name      = flag.String("name", "", "Participant name; prompted for when empty")
		player    = flag.String("player", "", "External player command, e.g. \"ffplay -autoexit\"")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}
	log := logging.New(logging.Options{Service: "emostim-runner", Level: cfg.LogLevel, File: cfg.LogFile, Output: os.Stderr})

	if *serverURL == "" {
		*serverURL = "http://localhost:" + cfg.Port
	}

	workDir, err := os.MkdirTemp("", "emostim-runner-")
	if err != nil {
		log.WithError(err).Fatal("Failed to create work directory")
	}
	defer os.RemoveAll(workDir)

	api := client.New(*serverURL)
	term := &terminal{
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
		api:     api,
		playCmd: strings.Fields(*player),
		workDir: workDir,
	}

	participant := strings.TrimSpace(*name)
	for participant == "" {
		fmt.Print("Participant name: ")
		line, err := term.readLine()
		if err != nil {
			log.WithError(err).Fatal("No participant name given")
		}
		participant = strings.TrimSpace(line)
	}

	orchestrator := session.NewOrchestrator(api, term, term, session.Config{
		Machine: session.Machine{AllowSkip: !cfg.IsProduction()},
		Logger:  log,
		OnPhase: announce,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := orchestrator.Run(ctx, participant); err != nil {
		log.WithError(err).Error("Session ended with an error")
		os.RemoveAll(workDir)
		os.Exit(1)
	}
}

func announce(p session.Phase) {
	switch p := p.(type) {
	case session.Intro:
		fmt.Println("\nWelcome. You will watch a series of short videos and rate how each made you feel.")
	case session.Watching:
		fmt.Printf("\nVideo %d of %d\n", p.Index+1, p.Total)
	case session.Healing:
		fmt.Println("\nThank you. Please relax and watch one last calming video.")
	case session.End:
		fmt.Println("\nThe session is complete. Thank you for taking part.")
	}
}
