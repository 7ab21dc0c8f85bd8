package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neurocalm/backend/internal/bandit"
	"github.com/neurocalm/backend/internal/config"
	"github.com/neurocalm/backend/internal/eeg"
	"github.com/neurocalm/backend/internal/session"
	"github.com/neurocalm/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	synthetic := flag.Bool("synthetic", false, "Force the synthetic sample source")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *synthetic {
		cfg.EEG.Source = "synthetic"
	}

	seed := time.Now().UnixNano()
	synth := eeg.NewSyntheticSource(cfg.EEG.SampleRate, cfg.EEG.Channels, seed)

	// The vendor board driver is an external collaborator; this build
	// links none, so "hardware" fails fast and "auto" falls back to the
	// simulator with an advisory event.
	var source, fallback eeg.Source
	switch cfg.EEG.Source {
	case "synthetic":
		source = synth
	case "hardware":
		source = eeg.NewBoardSource(eeg.UnavailableBoard{}, cfg.EEG.SampleRate, cfg.EEG.Channels)
	default: // auto
		source = eeg.NewBoardSource(eeg.UnavailableBoard{}, cfg.EEG.SampleRate, cfg.EEG.Channels)
		fallback = synth
	}

	rec := bandit.New(cfg.Recommender.Techniques, cfg.Recommender.Epsilon, cfg.Recommender.Alpha, seed)

	hub := ws.NewHub(cfg.Hub.QueueCapacity)
	controller := session.NewController(source, fallback, cfg.EEG.WindowSamples, rec, hub)
	hub.SetSession(controller.Snapshot)

	server := ws.NewServer(hub, controller, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		controller.Stop()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
