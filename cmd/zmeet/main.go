package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/navikt/zmeet/internal/api"
	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/notes"
	"github.com/navikt/zmeet/internal/repository"
	"github.com/navikt/zmeet/internal/service"
	"github.com/navikt/zmeet/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Init(cfg.Server.LogLevel)

	// Initialize the repository using the factory
	repo, err := repository.NewRepository(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}

	// Close the Redis connection on exit
	if redisRepo, ok := repo.(interface{ Close() error }); ok {
		defer func() {
			if err := redisRepo.Close(); err != nil {
				log.Errorf("Error closing Redis connection: %v", err)
			}
		}()
	}

	// Initialize the service layer
	meetingService := service.NewMeetingService(repo, cfg.Meet, cfg.Jitsi, cfg.Server.BaseURL)
	notesService := service.NewNotesService(repo, notes.NewExporterFromConfig(cfg.Export), cfg.Server.BaseURL)

	// Push meeting changes to connected clients
	sseManager := web.NewSSEManager()
	meetingService.RegisterUpdateCallback(sseManager.NotifyMeetingUpdate)
	meetingService.RegisterInviteCallback(sseManager.NotifyInvite)

	mux := api.SetupRoutes(api.Dependencies{
		Meetings:   meetingService,
		Notes:      notesService,
		Store:      repo,
		Events:     sseManager,
		Jitsi:      cfg.Jitsi,
		Conference: cfg.Conference,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      web.WrapMuxWithMiddleware(mux, cfg.Server.UserHeader),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disable write timeout for SSE connections
		IdleTimeout:  60 * time.Second,
	}

	// End idle meetings in the background
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go service.NewSweeper(meetingService, cfg.Meet).Run(sweepCtx)

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		log.Infof("Starting zmeet server on port %s", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %v", err)
		}

	case <-shutdown:
		log.Infof("Shutting down server...")
		stopSweeper()

		// Close SSE connections first, they never finish on their own
		sseManager.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			log.Errorf("Error shutting down server: %v", err)
			return
		}

		log.Infof("Server gracefully stopped")
	}
}
