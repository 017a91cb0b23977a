package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MaxIvlevich/labyrinth-game/go/clients/auth_client"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/auth"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/config"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/eventbus"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/persist"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/realtime"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/session"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/terminal"
)

var errNotSignedIn = errors.New("not signed in, use --login and --password")

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	opts, flagSet, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("invalid arguments")
	}
	if opts.Help {
		printHelp(flagSet)
		return
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	if err := run(opts, cfg); err != nil {
		log.Fatal().Err(err).Msg("labyrinth client failed")
	}
}

func run(opts options, cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := persist.OpenSQLite(cfg.StatePath)
	if err != nil {
		return err
	}
	defer state.Close()

	creds := auth.NewStore(state)
	if err := creds.Load(ctx); err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	api := auth_client.NewClient(cfg.HTTPBaseURL())
	if opts.Login != "" {
		signedIn, err := api.Login(ctx, opts.Login, opts.Password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := creds.Replace(ctx, signedIn); err != nil {
			return fmt.Errorf("store credentials: %w", err)
		}
		log.Info().Str("user_id", signedIn.SubjectID).Msg("signed in")
	}

	refresher := auth.NewRefresher(creds, api, cfg.RefreshTimeout)
	if c := creds.Current(); !c.Empty() && c.Expired(time.Now()) {
		if _, err := refresher.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to refresh expired access token")
		}
	}
	if !creds.IsAuthenticated() {
		return errNotSignedIn
	}

	managerCfg, err := managerConfig(cfg)
	if err != nil {
		return err
	}

	self := func() string { return creds.Current().SubjectID }
	renderer := terminal.NewRenderer(os.Stdout, self)

	var coordinator *session.Coordinator
	rooms := realtime.RoomMemoryFunc(func() string { return coordinator.CurrentRoom() })
	manager := realtime.NewConnectionManager(managerCfg, realtime.NewWebSocketDialer(webSocketConfig(cfg)), creds, refresher, rooms)
	coordinator = session.NewCoordinator(manager, state, creds, renderer)
	manager.SetListener(coordinator)

	publisher := setupEventBus(cfg)
	defer publisher.Close()
	manager.OnTransition(eventbus.NewReporter(publisher, self, managerCfg.Clock).Observe)

	log.Info().
		Str("url", managerCfg.URL).
		Str("state_path", cfg.StatePath).
		Str("room_id", coordinator.CurrentRoom()).
		Msg("starting labyrinth client")

	managerDone := make(chan error, 1)
	go func() {
		managerDone <- manager.Run(ctx)
	}()

	// Wait for interrupt signal
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	coordinator.Resume()

	logout := func(ctx context.Context) error {
		if refreshToken := creds.Current().RefreshToken; refreshToken != "" {
			if err := api.Logout(ctx, refreshToken); err != nil {
				log.Warn().Err(err).Msg("server logout failed")
			}
		}
		return coordinator.Logout(ctx)
	}
	reader := terminal.NewCommandReader(os.Stdin, coordinator, renderer, logout)
	readErr := reader.Run(ctx)

	// Graceful shutdown
	manager.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	waitClosed(shutdownCtx, manager)
	cancel()

	select {
	case err := <-managerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("connection manager stopped with error")
		}
	case <-shutdownCtx.Done():
		log.Warn().Msg("connection manager did not stop in time")
	}

	log.Info().Msg("labyrinth client shutdown complete")
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return readErr
	}
	return nil
}

func setupEventBus(cfg config.Config) eventbus.Publisher {
	if cfg.NATSURL == "" {
		return eventbus.NoopPublisher{}
	}
	publisher, err := eventbus.NewNATSPublisher(eventBusConfig(cfg))
	if err != nil {
		log.Warn().Err(err).Str("nats_url", cfg.NATSURL).Msg("state changes will not be published")
		return eventbus.NoopPublisher{}
	}
	log.Info().Str("nats_url", cfg.NATSURL).Msg("publishing state changes")
	return publisher
}

// waitClosed polls until the manager has left the open and closing states.
func waitClosed(ctx context.Context, manager *realtime.ConnectionManager) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch manager.State() {
		case realtime.StateOpen, realtime.StateClosing:
		default:
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
