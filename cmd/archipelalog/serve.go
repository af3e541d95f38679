package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archipelalog/internal/archipelago"
	"archipelalog/internal/bridge"
	"archipelalog/internal/discord"
	"archipelalog/internal/store"
	httptransport "archipelalog/internal/transport/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flagPrintRoutes bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long: `Load the persisted channel bindings, reconnect every channel to its
Archipelago server and serve the Discord interactions endpoint until
SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagPrintRoutes, "print-routes", false, "Print the HTTP routes on startup")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	publicKey, err := discord.ParsePublicKey(cfg.Bot.PublicKey)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persister, closePersister, err := openPersister(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closePersister()

	st := store.New(persister)
	client := discord.NewClient(cfg.Bot)
	dialer := bridge.NewArchipelagoDialer(archipelago.NewDialer(cfg.Archipelago))
	coord := bridge.NewCoordinator(st, dialer, client)
	registry, err := newRegistry(client, coord)
	if err != nil {
		return err
	}

	if err := coord.Bootstrap(ctx); err != nil {
		return err
	}

	interactions := httptransport.NewInteractionHandler(publicKey, registry, client, client, cfg.Server.CommandTimeout)
	r := httptransport.NewRouter(cfg.Server, persister, coord, interactions)
	if flagPrintRoutes {
		httptransport.LogRoutes(r)
	}

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}
	interactions.Wait()
	if err := coord.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("closing sessions failed")
	}
	log.Info().Msg("stopped")
	return nil
}
