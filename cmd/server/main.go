package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-search-reporter/authflow"
	"github.com/jrsteele09/go-search-reporter/authflow/staterepo"
	"github.com/jrsteele09/go-search-reporter/internal/config"
	"github.com/jrsteele09/go-search-reporter/searchconsole"
	"github.com/jrsteele09/go-search-reporter/server"
	"github.com/jrsteele09/go-search-reporter/sessions"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg)
	displayAppname(cfg.AppName)

	store := sessions.NewInMemoryStore(cfg.SessionIdleTimeout)
	defer store.Close()

	cookies, err := sessions.NewCookieCodec(cfg.SessionSecret)
	if err != nil {
		return err
	}

	// The context is retained by the provider for JWKS refreshes, so it must
	// outlive startup; discovery retries are bounded by the flow itself.
	flow, err := authflow.New(context.Background(), authflow.Config{
		IssuerURL:    cfg.IssuerURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		Scopes:       cfg.Scopes,
	}, staterepo.NewInMemoryRepo(0), store)
	if err != nil {
		return err
	}

	srv := server.New(cfg, flow, store, cookies, searchconsole.New())
	httpServer := &http.Server{Addr: cfg.Addr(), Handler: srv}

	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
