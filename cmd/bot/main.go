package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/tempvoice/internal/adapters/discord"
	router "github.com/dkeye/tempvoice/internal/adapters/http"
	"github.com/dkeye/tempvoice/internal/app"
	"github.com/dkeye/tempvoice/internal/app/orch"
	"github.com/dkeye/tempvoice/internal/config"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
	"github.com/dkeye/tempvoice/internal/store/gormstore"
	"github.com/dkeye/tempvoice/internal/store/memstore"
	"github.com/dkeye/tempvoice/internal/store/redisledger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	st, closeStore := openStore(cfg)
	defer closeStore()

	var ledger app.IdleLedger = app.NopLedger{}
	if cfg.Redis.Addr != "" {
		l, err := redisledger.Dial(ctx, redisledger.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis unavailable")
		}
		defer l.Close()
		ledger = l
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("discord session")
	}
	session.Identify.Intents = discord.Intents
	session.StateEnabled = true
	session.State.TrackVoice = true
	self, err := session.User("@me")
	if err != nil {
		log.Fatal().Err(err).Msg("discord auth failed")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	o := orch.New(orch.Deps{
		Store:      st,
		Platform:   discord.NewPlatform(session),
		Ledger:     ledger,
		Registerer: reg,
		BotID:      domain.UserID(self.ID),
		Options: orch.Options{
			SweepInterval:  cfg.Reaper.SweepInterval,
			SweepWorkers:   cfg.Reaper.SweepWorkers,
			CreateLimit:    cfg.RateLimit.Limit,
			CreateInterval: cfg.RateLimit.Interval,
		},
	})

	bridge := &discord.Bridge{Listener: o}
	unregister := bridge.Register(session)
	defer unregister()

	var wg conc.WaitGroup
	wg.Go(func() { o.Run(ctx) })

	if err := session.Open(); err != nil {
		log.Fatal().Err(err).Msg("discord gateway")
	}
	log.Info().Str("bot", self.ID).Str("username", self.Username).Msg("connected to discord")

	r := router.SetupRouter(cfg, o, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("admin server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := session.Close(); err != nil {
		log.Error().Err(err).Msg("discord close")
	}
	wg.Wait()
	log.Info().Msg("Server exited gracefully")
}

func openStore(cfg *config.Config) (store.Store, func()) {
	if cfg.Database.DSN == "" {
		log.Warn().Msg("no database configured, rooms are kept in memory")
		return memstore.New(), func() {}
	}
	s, err := gormstore.Open(gormstore.Options{
		DSN:          cfg.Database.DSN,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	return s, func() {
		if err := s.Close(); err != nil {
			log.Error().Err(err).Msg("database close")
		}
	}
}
