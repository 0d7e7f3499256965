package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	server "toyoko_watch/internal/adapters/http_server"
	"toyoko_watch/internal/adapters/line"
	"toyoko_watch/internal/adapters/observability"
	"toyoko_watch/internal/adapters/telegram"
	"toyoko_watch/internal/adapters/toyoko"
	"toyoko_watch/internal/app"
	"toyoko_watch/internal/domain"
	"toyoko_watch/internal/shared"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	window, err := cfg.Window()
	if err != nil {
		log.Fatal().Err(err).Msg("stay window invalid") // already validated; belt and braces
	}
	occ := cfg.Occupancy()

	log.Info().
		Str("checkin", window.LocalCheckIn()).
		Str("checkout", window.LocalCheckOut()).
		Int("targets", len(cfg.Targets())).
		Bool("always_notify", cfg.AlwaysNotify).
		Bool("run_once", cfg.RunOnce).
		Msg("monitor starting")

	client, err := toyoko.New(toyoko.Config{
		BaseURL:     cfg.BaseURL,
		BuildID:     cfg.SearchBuildID,
		MinInterval: cfg.MinRequestInterval,
		Jitter:      cfg.RequestJitter,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize availability client")
	}

	var channels []domain.Channel
	if cfg.TelegramEnabled() {
		tg, err := telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize telegram channel")
		}
		channels = append(channels, tg)
		log.Info().Msg("telegram channel enabled")
	}
	if cfg.LineEnabled() {
		ln, err := line.New(cfg.LineChannelToken, cfg.LineTo)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize LINE channel")
		}
		channels = append(channels, ln)
		log.Info().Msg("LINE channel enabled")
	}

	orch := app.NewOrchestrator(
		client,
		app.NewResolver(client, cfg.HotelCodes),
		app.NewStateTracker(window, occ, cfg.HotelCodes),
		app.NewDispatcher(channels),
		cfg.Targets(),
		window,
		occ,
		app.Policy{
			AlwaysNotify:     cfg.AlwaysNotify,
			NotifyOnFirstRun: cfg.NotifyOnFirstRun,
			NotifyOnEmpty:    cfg.NotifyOnEmpty,
			TargetDelay:      cfg.TargetLoopDelay,
		},
	)

	if cfg.MetricsAddr != "" {
		srv := server.New()
		srv.Mount("/metrics", observability.MetricsHandler(observability.InitRegistry()))
		srv.MountOps(orch)
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("ops server listening")
			httpSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("ops server failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A started cycle always runs to completion; ctx only interrupts the
	// waits between cycles.
	runCycle := func() { orch.RunCycle(context.Background()) }

	if cfg.CronSchedule != "" && !cfg.RunOnce {
		runCron(ctx, cfg, runCycle)
		return
	}

	for {
		runCycle()
		if cfg.RunOnce {
			log.Info().Msg("run-once mode, exiting")
			return
		}
		wait := cfg.ScheduleInterval
		if cfg.ScheduleJitter > 0 {
			wait += time.Duration(rand.Int63n(int64(cfg.ScheduleJitter)))
		}
		log.Info().Dur("wait", wait).Msg("next cycle scheduled")
		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown requested, exiting")
			return
		case <-time.After(wait):
		}
	}
}

func runCron(ctx context.Context, cfg shared.Config, runCycle func()) {
	loc, err := time.LoadLocation(cfg.CronTimezone)
	if err != nil {
		log.Fatal().Err(err).Msg("cron timezone invalid")
	}
	cr := cron.New(cron.WithLocation(loc))
	if _, err := cr.AddFunc(cfg.CronSchedule, runCycle); err != nil {
		log.Fatal().Err(err).Msg("cron schedule invalid")
	}
	cr.Start()
	log.Info().Str("spec", cfg.CronSchedule).Str("tz", cfg.CronTimezone).Msg("cron schedule active")

	<-ctx.Done()
	log.Info().Msg("shutdown requested, waiting for running cycle")
	<-cr.Stop().Done()
}
