package main

import (
	"context"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	sloggger "github.com/fakesalmon/minefleet/cmd/minefleet/log"
	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/actor/sim"
	"github.com/fakesalmon/minefleet/internal/bot"
	"github.com/fakesalmon/minefleet/internal/config"
	"github.com/fakesalmon/minefleet/internal/event"
	"github.com/fakesalmon/minefleet/internal/mcstatus"
	"github.com/fakesalmon/minefleet/internal/remote/discord"
	"github.com/fakesalmon/minefleet/internal/remote/telegram"
	"github.com/fakesalmon/minefleet/internal/server"
)

// wrapWithRecover wraps a function with panic recovery logic
func wrapWithRecover(logger *slog.Logger, f func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				stackTrace := debug.Stack()
				errMsg := fmt.Sprintf("panic recovered: %v\nStacktrace: %s", r, stackTrace)
				logger.Error(errMsg)
				sloggger.FlushLog()
			}
		}()
		return f()
	}
}

func main() {
	// .env is optional, it only carries overrides for local runs.
	_ = godotenv.Load()

	if err := config.Load(); err != nil {
		stdlog.Fatalf("Error loading configuration: %s", err.Error())
	}

	logger, err := sloggger.NewLogger(config.Fleet.Debug.Log, config.Fleet.LogSaveDirectory, "")
	if err != nil {
		stdlog.Fatalf("Error starting logger: %s", err.Error())
	}
	defer sloggger.FlushAndClose()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("fatal error detected, minefleet will close with the following error: %v\n Stacktrace: %s", r, debug.Stack()))
			sloggger.FlushAndClose()
			os.Exit(1)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	eventListener := event.NewListener(logger)

	conn, err := buildConnector(config.Fleet.Server.Backend)
	if err != nil {
		logger.Error("Error preparing actor backend", slog.Any("error", err))
		return
	}

	srv := server.New(logger)
	manager := bot.NewManager(logger, conn, srv)
	srv.AttachManager(manager)

	poller := mcstatus.NewPoller(
		logger,
		config.Fleet.Server.Host,
		config.Fleet.Server.Port,
		time.Duration(config.Fleet.Server.StatusPollSeconds)*time.Second,
		srv,
	)
	poller.Start()

	// Discord Bot initialization
	if config.Fleet.Discord.Enabled {
		discordBot, err := discord.NewBot(
			config.Fleet.Discord.Token,
			config.Fleet.Discord.ChannelID,
			manager,
			config.Fleet.Discord.UseWebhook,
			config.Fleet.Discord.WebhookURL,
		)
		if err != nil {
			logger.Error("Discord could not been initialized", slog.Any("error", err))
			return
		}

		eventListener.Register(discordBot.Handle)
		if !config.Fleet.Discord.UseWebhook {
			g.Go(wrapWithRecover(logger, func() error {
				return discordBot.Start(ctx)
			}))
		}
	}

	// Telegram Bot initialization
	if config.Fleet.Telegram.Enabled {
		telegramBot, err := telegram.NewBot(config.Fleet.Telegram.Token, config.Fleet.Telegram.ChatID, manager, logger)
		if err != nil {
			logger.Error("Telegram could not been initialized", slog.Any("error", err))
			return
		}

		eventListener.Register(telegramBot.Handle)
		g.Go(wrapWithRecover(logger, func() error {
			defer telegramBot.Close()
			return telegramBot.Start(ctx)
		}))
	}

	g.Go(wrapWithRecover(logger, func() error {
		defer cancel()
		return srv.Listen(config.Fleet.Dashboard.Port)
	}))

	g.Go(wrapWithRecover(logger, func() error {
		defer cancel()
		return eventListener.Listen(ctx)
	}))

	g.Go(wrapWithRecover(logger, func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		return nil
	}))

	g.Go(wrapWithRecover(logger, func() error {
		<-ctx.Done()
		logger.Info("minefleet shutting down...")
		cancel()
		poller.Stop()
		manager.Shutdown()
		if err := srv.Stop(); err != nil {
			logger.Error("error stopping dashboard server", slog.Any("error", err))
			return err
		}
		return nil
	}))

	if err := g.Wait(); err != nil {
		cancel()
		logger.Error("Error running minefleet", slog.Any("error", err))
		return
	}

	sloggger.FlushAndClose()
}

func buildConnector(backend string) (actor.Connector, error) {
	switch backend {
	case "", "sim":
		return sim.NewConnector(sim.DefaultWorld()), nil
	default:
		return nil, fmt.Errorf("unknown actor backend %q", backend)
	}
}
