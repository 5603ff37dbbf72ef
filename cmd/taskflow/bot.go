package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/bot"
	"taskflow/internal/service"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Run the Telegram bot. Every private chat gets its own dashboard.
A daily report goes to every chat at REPORT_TIME, or every
REPORT_INTERVAL_HOURS when no time is set.`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	repos := newRepositories(store)
	telegramBot, err := bot.New(cfg.TelegramToken, bot.Options{
		Dashboards: repos.dashboard,
		Reminder:   service.NewReminderService(repos.tasks, repos.categories),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	scheduler := service.NewSchedulerService(time.Local, logger)
	report := func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("send reports", "error", err)
		}
	}
	if cfg.ReportTime != "" {
		_, err = scheduler.ScheduleDaily(cfg.ReportTime, report)
	} else {
		_, err = scheduler.ScheduleInterval(cfg.ReportInterval, report)
	}
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("taskflow bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
