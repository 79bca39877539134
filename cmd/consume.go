/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/events"
	"github.com/binpoints/apiserver/internal/mq"
)

// consumeCmd represents the consume command
var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Log user actions published by the API server",
	Long: `Subscribes to MQ_ACTIONS_CHANNEL on the configured MQ_BACKEND and
writes every audited action to the log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer queue.Close()

		slog.Info("consuming user actions", "backend", cfg.MQ.Backend, "channel", cfg.MQ.ActionsChannel)
		err = queue.Subscribe(ctx, cfg.MQ.ActionsChannel, events.LogHandler(slog.Default()))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
