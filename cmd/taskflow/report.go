package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/service"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the daily report of open tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		repos := newRepositories(store)
		text, err := service.NewReminderService(repos.tasks, repos.categories).DailySummary(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}
