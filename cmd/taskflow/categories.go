package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

// Category command flags.
var (
	categoriesFlagSync bool

	categoryFlagName  string
	categoryFlagColor string
	categoryFlagIcon  string
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories with their open task counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDashboard(cmd, func(d *service.Dashboard) error {
			if categoriesFlagSync {
				if err := d.PersistTaskCounts(cmd.Context()); err != nil {
					return errReported
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCategories(d.Categories()))
			return nil
		})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		draft := model.CategoryDraft{Name: args[0], Color: categoryFlagColor, Icon: categoryFlagIcon}
		return withDashboard(cmd, func(d *service.Dashboard) error {
			c, ok := d.AddCategory(cmd.Context(), draft)
			if !ok {
				return errReported
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styleSuccess.Render("Added category"), styleTitle.Render(fmt.Sprintf("#%d %s", c.ID, c.Name)))
			return nil
		})
	},
}

var categoryEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Rename or restyle a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return fmt.Errorf("invalid category id %q", args[0])
		}
		var patch model.CategoryPatch
		if cmd.Flags().Changed("name") {
			patch.Name = &categoryFlagName
		}
		if cmd.Flags().Changed("color") {
			patch.Color = &categoryFlagColor
		}
		if cmd.Flags().Changed("icon") {
			patch.Icon = &categoryFlagIcon
		}
		return withDashboard(cmd, func(d *service.Dashboard) error {
			if _, ok := d.UpdateCategory(cmd.Context(), id, patch); !ok {
				return errReported
			}
			return nil
		})
	},
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return fmt.Errorf("invalid category id %q", args[0])
		}
		return withDashboard(cmd, func(d *service.Dashboard) error {
			if !d.RemoveCategory(cmd.Context(), id) {
				return errReported
			}
			return nil
		})
	},
}

func init() {
	categoriesCmd.Flags().BoolVar(&categoriesFlagSync, "sync", false, "Write the recomputed open task counts back to the store")

	categoryAddCmd.Flags().StringVar(&categoryFlagColor, "color", "#3B82F6", "Hex color")
	categoryAddCmd.Flags().StringVar(&categoryFlagIcon, "icon", "Folder", "Icon name")
	categoryEditCmd.Flags().StringVar(&categoryFlagName, "name", "", "New name")
	categoryEditCmd.Flags().StringVar(&categoryFlagColor, "color", "", "Hex color")
	categoryEditCmd.Flags().StringVar(&categoryFlagIcon, "icon", "", "Icon name")
	categoryCmd.AddCommand(categoryAddCmd, categoryEditCmd, categoryRmCmd)
}
