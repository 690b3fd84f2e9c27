package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/sous/pkg/models"
)

func newDescribeCmd(configPath *string) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "describe NAME",
		Short: "Generate a menu description for a dish",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			text, usedFallback, err := a.svc.GenerateDescription(cmd.Context(), strings.Join(args, " "), category)
			if err != nil {
				return err
			}
			fmt.Println(text)
			fmt.Fprintf(os.Stderr, "source: %s\n", source(usedFallback))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "menu category of the dish")
	return cmd
}

func newRecommendCmd(configPath *string) *cobra.Command {
	var (
		userID       string
		restaurantID string
		history      []string
		menuFile     string
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend menu items for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var menu []models.MenuItem
			if err := readYAML(menuFile, &menu); err != nil {
				return fmt.Errorf("read menu: %w", err)
			}
			purchases := make([]models.Purchase, 0, len(history))
			for _, h := range history {
				if h = strings.TrimSpace(h); h != "" {
					purchases = append(purchases, models.Purchase{ItemName: h, Quantity: 1})
				}
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			refs, usedFallback, err := a.svc.GenerateRecommendations(cmd.Context(), userID, restaurantID, purchases, menu)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "source: %s\n", source(usedFallback))
			if len(refs) == 0 {
				fmt.Println("No recommendations.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, r := range refs {
				fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&restaurantID, "restaurant", "", "restaurant id")
	cmd.Flags().StringSliceVar(&history, "history", nil, "previously ordered item names")
	cmd.Flags().StringVar(&menuFile, "menu-file", "", "YAML file listing the available menu")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("restaurant")
	_ = cmd.MarkFlagRequired("menu-file")
	return cmd
}

func newRiskCmd(configPath *string) *cobra.Command {
	var (
		restaurantID  string
		inventoryFile string
	)

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Predict which inventory items may run out",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snapshot []models.InventoryItem
			if err := readYAML(inventoryFile, &snapshot); err != nil {
				return fmt.Errorf("read inventory: %w", err)
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			risks, usedFallback, err := a.svc.PredictInventoryRisk(cmd.Context(), restaurantID, snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "source: %s\n", source(usedFallback))
			if len(risks) == 0 {
				fmt.Println("No items at risk.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tRISK\tREASON\tRECOMMENDATION")
			for _, r := range risks {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Risk, r.Reason, r.Recommendation)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&restaurantID, "restaurant", "", `restaurant id (default "all")`)
	cmd.Flags().StringVar(&inventoryFile, "inventory-file", "", "YAML file with the inventory snapshot")
	_ = cmd.MarkFlagRequired("inventory-file")
	return cmd
}

func newSentimentCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment TEXT",
		Short: "Classify the sentiment of a review",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println(a.svc.ClassifySentiment(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}
