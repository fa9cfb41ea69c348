package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	cmd2 "github.com/linkgate/urlshortener/cmd"
	"github.com/linkgate/urlshortener/internal/analytics"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/logger"
)

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short URL",
	Long:  `Get click statistics for the provided short code, broken down by country, device and browser.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	cmd2.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(cmd *cobra.Command, args []string) error {
	shortCode := args[0]

	app, err := cmd2.NewApp(cmd2.Cfg, logger.L())
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.Links.GetLinkStats(cmd.Context(), shortCode)
	if err != nil {
		if customerrors.KindOf(err) == customerrors.KindNotFound {
			return fmt.Errorf("short code '%s' not found", shortCode)
		}
		return fmt.Errorf("error retrieving statistics: %w", err)
	}

	fmt.Printf("Statistics for short code: %s\n", shortCode)
	fmt.Printf("Original URL: %s\n", stats.Link.OriginalURL)
	fmt.Printf("Active: %t\n", stats.Link.IsActive)
	fmt.Printf("Total clicks: %d\n", stats.TotalClicks)
	fmt.Printf("Created: %s\n", stats.Link.CreatedAt.Format("2006-01-02 15:04:05"))
	printBuckets("Countries", stats.Countries)
	printBuckets("Devices", stats.Devices)
	printBuckets("Browsers", stats.Browsers)
	return nil
}

func printBuckets(title string, buckets []analytics.Bucket) {
	if len(buckets) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, b := range buckets {
		fmt.Printf("  %-20s %d\n", b.Name, b.Clicks)
	}
}
