package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cmd2 "github.com/linkgate/urlshortener/cmd"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/logger"
	"github.com/linkgate/urlshortener/internal/models"
)

var ownerFlag string

// DeactivateCmd turns a link off without deleting it. Visits then go to the fallback.
var DeactivateCmd = &cobra.Command{
	Use:   "deactivate [link-id]",
	Short: "Deactivate a short link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid link id %q", args[0])
		}

		app, err := cmd2.NewApp(cmd2.Cfg, logger.L())
		if err != nil {
			return err
		}
		defer app.Close()

		inactive := false
		link, err := app.Links.UpdateLink(cmd.Context(), id, ownerFlag, models.LinkUpdate{IsActive: &inactive})
		if err != nil {
			return fmt.Errorf("failed to deactivate link: %s", customerrors.Message(err))
		}
		fmt.Printf("Link %s (%s) deactivated.\n", link.ShortCode, link.ID)
		return nil
	},
}

func init() {
	DeactivateCmd.Flags().StringVar(&ownerFlag, "owner", "", "Account id owning the link")
	cmd2.RootCmd.AddCommand(DeactivateCmd)
}
