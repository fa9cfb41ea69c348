package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cmd2 "github.com/linkgate/urlshortener/cmd"
	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/logger"
	"github.com/linkgate/urlshortener/internal/services"
)

var (
	urlFlag         string
	codeFlag        string
	titleFlag       string
	descriptionFlag string
	expiresInFlag   time.Duration
	passwordFlag    string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short URL from a long URL.",
	Long: `This command shortens the given URL and prints the short code.

Examples:
  urlshortener create --url="example.com/launch"
  urlshortener create --url="https://example.com" --code=promo --expires-in=72h
  urlshortener create --url="https://example.com/private" --password=s3cret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cmd2.NewApp(cmd2.Cfg, logger.L())
		if err != nil {
			return err
		}
		defer app.Close()

		in := services.CreateLinkInput{
			OriginalURL:         urlFlag,
			CustomCode:          codeFlag,
			Title:               titleFlag,
			Description:         descriptionFlag,
			Password:            passwordFlag,
			IsPasswordProtected: passwordFlag != "",
		}
		if expiresInFlag > 0 {
			exp := time.Now().Add(expiresInFlag)
			in.ExpiresAt = &exp
		}

		link, err := app.Links.CreateLink(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("failed to create short link: %s", customerrors.Message(err))
		}

		fmt.Printf("Short URL created:\n")
		fmt.Printf("Code: %s\n", link.ShortCode)
		fmt.Printf("Short URL: %s\n", cmd2.Cfg.ShortURL(link.ShortCode))
		fmt.Printf("ID: %s\n", link.ID)
		if link.ExpiresAt != nil {
			fmt.Printf("Expires: %s\n", link.ExpiresAt.Format(time.RFC3339))
		}
		if link.IsPasswordProtected {
			fmt.Println("Password protected: yes")
		}
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&urlFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().StringVar(&codeFlag, "code", "", "Custom short code (3-20 letters, digits, '-' or '_')")
	CreateCmd.Flags().StringVar(&titleFlag, "title", "", "Optional title")
	CreateCmd.Flags().StringVar(&descriptionFlag, "description", "", "Optional description")
	CreateCmd.Flags().DurationVar(&expiresInFlag, "expires-in", 0, "Expire the link after this duration (e.g. 24h)")
	CreateCmd.Flags().StringVar(&passwordFlag, "password", "", "Protect the link with this password")

	_ = CreateCmd.MarkFlagRequired("url")

	cmd2.RootCmd.AddCommand(CreateCmd)
}
