package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-relay/internal/models"
)

var (
	contactName    string
	contactEmail   string
	contactMessage string
	contactPhone   string
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Leave your details for the resume owner",
	Example: `  resume-chat contact --name "Ada Lovelace" --email ada@example.com \
    --message "Would love to talk about the analytics role"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().Contact(cmd.Context(), models.ContactRequest{
			Name:    contactName,
			Email:   contactEmail,
			Message: contactMessage,
			Phone:   contactPhone,
		})
		if err != nil {
			return fmt.Errorf("contact: %s", describeError(err))
		}
		if !resp.Success {
			return fmt.Errorf("contact: the request was not accepted")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Thanks! Your message was delivered.")
		return nil
	},
}

func init() {
	contactCmd.Flags().StringVar(&contactName, "name", "", "your name")
	contactCmd.Flags().StringVar(&contactEmail, "email", "", "your email address")
	contactCmd.Flags().StringVarP(&contactMessage, "message", "m", "", "what you would like to discuss")
	contactCmd.Flags().StringVar(&contactPhone, "phone", "", "phone number (optional)")
	contactCmd.MarkFlagRequired("name")
	contactCmd.MarkFlagRequired("email")
	contactCmd.MarkFlagRequired("message")
}
