package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resume-relay/internal/middleware"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token for the debug routes",
	Long: `Mint an HS256 admin token signed with ADMIN_JWT_SECRET.

Use it as "Authorization: Bearer <token>" on /api/debug/*.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil || cfg.AdminJWTSecret == "" {
			return errors.New("ADMIN_JWT_SECRET is not set")
		}
		token, err := middleware.NewAdminAuth(cfg.AdminJWTSecret).GenerateToken(tokenSubject, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
}
