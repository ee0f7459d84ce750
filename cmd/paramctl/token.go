package main

import (
	"fmt"
	"os"
	"time"

	"github.com/narvanalabs/persistent-params/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUser   string
	tokenRole   string
	tokenSecret string
	tokenExpiry time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "generate an API token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := tokenSecret
		if secret == "" {
			secret = os.Getenv("JWT_SECRET")
		}
		if secret == "" {
			return fmt.Errorf("JWT secret required: pass --secret or set JWT_SECRET")
		}
		if len(secret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}

		svc := auth.NewService(&auth.Config{
			JWTSecret:   []byte(secret),
			TokenExpiry: tokenExpiry,
		}, log.Logger)
		token, err := svc.GenerateToken(tokenUser, auth.Role(tokenRole))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "admin", "user ID for the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleAdmin), "role: viewer, builder or admin")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "JWT secret (default $JWT_SECRET)")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
