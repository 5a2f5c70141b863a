package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ukydev/garage-service/internal/auth"
	"github.com/ukydev/garage-service/internal/models"
)

// newTokenCmd issues a bearer token without a login, for scripts and
// local testing.
func newTokenCmd(load loader) *cobra.Command {
	var claims models.Claims
	var role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			svc, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
			if err != nil {
				return err
			}
			claims.Role = models.Role(role)
			token, err := svc.IssueToken(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&claims.UserID, "user-id", "", "subject user id")
	cmd.Flags().StringVar(&claims.Email, "email", "", "email carried in the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleManager), "client, mechanic or manager")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
