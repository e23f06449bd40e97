package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
)

func tokenCmd() *cobra.Command {
	var (
		sub      int64
		role     string
		tenantID int64
		email    string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed credential for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			r, err := models.ParseRole(role)
			if err != nil {
				return err
			}

			p := auth.Principal{ID: sub, Role: r}
			if tenantID != 0 {
				p.TenantID = &tenantID
			}
			tok, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(p, email, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}

	cmd.Flags().Int64Var(&sub, "sub", 0, "Principal id (required)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStudent), "Role")
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "Tenant id (omit for SUPER_ADMIN)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Credential lifetime")
	cmd.MarkFlagRequired("sub")
	return cmd
}
