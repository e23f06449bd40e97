package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/lmscore/internal/bootstrap"
	"github.com/nikhilbhutani/lmscore/internal/database"
)

func bootstrapCmd() *cobra.Command {
	var (
		email   string
		name    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the platform roles and the platform administrator if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.Bootstrap.AdminEmail
			}
			if name == "" {
				name = cfg.Bootstrap.AdminName
			}

			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				applied, err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath)
				if err != nil {
					return err
				}
				for _, v := range applied {
					fmt.Printf("migrated:       %s\n", v)
				}
			}

			res, err := bootstrap.NewResolver(
				bootstrap.NewPGStore(db),
				bootstrap.Config{AdminEmail: email, AdminName: name},
				bootstrap.WithLogger(slog.Default()),
			).Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("platform role:  %d\n", res.PlatformRole.ID)
			fmt.Printf("template role:  %d\n", res.TemplateRole.ID)
			fmt.Printf("administrator:  %d (%s)\n", res.Admin.ID, res.Admin.Email)
			if len(res.Created) == 0 {
				fmt.Println("created:        nothing, already initialized")
			} else {
				fmt.Printf("created:        %s\n", strings.Join(res.Created, ", "))
			}
			fmt.Printf("patched:        %d\n", res.Patched)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Administrator email (defaults to BOOTSTRAP_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&name, "name", "", "Administrator display name")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations first")
	return cmd
}
