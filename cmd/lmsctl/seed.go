package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/lmscore/internal/course"
	"github.com/nikhilbhutani/lmscore/internal/maintenance"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

func seedTenantCmd() *cobra.Command {
	var (
		name    string
		status  string
		courses []string
	)

	cmd := &cobra.Command{
		Use:   "seed-tenant",
		Short: "Create a tenant, optionally with courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st := models.TenantStatus(strings.ToUpper(status))
			if !st.Valid() {
				return fmt.Errorf("invalid status %q", status)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			capability, err := maintenance.Enter(ctx, slog.Default(), "lmsctl seed-tenant "+name)
			if err != nil {
				return err
			}

			t, err := tenant.NewService(db).Create(ctx, capability, name, st, nil)
			if err != nil {
				return err
			}
			fmt.Printf("tenant %d %q (%s)\n", t.ID, t.Name, t.Status)

			if len(courses) == 0 {
				return nil
			}
			pred, err := tenant.BuildScopedPredicate(t.ID, nil)
			if err != nil {
				return err
			}
			store := course.NewStore(db)
			for _, title := range courses {
				c, err := store.Create(ctx, pred, title, "PUBLISHED")
				if err != nil {
					return err
				}
				fmt.Printf("  course %d %q\n", c.ID, c.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Tenant name (required)")
	cmd.Flags().StringVar(&status, "status", string(models.TenantTrial), "Initial status")
	cmd.Flags().StringSliceVar(&courses, "course", nil, "Course title to create (repeatable)")
	cmd.MarkFlagRequired("name")
	return cmd
}
