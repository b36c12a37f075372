package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/student-auth/studentauth/internal/accounts"
	"github.com/student-auth/studentauth/internal/bootstrap"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/internal/storage"
)

func (c *CLI) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Apply pending schema migrations to the configured database.

Migrations are embedded in the binary and recorded in schema_migrations,
so running this command again is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return c.runMigrate(ctx)
		},
	}
}

func (c *CLI) runMigrate(ctx context.Context) error {
	store, err := bootstrap.OpenStore(ctx, c.cfg.Database, false, c.logger())
	if err != nil {
		return err
	}
	defer store.Close()

	applied, err := storage.NewMigrationRunner(store.DB, store.Dialect).Run(ctx)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		if applied == nil {
			applied = []string{}
		}
		return c.outputJSON(map[string]interface{}{
			"driver":  store.Dialect.Name,
			"applied": applied,
		})
	}

	if len(applied) == 0 {
		c.println("✓ Database is up to date")
		return nil
	}
	for _, name := range applied {
		c.printf("  applied %s\n", name)
	}
	c.printf("✓ Applied %d migration(s)\n", len(applied))
	return nil
}

func (c *CLI) newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Register students from a YAML seed file",
		Long: `Register every student listed in a YAML seed file.

Each entry goes through the same checks as the registration form. Rejected
entries are reported and skipped; the command exits with status 1 if any
entry was rejected.

Example file:
  students:
    - name: Asha Rao
      email: asha@example.com
      password: correct-horse
      mobile: "9876543210"
      college: Govt College of Engineering
      passout_year: 2025
      branch: CSE`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return c.runSeed(ctx, args[0])
		},
	}
}

func (c *CLI) runSeed(ctx context.Context, path string) error {
	log := c.logger()
	store, err := bootstrap.OpenStore(ctx, c.cfg.Database, true, log)
	if err != nil {
		return err
	}
	defer store.Close()

	audit, err := observability.NewPersistentEventLogger(store.DB, store.Dialect.Rebind, log)
	if err != nil {
		return err
	}
	// Seeding never issues sessions, so no session manager is needed.
	svc := accounts.NewService(store.Repo, nil, audit, log)
	report, err := svc.ImportSeed(ctx, path)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		if err := c.outputJSON(report); err != nil {
			return err
		}
	} else {
		c.printSeedReport(report)
	}

	if report.Rejected > 0 {
		return &exitError{code: ExitValidation}
	}
	return nil
}

func (c *CLI) printSeedReport(report *accounts.SeedReport) {
	for _, r := range report.Results {
		if r.Accepted {
			c.printf("✓ %s (id %d)\n", r.Email, r.StudentID)
			continue
		}
		if r.Field != "" {
			c.printf("✗ %s: %s [%s]\n", r.Email, r.Message, r.Field)
		} else {
			c.printf("✗ %s: %s\n", r.Email, r.Message)
		}
	}
	c.printf("\nAccepted: %d, Rejected: %d\n", report.Accepted, report.Rejected)
}

// commandContext returns the command's context with a deadline for
// database and network work.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 5*time.Minute)
}
