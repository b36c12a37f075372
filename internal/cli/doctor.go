package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/student-auth/studentauth/internal/bootstrap"
	"github.com/student-auth/studentauth/internal/session"
)

func (c *CLI) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics",
		Long: `Run system diagnostics.

Checks:
  - configuration
  - server reachability and readiness
  - database connectivity
  - redis connectivity (when configured)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return c.runDoctor(ctx)
		},
	}
}

// DiagnosticCheck represents a single diagnostic check result.
type DiagnosticCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (c *CLI) runDoctor(ctx context.Context) error {
	if !c.jsonOutput {
		c.println("studentauth System Diagnostics")
		c.println("==============================")
		c.println("")
	}

	checks := []DiagnosticCheck{
		c.checkConfig(),
		c.checkServer(ctx),
		c.checkDatabase(ctx),
		c.checkRedis(ctx),
	}

	allPassed := true
	for _, check := range checks {
		if !check.Passed {
			allPassed = false
		}
	}

	if c.jsonOutput {
		if err := c.outputJSON(map[string]interface{}{
			"checks":     checks,
			"all_passed": allPassed,
		}); err != nil {
			return err
		}
	} else {
		for _, check := range checks {
			c.printCheck(check)
		}
		c.println("")
		if allPassed {
			c.println("✓ All checks passed")
		} else {
			c.println("✗ Some checks failed - see above for details")
		}
	}

	if !allPassed {
		return &exitError{code: ExitInternal}
	}
	return nil
}

func (c *CLI) printCheck(check DiagnosticCheck) {
	status := "✗"
	if check.Passed {
		status = "✓"
	}
	c.printf("%s %s: %s\n", status, check.Name, check.Message)
	if check.Details != "" && !check.Passed {
		c.printf("  → %s\n", check.Details)
	}
}

func (c *CLI) checkConfig() DiagnosticCheck {
	check := DiagnosticCheck{Name: "Configuration"}

	if c.cfg == nil {
		check.Message = "No configuration loaded"
		check.Details = "Create ~/.studentauth/config.yaml or use --config flag"
		return check
	}
	if err := c.cfg.Validate(false); err != nil {
		check.Message = "Configuration is invalid"
		check.Details = err.Error()
		return check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("Driver: %s, endpoint: %s", c.cfg.Database.Driver, c.cfg.Endpoint)
	return check
}

func (c *CLI) checkServer(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Server"}

	if c.cfg == nil || c.cfg.Endpoint == "" {
		check.Message = "No endpoint configured"
		check.Details = "Set endpoint in config or use --endpoint flag"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	info, err := c.newClient().Ready(ctx)
	if err != nil {
		check.Message = "Cannot reach server"
		check.Details = err.Error()
		return check
	}
	if info.Status != "ready" {
		check.Message = fmt.Sprintf("Server at %s is %s", c.cfg.Endpoint, info.Status)
		check.Details = fmt.Sprintf("components: %v", info.Components)
		return check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("Ready at %s (version %s)", c.cfg.Endpoint, info.Version)
	return check
}

func (c *CLI) checkDatabase(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Database"}
	if c.cfg == nil {
		check.Message = "No configuration loaded"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := bootstrap.OpenStore(ctx, c.cfg.Database, false, c.logger())
	if err != nil {
		check.Message = "Cannot connect to database"
		check.Details = err.Error()
		return check
	}
	defer store.Close()

	if err := store.Repo.CheckConnectivity(ctx); err != nil {
		check.Message = "Database is not responding"
		check.Details = err.Error()
		return check
	}

	check.Passed = true
	check.Message = fmt.Sprintf("Connected (%s)", store.Dialect.Name)
	return check
}

func (c *CLI) checkRedis(ctx context.Context) DiagnosticCheck {
	check := DiagnosticCheck{Name: "Session revocation"}
	if c.cfg == nil || c.cfg.Session.RedisAddr == "" {
		check.Passed = true
		check.Message = "In-memory (session.redisAddr not set)"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := session.DialRedis(ctx, c.cfg.Session.RedisAddr, c.cfg.Session.RedisPassword, c.cfg.Session.RedisDB)
	if err != nil {
		check.Message = "Cannot connect to redis"
		check.Details = err.Error()
		return check
	}
	client.Close()

	check.Passed = true
	check.Message = fmt.Sprintf("Redis at %s", c.cfg.Session.RedisAddr)
	return check
}
