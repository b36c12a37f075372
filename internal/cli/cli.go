// Package cli provides the studentauth command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/student-auth/studentauth/internal/config"
	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/observability"
)

// Exit codes.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitAuth       = 2
	ExitConflict   = 3
	ExitInternal   = 4
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

// exitError ends the process with code after the command has already
// reported the problem itself.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config

	stdout io.Writer
	stderr io.Writer

	// Global flags
	configPath string
	endpoint   string
	token      string
	jsonOutput bool
	quiet      bool
	debug      bool
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{stdout: os.Stdout, stderr: os.Stderr}
	cli.rootCmd = cli.newRootCmd()
	return cli
}

// SetArgs overrides os.Args[1:], for tests.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects standard output and error, for tests.
func (c *CLI) SetOutput(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
}

// Execute runs the CLI and returns the process exit code.
func (c *CLI) Execute() int {
	err := c.rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	c.errorf("Error: %v\n", err)
	if _, ok := errors.From(err); !ok {
		// Usage mistakes and unknown commands.
		return ExitValidation
	}
	return errors.ExitCode(err)
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studentauth",
		Short: "studentauth - student registration and login",
		Long: `studentauth manages student registration for coding contests.

It provides:
  • Registration form checks (10-digit mobile, passout year 2000-2028)
  • Database migrations and YAML seed import
  • Admin listing of registered students
  • Submission scoring`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.studentauth/config.yaml)")
	cmd.PersistentFlags().StringVar(&c.endpoint, "endpoint", "", "server endpoint")
	cmd.PersistentFlags().StringVar(&c.token, "token", "", "admin token (overrides config)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVar(&c.quiet, "quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "verbose debug logs")

	cmd.AddCommand(c.newValidateCmd())
	cmd.AddCommand(c.newScoreCmd())
	cmd.AddCommand(c.newMigrateCmd())
	cmd.AddCommand(c.newSeedCmd())
	cmd.AddCommand(c.newStudentsCmd())
	cmd.AddCommand(c.newAuditCmd())
	cmd.AddCommand(c.newDoctorCmd())
	cmd.AddCommand(c.newVersionCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	// Override with flags
	if c.endpoint != "" {
		c.cfg.Endpoint = c.endpoint
	}
	if c.token != "" {
		c.cfg.Server.AdminToken = c.token
	}
	return nil
}

// logger builds the logger for commands that touch the database.
func (c *CLI) logger() *zap.Logger {
	level := c.cfg.Logging.Level
	if c.debug {
		level = "debug"
	} else if c.quiet {
		level = "error"
	}
	log, err := observability.NewLogger(level, "console")
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	if !c.quiet {
		fmt.Fprintf(c.stdout, format, args...)
	}
}

func (c *CLI) println(args ...interface{}) {
	if !c.quiet {
		fmt.Fprintln(c.stdout, args...)
	}
}

func (c *CLI) errorf(format string, args ...interface{}) {
	fmt.Fprintf(c.stderr, format, args...)
}

func (c *CLI) debugf(format string, args ...interface{}) {
	if c.debug {
		fmt.Fprintf(c.stderr, "[DEBUG] "+format, args...)
	}
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newClient creates a server client with the current config.
func (c *CLI) newClient() *Client {
	return NewClient(c.cfg.Endpoint, c.cfg.Server.AdminToken)
}
