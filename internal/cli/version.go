package cli

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/student-auth/studentauth/internal/validation"
)

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long: `Display the CLI build, the form rules it enforces, and the version and
readiness of the configured server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return c.runVersion(ctx)
		},
	}
}

// BuildInfo describes the CLI binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// FormRules are the registration form bounds compiled into the CLI. The
// local validate command checks against these.
type FormRules struct {
	MobileDigits   int `json:"mobile_digits"`
	MinPassoutYear int `json:"min_passout_year"`
	MaxPassoutYear int `json:"max_passout_year"`
}

// ServerInfo is what the configured server reports about itself.
type ServerInfo struct {
	Endpoint   string            `json:"endpoint,omitempty"`
	Version    string            `json:"version,omitempty"`
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// VersionReport is the JSON output of the version command.
type VersionReport struct {
	CLI    BuildInfo  `json:"cli"`
	Rules  FormRules  `json:"form_rules"`
	Server ServerInfo `json:"server"`
}

func (c *CLI) runVersion(ctx context.Context) error {
	report := VersionReport{
		CLI: BuildInfo{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		Rules: FormRules{
			MobileDigits:   validation.MobileLength,
			MinPassoutYear: validation.MinPassoutYear,
			MaxPassoutYear: validation.MaxPassoutYear,
		},
		Server: c.serverInfo(ctx),
	}

	if c.jsonOutput {
		return c.outputJSON(report)
	}

	c.printf("studentauth %s (commit %s, built %s, %s, %s)\n",
		report.CLI.Version, report.CLI.GitCommit, report.CLI.BuildDate, report.CLI.GoVersion, report.CLI.Platform)
	c.printf("Form rules: %d-digit mobile, passout year %d-%d\n",
		report.Rules.MobileDigits, report.Rules.MinPassoutYear, report.Rules.MaxPassoutYear)

	s := report.Server
	if s.Endpoint == "" {
		c.printf("Server: %s\n", s.Status)
		return nil
	}
	if s.Version != "" {
		c.printf("Server: %s at %s (version %s)\n", s.Status, s.Endpoint, s.Version)
	} else {
		c.printf("Server: %s at %s\n", s.Status, s.Endpoint)
	}
	names := make([]string, 0, len(s.Components))
	for name := range s.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.printf("  %s: %s\n", name, s.Components[name])
	}
	return nil
}

// serverInfo asks /readyz rather than /health so a server whose store is
// down shows up as not ready.
func (c *CLI) serverInfo(ctx context.Context) ServerInfo {
	if c.cfg == nil || c.cfg.Endpoint == "" {
		return ServerInfo{Status: "not configured"}
	}
	info := ServerInfo{Endpoint: c.cfg.Endpoint}
	ready, err := c.newClient().Ready(ctx)
	if err != nil {
		info.Status = "unavailable"
		return info
	}
	info.Version = ready.Version
	info.Status = ready.Status
	info.Components = ready.Components
	return info
}

// SetVersionInfo sets the version information (called from main).
func SetVersionInfo(version, commit, date string) {
	if version != "" {
		Version = version
	}
	if commit != "" {
		GitCommit = commit
	}
	if date != "" {
		BuildDate = date
	}
}
