package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/student-auth/studentauth/internal/students"
)

func (c *CLI) newStudentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Inspect registered students",
		Long:  `Inspect registered students through the server's admin API.`,
	}
	cmd.AddCommand(c.newStudentsListCmd())
	return cmd
}

func (c *CLI) newStudentsListCmd() *cobra.Command {
	var filter students.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered students",
		Long: `List registered students, optionally filtered by passout year and branch.

Requires the admin token (--token or server.adminToken in the config).

Examples:
  studentauth students list
  studentauth students list --passout-year 2025 --branch CSE
  studentauth students list --search madras --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return c.runStudentsList(ctx, filter)
		},
	}

	cmd.Flags().IntVar(&filter.PassoutYear, "passout-year", 0, "only students passing out in this year")
	cmd.Flags().StringVar(&filter.Branch, "branch", "", "only students in this branch")
	cmd.Flags().StringVar(&filter.Search, "search", "", "match name, email, college or branch")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, fmt.Sprintf("maximum rows (default %d)", students.DefaultListLimit))
	return cmd
}

func (c *CLI) runStudentsList(ctx context.Context, filter students.Filter) error {
	c.debugf("listing students from %s\n", c.cfg.Endpoint)
	list, err := c.newClient().ListStudents(ctx, filter)
	if err != nil {
		return err
	}

	if c.jsonOutput {
		return c.outputJSON(list)
	}

	if list.Count == 0 {
		c.println("No students found")
		return nil
	}

	w := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tMOBILE\tCOLLEGE\tYEAR\tBRANCH")
	for _, s := range list.Students {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Name, s.Email, s.Mobile, s.College, s.PassoutYear, s.Branch)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	c.printf("\n%d student(s)\n", list.Count)
	return nil
}

func (c *CLI) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show accepted, rejected and failed request counts",
		Long: `Show aggregated audit statistics from the server.

Only counts and rejection messages are shown, never student data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return c.runAuditSummary(ctx)
		},
	})
	return cmd
}

func (c *CLI) runAuditSummary(ctx context.Context) error {
	summary, err := c.newClient().AuditSummary(ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return c.outputJSON(summary)
	}
	if c.quiet {
		return nil
	}
	_, err = fmt.Fprint(c.stdout, summary.String())
	return err
}
