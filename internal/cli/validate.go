package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/student-auth/studentauth/internal/validation"
	"github.com/student-auth/studentauth/pkg/models"
)

func (c *CLI) newValidateCmd() *cobra.Command {
	var (
		mobile      string
		passoutYear string
		remote      bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a mobile number and passout year",
		Long: `Check a mobile number and passout year with the registration form rules.

The mobile number must be exactly 10 digits. The passout year must be
between 2000 and 2028 inclusive. The first failing rule is reported on
stderr and the command exits with status 1.

Examples:
  studentauth validate --mobile 9876543210 --passout-year 2024
  studentauth validate --mobile 98765 --passout-year 2024 --json
  studentauth validate --mobile 9876543210 --passout-year 2030 --remote`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), mobile, passoutYear, remote)
		},
	}

	cmd.Flags().StringVar(&mobile, "mobile", "", "mobile number to check")
	cmd.Flags().StringVar(&passoutYear, "passout-year", "", "passout year to check")
	cmd.Flags().BoolVar(&remote, "remote", false, "check through the server instead of locally")
	return cmd
}

func (c *CLI) runValidate(ctx context.Context, mobile, passoutYear string, remote bool) error {
	var result models.ValidateResponse
	if remote {
		if ctx == nil {
			ctx = context.Background()
		}
		r, err := c.newClient().Validate(ctx, mobile, passoutYear)
		if err != nil {
			return err
		}
		result = *r
	} else {
		result = validation.Check(mobile, passoutYear)
	}
	if !result.OK {
		// stderr stands in for the form's alert.
		c.errorf("%s\n", result.Message)
	}

	if c.jsonOutput {
		if err := c.outputJSON(result); err != nil {
			return err
		}
	} else if result.OK {
		c.println("✓ Form is valid")
	}

	if !result.OK {
		return &exitError{code: ExitValidation}
	}
	return nil
}
