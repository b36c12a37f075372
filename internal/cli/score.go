package cli

import (
	"github.com/spf13/cobra"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/scoring"
)

func (c *CLI) newScoreCmd() *cobra.Command {
	var s scoring.Submission

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an evaluated submission",
		Long: `Score an evaluated submission from its measurements.

The score is 100 × complexity × constant × memory. Incorrect submissions
score 0.

Complexity classes: O(1), O(log n), O(n), O(n log n), O(n^2), O(n^3), O(2^n).

Examples:
  studentauth score --inferred "O(n)" --expected "O(n)" --const-c 1 --mem-limit 256
  studentauth score --inferred "O(n^2)" --expected "O(n)" --fit-error 0.1 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScore(s)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&s.Correct, "correct", true, "whether the submission passed all tests")
	f.StringVar(&s.InferredComplexity, "inferred", "", "inferred complexity class")
	f.StringVar(&s.ExpectedComplexity, "expected", "", "expected complexity class")
	f.Float64Var(&s.FitError, "fit-error", 0, "relative error of the complexity fit")
	f.Float64Var(&s.ConstC, "const-c", 1, "measured constant factor relative to reference")
	f.Float64Var(&s.PeakMemMB, "peak-mem", 0, "peak memory in MB")
	f.Float64Var(&s.BaselineMemMB, "baseline-mem", 0, "baseline memory in MB")
	f.Float64Var(&s.MemLimitMB, "mem-limit", 256, "memory limit in MB")
	f.Float64Var(&s.Kappa, "kappa", scoring.DefaultKappa, "fit error sensitivity")
	f.StringVar(&s.Const.Method, "const-method", scoring.MethodInverse, "constant penalty method: inverse, hard or exp")
	f.Float64Var(&s.Const.Alpha, "alpha", scoring.DefaultAlpha, "allowed constant factor")
	f.Float64Var(&s.Const.Lambda, "lambda", scoring.DefaultLambda, "inverse method penalty slope")
	f.Float64Var(&s.Const.Mu, "mu", scoring.DefaultMu, "exp method decay")
	return cmd
}

func (c *CLI) runScore(s scoring.Submission) error {
	b, err := scoring.FinalScore(s)
	if err != nil {
		return errors.NewFieldInvalid("submission", err.Error())
	}

	if c.jsonOutput {
		return c.outputJSON(b)
	}

	c.printf("Score: %.2f\n", b.Score)
	c.printf("  Complexity: %.4f\n", b.Complexity)
	c.printf("  Constant:   %.4f\n", b.Constant)
	c.printf("  Memory:     %.4f\n", b.Memory)
	return nil
}
