// Package scoring computes contest submission scores.
//
// A correct submission scores 100 scaled by three multipliers in [0, 1]:
// how its inferred time complexity compares to the expected class, how
// large its constant factor is, and how much memory it used.
package scoring

import (
	"fmt"
	"math"
)

// Complexity classes from best to worst.
var Classes = []string{"O(1)", "O(log n)", "O(n)", "O(n log n)", "O(n^2)", "O(n^3)", "O(2^n)"}

// Constant-factor penalty methods.
const (
	MethodInverse = "inverse"
	MethodHard    = "hard"
	MethodExp     = "exp"
)

// Defaults for the tunable parameters.
const (
	DefaultKappa  = 2.0
	DefaultAlpha  = 1.0
	DefaultLambda = 2.0
	DefaultMu     = 2.0
)

// ClassOrder returns the position of cls in Classes.
func ClassOrder(cls string) (int, error) {
	for i, c := range Classes {
		if c == cls {
			return i, nil
		}
	}
	return -1, fmt.Errorf("scoring: unknown complexity class %q", cls)
}

// CoarseMultiplier is 1 when the inferred class is no worse than expected,
// 0.6 when it is one class worse, and 0 otherwise.
func CoarseMultiplier(inferred, expected string) (float64, error) {
	inf, err := ClassOrder(inferred)
	if err != nil {
		return 0, err
	}
	exp, err := ClassOrder(expected)
	if err != nil {
		return 0, err
	}
	switch d := inf - exp; {
	case d <= 0:
		return 1.0, nil
	case d == 1:
		return 0.6, nil
	default:
		return 0.0, nil
	}
}

// FitScore discounts a noisy complexity fit.
func FitScore(fitError, kappa float64) float64 {
	return 1.0 / (1.0 + kappa*math.Max(0, fitError))
}

// ComplexityMultiplier combines the coarse class comparison with the fit quality.
func ComplexityMultiplier(inferred, expected string, fitError, kappa float64) (float64, error) {
	coarse, err := CoarseMultiplier(inferred, expected)
	if err != nil {
		return 0, err
	}
	return coarse * FitScore(fitError, kappa), nil
}

// ConstParams tunes ConstMultiplier. Zero values select the defaults.
type ConstParams struct {
	Alpha  float64 `json:"alpha,omitempty"`
	Method string  `json:"method,omitempty"`
	Lambda float64 `json:"lambda,omitempty"`
	Mu     float64 `json:"mu,omitempty"`
}

func (p ConstParams) withDefaults() ConstParams {
	if p.Alpha == 0 {
		p.Alpha = DefaultAlpha
	}
	if p.Method == "" {
		p.Method = MethodInverse
	}
	if p.Lambda == 0 {
		p.Lambda = DefaultLambda
	}
	if p.Mu == 0 {
		p.Mu = DefaultMu
	}
	return p
}

// ConstMultiplier penalizes a constant factor C above the allowance alpha.
// A non-positive C scores 0.
func ConstMultiplier(c float64, p ConstParams) (float64, error) {
	p = p.withDefaults()
	if c <= 0 {
		return 0, nil
	}
	r := math.Inf(1)
	if p.Alpha > 0 {
		r = c / p.Alpha
	}
	switch p.Method {
	case MethodHard:
		return clamp01(p.Alpha / c), nil
	case MethodExp:
		return math.Exp(-p.Mu * math.Max(0, r-1)), nil
	case MethodInverse:
		if r <= 1 {
			return 1, nil
		}
		return clamp01(1 / (1 + p.Lambda*(r-1))), nil
	default:
		return 0, fmt.Errorf("scoring: unknown constant method %q", p.Method)
	}
}

// MemoryMultiplier drops linearly from 1 at the baseline to 0 at the limit.
// A non-positive limit scores 0.
func MemoryMultiplier(peakMB, baselineMB, limitMB float64) float64 {
	if limitMB <= 0 {
		return 0
	}
	effective := math.Max(0, peakMB-baselineMB)
	return 1 - math.Min(1, effective/limitMB)
}

// Submission carries the measurements of one evaluated submission.
type Submission struct {
	Correct            bool    `json:"correct"`
	InferredComplexity string  `json:"inferred_complexity"`
	ExpectedComplexity string  `json:"expected_complexity"`
	FitError           float64 `json:"fit_error"`
	ConstC             float64 `json:"const_c"`
	PeakMemMB          float64 `json:"peak_mem_mb"`
	BaselineMemMB      float64 `json:"baseline_mem_mb"`
	MemLimitMB         float64 `json:"mem_limit_mb"`

	// Optional tuning. Zero values select the defaults.
	Kappa float64     `json:"kappa,omitempty"`
	Const ConstParams `json:"const"`
}

// Breakdown is a final score together with its factors.
type Breakdown struct {
	Complexity float64 `json:"complexity"`
	Constant   float64 `json:"constant"`
	Memory     float64 `json:"memory"`
	Score      float64 `json:"score"`
}

// FinalScore scores a submission. Incorrect submissions score 0.
func FinalScore(s Submission) (Breakdown, error) {
	if !s.Correct {
		return Breakdown{}, nil
	}
	kappa := s.Kappa
	if kappa == 0 {
		kappa = DefaultKappa
	}
	cm, err := ComplexityMultiplier(s.InferredComplexity, s.ExpectedComplexity, s.FitError, kappa)
	if err != nil {
		return Breakdown{}, err
	}
	constant, err := ConstMultiplier(s.ConstC, s.Const)
	if err != nil {
		return Breakdown{}, err
	}
	mem := MemoryMultiplier(s.PeakMemMB, s.BaselineMemMB, s.MemLimitMB)
	return Breakdown{
		Complexity: cm,
		Constant:   constant,
		Memory:     mem,
		Score:      100 * cm * constant * mem,
	}, nil
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
