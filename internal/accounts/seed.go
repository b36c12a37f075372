package accounts

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/pkg/models"
)

// SeedFile is the YAML document accepted by ImportSeed.
//
//	students:
//	  - name: Asha Rao
//	    email: asha@example.com
//	    password: s3cret-pass
//	    mobile: "9876543210"
//	    college: Govt College of Engineering
//	    passout_year: 2025
//	    branch: CSE
type SeedFile struct {
	Students []models.RegisterRequest `yaml:"students"`
}

// SeedResult is the outcome for one seed entry.
type SeedResult struct {
	Index     int    `json:"index"`
	Email     string `json:"email"`
	Accepted  bool   `json:"accepted"`
	StudentID int64  `json:"student_id,omitempty"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message,omitempty"`
}

// SeedReport summarizes an import.
type SeedReport struct {
	Accepted int          `json:"accepted"`
	Rejected int          `json:"rejected"`
	Results  []SeedResult `json:"results"`
}

// ImportSeed registers every student listed in the YAML file at path.
func (s *Service) ImportSeed(ctx context.Context, path string) (*SeedReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return s.ImportSeedFrom(ctx, f)
}

// ImportSeedFrom registers every student in the YAML document read from r.
// Entries are registered in order through Register, so each one passes the
// same checks as an interactive registration. A rejected entry does not
// stop the import; an infrastructure failure does.
func (s *Service) ImportSeedFrom(ctx context.Context, r io.Reader) (*SeedReport, error) {
	start := time.Now()

	var seed SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.NewFieldInvalid("seed", fmt.Sprintf("invalid seed file: %v", err))
	}

	report := &SeedReport{Results: make([]SeedResult, 0, len(seed.Students))}
	for i, req := range seed.Students {
		result := SeedResult{Index: i, Email: req.Email}

		student, err := s.Register(ctx, req)
		if err != nil {
			appErr, ok := errors.From(err)
			if !ok || appErr.Code == errors.CodeInternal {
				s.recordResult(ctx, observability.ActionSeed, "", start, err)
				return report, fmt.Errorf("seed entry %d: %w", i, err)
			}
			result.Message = appErr.Message
			var fieldErr *errors.ErrFieldInvalid
			if stderrors.As(err, &fieldErr) {
				result.Field = fieldErr.Field
			}
			report.Rejected++
		} else {
			result.Accepted = true
			result.Email = student.Email
			result.StudentID = student.ID
			report.Accepted++
		}
		report.Results = append(report.Results, result)
	}

	s.recordResult(ctx, observability.ActionSeed, "", start, nil)
	s.log.Info("seed imported",
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
	)
	return report, nil
}
