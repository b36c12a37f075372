package validation

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/student-auth/studentauth/internal/errors"
)

// recorder collects notifications in order.
type recorder struct {
	messages []string
}

func (r *recorder) notify(msg string) {
	r.messages = append(r.messages, msg)
}

func TestValidateForm_AcceptsValidInput(t *testing.T) {
	rec := &recorder{}
	if !ValidateForm("9876543210", "2024", rec.notify) {
		t.Fatal("expected valid mobile and year to be accepted")
	}
	if len(rec.messages) != 0 {
		t.Errorf("expected no notification, got %v", rec.messages)
	}
}

func TestValidateForm_MobileLength(t *testing.T) {
	for _, mobile := range []string{"", "1", "987654321", "98765432101", "123456789012345"} {
		rec := &recorder{}
		if ValidateForm(mobile, "2024", rec.notify) {
			t.Errorf("mobile %q: expected rejection", mobile)
		}
		if len(rec.messages) != 1 || rec.messages[0] != MsgInvalidMobile {
			t.Errorf("mobile %q: expected single mobile message, got %v", mobile, rec.messages)
		}
	}
}

func TestValidateForm_MobileNonDigit(t *testing.T) {
	for _, mobile := range []string{
		"98765a3210",
		"98765.3210",
		"+987654321",
		"-987654321",
		" 987654321",
		"987654321 ",
		"1e10000000",
		"98765 3210",
	} {
		if ValidateForm(mobile, "2024", nil) {
			t.Errorf("mobile %q: expected rejection", mobile)
		}
	}
}

func TestValidateForm_PassoutYearBounds(t *testing.T) {
	tests := []struct {
		year string
		want bool
	}{
		{"1999", false},
		{"2000", true},
		{"2024", true},
		{"2028", true},
		{"2029", false},
		{" 2010 ", true},
		{"", false},
		{"abc", false},
		{"20x4", false},
		{"2024.5", false},
		{"2024.0", true},
		{" 2028.00 ", true},
		{"2.024e3", true},
		{"2029.0", false},
		{"NaN", false},
		{"Inf", false},
		{"1e400", false},
		{"0", false},
		{"-2024", false},
	}

	for _, tt := range tests {
		t.Run(tt.year, func(t *testing.T) {
			rec := &recorder{}
			got := ValidateForm("9876543210", tt.year, rec.notify)
			if got != tt.want {
				t.Fatalf("ValidateForm(year=%q) = %v, want %v", tt.year, got, tt.want)
			}
			if !tt.want {
				if len(rec.messages) != 1 || rec.messages[0] != MsgInvalidPassoutYear {
					t.Errorf("expected single year message, got %v", rec.messages)
				}
			}
		})
	}
}

func TestValidateForm_ShortCircuitsOnMobile(t *testing.T) {
	rec := &recorder{}
	if ValidateForm("123", "1999", rec.notify) {
		t.Fatal("expected rejection")
	}
	if len(rec.messages) != 1 {
		t.Fatalf("expected exactly one message, got %d: %v", len(rec.messages), rec.messages)
	}
	if rec.messages[0] != MsgInvalidMobile {
		t.Errorf("expected mobile message first, got %q", rec.messages[0])
	}
}

func TestValidateForm_NilNotifier(t *testing.T) {
	if ValidateForm("bad", "bad", nil) {
		t.Error("expected rejection with nil notifier")
	}
}

func TestValidateYear(t *testing.T) {
	tests := []struct {
		mobile string
		year   int
		want   bool
	}{
		{"9876543210", 2024, true},
		{"9876543210", 2000, true},
		{"9876543210", 2028, true},
		{"9876543210", 1999, false},
		{"9876543210", 2029, false},
		{"98765", 2024, false},
	}
	for _, tt := range tests {
		if got := ValidateYear(tt.mobile, tt.year, nil); got != tt.want {
			t.Errorf("ValidateYear(%q, %d) = %v, want %v", tt.mobile, tt.year, got, tt.want)
		}
	}
}

func TestCheck_ReportsField(t *testing.T) {
	if r := Check("98765", "2024"); r.OK || r.Field != FieldMobile || r.Message != MsgInvalidMobile {
		t.Errorf("unexpected result for bad mobile: %+v", r)
	}
	if r := Check("9876543210", "2030"); r.OK || r.Field != FieldPassoutYear || r.Message != MsgInvalidPassoutYear {
		t.Errorf("unexpected result for bad year: %+v", r)
	}
	if r := Check("9876543210", "2024"); !r.OK || r.Field != "" || r.Message != "" {
		t.Errorf("unexpected result for valid input: %+v", r)
	}
}

func TestYearInput_Decoding(t *testing.T) {
	var payload struct {
		Year YearInput `json:"passout_year"`
	}

	for raw, want := range map[string]string{
		`{"passout_year": 2024}`:   "2024",
		`{"passout_year": "2024"}`: "2024",
		`{"passout_year": null}`:   "",
		`{"passout_year": 2024.5}`: "2024.5",
	} {
		payload.Year = "unset"
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if string(payload.Year) != want {
			t.Errorf("unmarshal %s: got %q, want %q", raw, payload.Year, want)
		}
	}

	if err := json.Unmarshal([]byte(`{"passout_year": 2024.0}`), &payload); err != nil {
		t.Fatalf("unmarshal integral float: %v", err)
	}
	if year, ok := payload.Year.Int(); !ok || year != 2024 {
		t.Errorf("integral float year = %d (ok=%v), want 2024", year, ok)
	}

	var doc struct {
		Year YearInput `yaml:"passout_year"`
	}
	if err := yaml.Unmarshal([]byte("passout_year: 2026\n"), &doc); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if year, ok := doc.Year.Int(); !ok || year != 2026 {
		t.Errorf("yaml year = %d (ok=%v), want 2026", year, ok)
	}
}

type registration struct {
	Name        string    `json:"name" validate:"required,max=100"`
	Email       string    `json:"email" validate:"required,email"`
	Mobile      string    `json:"mobile" validate:"mobile"`
	PassoutYear YearInput `json:"passout_year" validate:"passout_year"`
}

func TestFields(t *testing.T) {
	valid := registration{Name: "Asha", Email: "asha@example.com", Mobile: "9876543210", PassoutYear: "2025"}
	if err := Fields(valid); err != nil {
		t.Fatalf("expected valid registration, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(r *registration)
		field   string
		message string
	}{
		{"missing name", func(r *registration) { r.Name = "" }, "name", "name is required"},
		{"bad email", func(r *registration) { r.Email = "asha" }, "email", "Enter a valid email address!"},
		{"bad mobile", func(r *registration) { r.Mobile = "12" }, "mobile", MsgInvalidMobile},
		{"bad year", func(r *registration) { r.PassoutYear = "1990" }, "passout_year", MsgInvalidPassoutYear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := Fields(r)
			var fieldErr *errors.ErrFieldInvalid
			if !stderrors.As(err, &fieldErr) {
				t.Fatalf("expected ErrFieldInvalid, got %v", err)
			}
			if fieldErr.Field != tt.field {
				t.Errorf("field = %q, want %q", fieldErr.Field, tt.field)
			}
			if fieldErr.Message != tt.message {
				t.Errorf("message = %q, want %q", fieldErr.Message, tt.message)
			}
		})
	}
}
