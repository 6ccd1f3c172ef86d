package workflow

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// recordValidate validates stored records. Enum validators are registered
// in init so struct tags can name them.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()
	_ = recordValidate.RegisterValidation("source", func(fl validator.FieldLevel) bool {
		return Source(fl.Field().String()).IsValid()
	})
	_ = recordValidate.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		return Priority(fl.Field().String()).IsValid()
	})
	_ = recordValidate.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).IsValid()
	})
}

// Validate checks a requirement is complete enough to store.
func (r *Requirement) Validate() error {
	if err := recordValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid requirement %q: %w", r.ID, err)
	}
	return nil
}

// Validate checks a test case is complete enough to store.
func (tc *TestCase) Validate() error {
	if err := recordValidate.Struct(tc); err != nil {
		return fmt.Errorf("invalid test case %q: %w", tc.ID, err)
	}
	return nil
}

// stepKeywords are the behavior-driven step prefixes.
var stepKeywords = []string{"Given", "When", "Then", "And", "But"}

// StepKeywordsValid returns the zero-based indexes of steps that do not
// start with a Given/When/Then/And/But keyword. A nil result means every
// step is well-formed.
func StepKeywordsValid(steps []string) []int {
	var bad []int
	for i, step := range steps {
		if !hasStepKeyword(step) {
			bad = append(bad, i)
		}
	}
	return bad
}

func hasStepKeyword(step string) bool {
	trimmed := strings.TrimSpace(step)
	for _, kw := range stepKeywords {
		if len(trimmed) < len(kw) || !strings.EqualFold(trimmed[:len(kw)], kw) {
			continue
		}
		rest := trimmed[len(kw):]
		if rest == "" || rest[0] == ' ' || rest[0] == ':' || rest[0] == ',' {
			return true
		}
	}
	return false
}
