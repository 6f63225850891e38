package protocol

import (
	"strings"

	"github.com/labwise-dev/labwise-go/internal/domain"
)

// ValidationError aggregates protocol validation issues.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return domain.ErrInvalidProtocol.Error()
	}
	return domain.ErrInvalidProtocol.Error() + ": " + strings.Join(e.Issues, "; ")
}

// Is lets callers match the whole class with errors.Is(err, domain.ErrInvalidProtocol).
func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrInvalidProtocol
}

func (e *ValidationError) Add(issue string) {
	if strings.TrimSpace(issue) == "" {
		return
	}
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}
