package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned when a pipeline entry point receives blank
// text. No completion call is made.
var ErrEmptyInput = errors.New("input text is empty")

// TraceabilityError reports generated test cases whose requirement id is
// not in the requirement list supplied to generation.
type TraceabilityError struct {
	// Orphans maps test case id to the unknown requirement id it named.
	Orphans map[string]string
	// OrphanIDs lists the orphaned test case ids in response order.
	OrphanIDs []string
}

func (e *TraceabilityError) Error() string {
	const maxShown = 5
	shown := e.OrphanIDs
	suffix := ""
	if len(shown) > maxShown {
		suffix = fmt.Sprintf(" and %d more", len(shown)-maxShown)
		shown = shown[:maxShown]
	}
	parts := make([]string, len(shown))
	for i, id := range shown {
		parts[i] = fmt.Sprintf("%s -> %s", id, e.Orphans[id])
	}
	return fmt.Sprintf("%d generated test case(s) reference unknown requirements: %s%s",
		len(e.OrphanIDs), strings.Join(parts, ", "), suffix)
}

// IsTraceabilityError reports whether err is a *TraceabilityError.
func IsTraceabilityError(err error) bool {
	var target *TraceabilityError
	return errors.As(err, &target)
}
