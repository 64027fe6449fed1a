// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// Clock returns the current time.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// maxCommitAttempts bounds how often a registration commit is retried after
// the store reports a conflicting concurrent writer.
const maxCommitAttempts = 3

// notFound turns a repository miss into a descriptive error, wrapping
// anything else.
func notFound(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("%s %s not found", what, id)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func requireID(what, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("%s id is required", what)
	}
	return nil
}
