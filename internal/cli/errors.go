package cli

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/scanflow/internal/access"
	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

// FriendlyError rewrites errors a user can act on into plain messages.
// Other errors are returned unchanged.
func FriendlyError(err error) error {
	if err == nil {
		return nil
	}

	var denied *access.DeniedError
	switch {
	case errors.As(err, &denied):
		who := denied.Actor
		if who == "" {
			who = "anonymous"
		}
		if denied.Need == domain.RoleCoordinator {
			return fmt.Errorf("%s is not a coordinator; only coordinators may do this", who)
		}
		return fmt.Errorf("%s does not hold the %q role", who, denied.Need)
	case errors.Is(err, app.ErrInvalidEntryStage):
		return fmt.Errorf("%w: use one of the stages listed by 'scanflow stages'", err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("not found: %w", err)
	}
	return err
}
