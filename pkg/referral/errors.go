package referral

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/models"
)

// ErrNotFound marks a missing patient, facility, or referral. Wrap it with
// the entity name and id; callers match with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrInvalidDestination is returned when a referral targets anything other
// than a specialized hospital.
var ErrInvalidDestination = errors.New("destination facility must be a specialized hospital")

// ErrInvalidOrigin is returned when origin and destination are the same
// facility.
var ErrInvalidOrigin = errors.New("origin and destination facilities must differ")

func notFoundErr(entity string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// InvalidTransitionError reports an operation invoked against a referral
// whose current status does not permit it. The referral is left unmodified.
type InvalidTransitionError struct {
	Op         string
	ReferralID uuid.UUID
	Status     models.ReferralStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s referral %s with status %s", e.Op, e.ReferralID, e.Status)
}
