package schedule

import "errors"

// Validation errors are decided locally and never reach the event store.
var (
	ErrMissingIdentity     = errors.New("user identity is required")
	ErrIncompleteDraft     = errors.New("title, meeting link and user identity are required")
	ErrPastEvent           = errors.New("cannot schedule an event in the past")
	ErrInvalidDateForMonth = errors.New("selected date does not exist in the selected month")
	ErrMalformedEventTime  = errors.New("event date and time cannot be combined")
	ErrStaleIndex          = errors.New("event index is not in the last loaded list")
)

// Transport errors wrap the store's failure; the local list is unchanged.
var (
	ErrLoadFailed   = errors.New("failed to load events")
	ErrCreateFailed = errors.New("failed to create event")
	ErrUpdateFailed = errors.New("failed to update event")
	ErrDeleteFailed = errors.New("failed to delete event")
)

func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingIdentity,
		ErrIncompleteDraft,
		ErrPastEvent,
		ErrInvalidDateForMonth,
		ErrMalformedEventTime,
		ErrStaleIndex,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsTransport(err error) bool {
	return errors.Is(err, ErrLoadFailed) ||
		errors.Is(err, ErrCreateFailed) ||
		errors.Is(err, ErrUpdateFailed) ||
		errors.Is(err, ErrDeleteFailed)
}
