package groupsservice

import (
	"errors"

	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/generators"
	"github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/domain/groupconfig"
)

var (
	ErrInvalidCompetition  = errors.New("invalid competition document")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrInvalidRoundCode    = errors.New("invalid round code")
	ErrRoundNotFound       = errors.New("round not found")
	ErrNoRoundActivities   = errors.New("round is not scheduled in any room")
	ErrGroupsAlreadyExist  = errors.New("round already has groups")
	ErrVersionConflict     = errors.New("competition was modified concurrently")
	ErrCannotGenerate      = errors.New("round cannot be generated")
	ErrNothingToExport     = errors.New("round has nothing to export")
)

var domainErrors = []error{
	ErrInvalidCompetition,
	ErrCompetitionNotFound,
	ErrInvalidRoundCode,
	ErrRoundNotFound,
	ErrNoRoundActivities,
	ErrGroupsAlreadyExist,
	ErrVersionConflict,
	ErrCannotGenerate,
	ErrNothingToExport,
	generators.ErrRoundNotFound,
	generators.ErrEventNotFound,
	generators.ErrNoGroups,
	groupconfig.ErrInvalidConfig,
	groupconfig.ErrUnknownExtension,
	groupconfig.ErrNotARoundActivity,
}

// IsFailure reports whether err is a domain failure the caller caused, as
// opposed to an infrastructure error worth retrying.
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
