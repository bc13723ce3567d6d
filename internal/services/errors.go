package services

import (
	"errors"

	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
)

// translatePlatformError maps a platform client failure onto the domain error
// taxonomy so callers never see collaborator-specific error types.
func translatePlatformError(err error) error {
	pe, ok := platform.AsError(err)
	if !ok {
		return domain.NewTransientError("platform call failed", err)
	}
	switch pe.Kind {
	case platform.KindNotFound:
		return domain.NewNotFoundError(domain.CodeNotFound, "content not found")
	case platform.KindPrivate:
		return &domain.Error{
			Type:    domain.NotFoundError,
			Code:    domain.CodePrivateContent,
			Message: "content belongs to a private account",
		}
	case platform.KindRateLimited:
		return domain.NewRateLimitedError("platform asked to slow down")
	case platform.KindAuthInvalid, platform.KindAuthChallenge:
		return domain.NewAuthenticationError(domain.CodeAuthInvalid, "platform session is no longer authenticated")
	default:
		return domain.NewTransientError("platform call failed", err)
	}
}

func isNotFound(err error) bool {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Type == domain.NotFoundError
	}
	return false
}
