package service

import (
	"github.com/noah-isme/noticeboard-api/pkg/database"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

// storeError classifies a repository failure. An unreachable database is a
// dependency failure; anything else is internal. Driver detail stays in Err.
func storeError(err error, message string) *appErrors.Error {
	if database.IsUnavailable(err) {
		return appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
