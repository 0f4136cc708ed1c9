package service

import (
	"errors"

	"github.com/noah-isme/daksh-api/internal/repository"
	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
)

// storeError maps document store failures onto the API error taxonomy.
func storeError(err error, notFound, failed string) error {
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, failed)
}
