package service

import (
	"errors"
	"fmt"

	"github.com/riturajsingh8919/anti-romantic/internal/domain"
	apperrors "github.com/riturajsingh8919/anti-romantic/pkg/errors"
)

// User-facing messages of the media console.
const (
	msgProductNotFound   = "Product not found"
	msgRecordNotFound    = "Product image manager not found"
	msgRecordExists      = "Product image manager already exists. Use PUT to update."
	msgDeleteMediaFailed = "Failed to delete media"
)

var validationMessages = map[error]string{
	domain.ErrDefaultMediaRequired: "Either normal video or normal image is required",
	domain.ErrDefaultMediaConflict: "Cannot have both video and normal image",
	domain.ErrHoverImageRequired:   "Hover image is required",
}

// invalidMedia turns a domain validation error into a 400.
func invalidMedia(err error) error {
	for target, msg := range validationMessages {
		if errors.Is(err, target) {
			return apperrors.InvalidInput(msg)
		}
	}
	return apperrors.InvalidInput(err.Error())
}

func videoSlotConflict(holderName string) *apperrors.AppError {
	return apperrors.Conflict(fmt.Sprintf("Only one product can have video. Currently %q has video.", holderName))
}
