package impl

import (
	"PinguinTube/apperrors"
	"errors"

	"gorm.io/gorm"
)

// translate превращает gorm.ErrRecordNotFound в NotFound, остальное оборачивает как есть
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("%s not found", what)
	}
	return err
}
