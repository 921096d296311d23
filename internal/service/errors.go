package service

import (
	"context"
	"errors"

	"github.com/annel0/fractal-terrain/internal/field"
	"github.com/annel0/fractal-terrain/internal/storage"
)

// Классы ошибок, используемые в событиях, метриках и HTTP ответах
const (
	KindInvalidSize       = "invalid_size"
	KindInvalidSettings   = "invalid_settings"
	KindNumericDegenerate = "numeric_degenerate"
	KindTimeout           = "timeout"
	KindCanceled          = "canceled"
	KindNotFound          = "not_found"
	KindInternal          = "internal"
)

// Classify сводит ошибку к одному из классов Kind*
func Classify(err error) string {
	switch {
	case errors.Is(err, field.ErrInvalidSize):
		return KindInvalidSize
	case errors.Is(err, field.ErrInvalidSettings):
		return KindInvalidSettings
	case errors.Is(err, field.ErrNumericDegenerate):
		return KindNumericDegenerate
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, storage.ErrPresetNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
