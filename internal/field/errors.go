package field

import (
	"errors"
	"fmt"
)

// Классы ошибок валидации. Все они возникают до начала вычислений.
var (
	ErrInvalidSize       = errors.New("invalid size")
	ErrInvalidSettings   = errors.New("invalid settings")
	ErrNumericDegenerate = errors.New("numeric degenerate")
)

// ValidationError описывает отклонённый параметр генерации
type ValidationError struct {
	Kind   error  // один из ErrInvalidSize, ErrInvalidSettings, ErrNumericDegenerate
	Param  string // имя параметра
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Param, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// InvalidSize создаёт ошибку недопустимого размера поля
func InvalidSize(size int, reason string) error {
	return &ValidationError{Kind: ErrInvalidSize, Param: fmt.Sprintf("size=%d", size), Reason: reason}
}

// InvalidSettings создаёт ошибку недопустимого параметра
func InvalidSettings(param string, reason string) error {
	return &ValidationError{Kind: ErrInvalidSettings, Param: param, Reason: reason}
}

// NumericDegenerate создаёт ошибку вырожденной арифметики
func NumericDegenerate(param string, reason string) error {
	return &ValidationError{Kind: ErrNumericDegenerate, Param: param, Reason: reason}
}

// MaxCells ограничивает размер аллокации одного поля.
const MaxCells = 1 << 26

// CheckCells отклоняет размеры, при которых size*size переполняется или
// превышает MaxCells.
func CheckCells(size int) error {
	if size <= 0 {
		return InvalidSize(size, "size must be positive")
	}
	if size > MaxCells/size {
		return NumericDegenerate(fmt.Sprintf("size=%d", size), "size*size exceeds cell limit")
	}
	return nil
}
