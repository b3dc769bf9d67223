// Package domerr определяет классы доменных ошибок движка закупок.
// Каждая отклонённая операция возвращает ошибку одного из четырёх классов,
// чтобы вызывающий слой мог выбрать ответ без повторения бизнес-правил.
package domerr

import (
	"errors"
	"fmt"
)

// Kind — класс доменной ошибки.
type Kind int

const (
	// KindValidation — некорректный или выходящий за допустимые границы ввод.
	KindValidation Kind = iota + 1
	// KindEligibility — нарушение правил роли, статуса, окна времени или штрафа.
	KindEligibility
	// KindConflict — конкурентная коллизия, не разрешившаяся повтором транзакции.
	KindConflict
	// KindNotFound — отсутствующий агрегат.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEligibility:
		return "eligibility"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error — доменная ошибка с классом и причиной для вызывающего слоя.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Validation возвращает ошибку класса KindValidation.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// Eligibility возвращает ошибку класса KindEligibility.
func Eligibility(format string, args ...any) error {
	return &Error{Kind: KindEligibility, Reason: fmt.Sprintf(format, args...)}
}

// Conflict возвращает ошибку класса KindConflict.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Reason: fmt.Sprintf(format, args...)}
}

// NotFound возвращает ошибку класса KindNotFound.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

// KindOf извлекает класс доменной ошибки из цепочки обёрток.
// Вторым значением возвращает false, если ошибка не доменная.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// Is сообщает, относится ли ошибка к заданному классу.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
