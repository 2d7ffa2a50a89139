// Package apperr описывает таксономию ошибок движка бронирований.
//
// Каждая ошибка бизнес-правила оборачивает один из sentinel-значений пакета,
// поэтому вызывающий код проверяет вид ошибки через errors.Is, а HTTP-слой
// получает код ответа через HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation: некорректный ввод или запрос вне окна доступности.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: слот уже занят, в том числе проигранная гонка.
	ErrConflict = errors.New("conflict")
	// ErrEntitlementExhausted: в подписке не осталось сессий.
	ErrEntitlementExhausted = errors.New("entitlement exhausted")
	// ErrNotFound: сессия, ментор, подписка или пакет не найдены.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: у вызывающего нет прав на сущность.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidStateTransition: недопустимый переход жизненного цикла.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrDuplicateFeedback: обратная связь уже оставлена.
	ErrDuplicateFeedback = errors.New("feedback already submitted")
	// ErrUpgradeIneligible: неверный порядок уровней или несовпадение сегмента.
	ErrUpgradeIneligible = errors.New("upgrade ineligible")
	// ErrServiceUnavailable: исчерпаны повторы при временной ошибке хранилища.
	ErrServiceUnavailable = errors.New("service unavailable")
)

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func Validation(format string, args ...any) error { return wrap(ErrValidation, format, args...) }

func Conflict(format string, args ...any) error { return wrap(ErrConflict, format, args...) }

func NotFound(format string, args ...any) error { return wrap(ErrNotFound, format, args...) }

func Forbidden(format string, args ...any) error { return wrap(ErrForbidden, format, args...) }

func InvalidTransition(format string, args ...any) error {
	return wrap(ErrInvalidStateTransition, format, args...)
}

func UpgradeIneligible(format string, args ...any) error {
	return wrap(ErrUpgradeIneligible, format, args...)
}

var kinds = []error{
	ErrValidation,
	ErrConflict,
	ErrEntitlementExhausted,
	ErrNotFound,
	ErrForbidden,
	ErrInvalidStateTransition,
	ErrDuplicateFeedback,
	ErrUpgradeIneligible,
	ErrServiceUnavailable,
}

// Message возвращает текст ошибки без префиксов операций: звено цепочки,
// которое непосредственно оборачивает ошибку таксономии.
func Message(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		inner := errors.Unwrap(e)
		for _, k := range kinds {
			if e == k || inner == k {
				return e.Error()
			}
		}
	}
	return err.Error()
}

var statuses = []struct {
	kind   error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrConflict, http.StatusConflict},
	{ErrEntitlementExhausted, http.StatusPaymentRequired},
	{ErrNotFound, http.StatusNotFound},
	{ErrForbidden, http.StatusForbidden},
	{ErrInvalidStateTransition, http.StatusConflict},
	{ErrDuplicateFeedback, http.StatusConflict},
	{ErrUpgradeIneligible, http.StatusUnprocessableEntity},
	{ErrServiceUnavailable, http.StatusServiceUnavailable},
}

// HTTPStatus возвращает HTTP-код для ошибки. Ошибки вне таксономии дают 500.
func HTTPStatus(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Public сообщает, можно ли показать текст ошибки клиенту.
func Public(err error) bool {
	return HTTPStatus(err) != http.StatusInternalServerError
}
