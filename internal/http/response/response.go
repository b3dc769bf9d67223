// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков, включая перевод доменных
// ошибок движка в HTTP-статусы.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/groupbuy-aggregator/internal/domerr"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// DomainStatusCode переводит класс доменной ошибки в HTTP-статус.
// Не доменные ошибки считаются внутренними.
func DomainStatusCode(err error) int {
	kind, ok := domerr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case domerr.KindValidation:
		return http.StatusUnprocessableEntity
	case domerr.KindEligibility:
		return http.StatusForbidden
	case domerr.KindConflict:
		return http.StatusConflict
	case domerr.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// DomainError возвращает ErrorResponse по доменной ошибке. Текст доменной
// ошибки безопасен для выдачи наружу, внутренние ошибки скрываются.
func DomainError(err error, fallback string) ErrorResponse {
	if _, ok := domerr.KindOf(err); ok {
		return Error(err.Error())
	}
	return Error(fallback)
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of the allowed values", err.Field()))
		case "gte", "lte", "gt", "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is out of the allowed range", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
