// Package response содержит вспомогательные типы и функции для формирования
// JSON-ответов HTTP-обработчиков. Каждый ответ несет statusCode, совпадающий
// с HTTP-статусом, и человекочитаемое сообщение в body.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

// Response описывает стандартную структуру JSON-ответа сервера.
type Response struct {
	StatusCode int    `json:"statusCode" example:"200"`
	Body       string `json:"body" example:"File successfully processed. Download link: https://..."`
}

// ErrorResponse структура ошибки для Swagger-документации.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode" example:"401"`
	Body       string `json:"body" example:"Invalid token."`
}

// New возвращает Response с переданным статусом и сообщением.
func New(status int, msg string) Response {
	return Response{StatusCode: status, Body: msg}
}

// Write выставляет HTTP-статус и пишет ответ с тем же statusCode.
func Write(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, New(status, msg))
}

// ValidationError собирает сообщение из ошибок валидации.
// Каждое нарушение формируется в человекочитаемый текст, объединенный через запятую.
func ValidationError(errs validator.ValidationErrors) string {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "datetime":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only date in format YYYY-MM-DD", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return strings.Join(errsMsgs, ", ")
}
