// Package health содержит обработчик проверки живости сервиса.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// Message текст ответа на GET /.
const Message = "<h1>Hello, this server is serving</h1>"

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{
		log: log,
	}
}

// ServeHTTP отвечает, что сервис запущен.
// @Summary Проверка живости
// @Tags health
// @Produce html
// @Success 200 {string} string
// @Router / [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.HTML(w, r, Message)
}
