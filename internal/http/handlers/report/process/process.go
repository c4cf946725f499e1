// Package process содержит обработчик POST /process_expense_report.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/expense-report/internal/http/middlewarectx"
	"github.com/magabrotheeeer/expense-report/internal/http/response"
	"github.com/magabrotheeeer/expense-report/internal/lib/sl"
	"github.com/magabrotheeeer/expense-report/internal/lib/validate"
	"github.com/magabrotheeeer/expense-report/internal/models"
	"github.com/magabrotheeeer/expense-report/internal/observability"
	reportservice "github.com/magabrotheeeer/expense-report/internal/services/report"
)

// Сообщения ответов.
const (
	MsgNotFound       = "No files found for the user in the specified date range."
	MsgSuccessPrefix  = "File successfully processed. Download link: "
	MsgInternalPrefix = "Internal server error: "
)

// Service описывает формирование отчета.
type Service interface {
	Generate(ctx context.Context, subject string, req models.ReportRequest) (reportservice.Result, error)
}

// Metrics учитывает результаты формирования отчетов.
type Metrics interface {
	ReportResult(result string)
}

// Handler обработчик формирования отчета.
type Handler struct {
	log      *slog.Logger
	service  Service
	metrics  Metrics
	validate *validator.Validate
}

// New создает Handler. metrics может быть nil.
func New(log *slog.Logger, service Service, metrics Metrics) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		metrics:  metrics,
		validate: validate.New(),
	}
}

// ServeHTTP формирует отчет о расходах за неделю и возвращает ссылку на скачивание.
// @Summary Сформировать отчет о расходах
// @Description Заполняет шаблон отчета расходами пользователя за семь дней, заканчивающихся periodEnding, и возвращает временную ссылку на файл
// @Tags report
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ReportRequest true "Параметры отчета"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /process_expense_report [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.report.process"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subject, ok := middlewarectx.SubjectFrom(r.Context())
	if !ok {
		log.Error("subject missing in context")
		h.result(observability.ResultUnauthorized)
		response.Write(w, r, http.StatusUnauthorized, middlewarectx.MsgInvalidToken)
		return
	}

	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		h.internalError(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	req.ApplyDefaults()
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			err = errors.New(response.ValidationError(verrs))
		}
		h.internalError(w, r, err)
		return
	}

	res, err := h.service.Generate(r.Context(), subject, req)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		log.Info("no files found for the user", sl.Err(err))
		h.result(observability.ResultNotFound)
		response.Write(w, r, http.StatusNotFound, MsgNotFound)
		return
	case errors.Is(err, models.ErrUnauthorized):
		log.Warn("unauthorized", sl.Err(err))
		h.result(observability.ResultUnauthorized)
		response.Write(w, r, http.StatusUnauthorized, middlewarectx.MsgInvalidToken)
		return
	default:
		log.Error("failed to process expense report", sl.Err(err))
		h.internalError(w, r, err)
		return
	}

	if res.Cached {
		h.result(observability.ResultCached)
	} else {
		h.result(observability.ResultOK)
	}
	log.Info("report processed", sl.Key(res.Key), slog.Bool("cached", res.Cached))
	response.Write(w, r, http.StatusOK, MsgSuccessPrefix+res.URL)
}

// internalError отвечает 500; сюда же попадают ошибки разбора и валидации тела.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.result(observability.ResultError)
	response.Write(w, r, http.StatusInternalServerError, fmt.Sprintf("%s%v", MsgInternalPrefix, err))
}

func (h *Handler) result(result string) {
	if h.metrics != nil {
		h.metrics.ReportResult(result)
	}
}
