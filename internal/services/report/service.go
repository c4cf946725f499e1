// Package report содержит бизнес-логику формирования отчета о расходах:
// отбор записей пользователя из хранилища, заполнение шаблона, загрузку
// готового файла и выдачу временной ссылки на скачивание.
package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/expense-report/internal/lib/sl"
	"github.com/magabrotheeeer/expense-report/internal/models"
	"github.com/magabrotheeeer/expense-report/internal/report/xlsx"
)

// ReportStore хранилище объектов пользователя и готовых отчетов.
type ReportStore interface {
	ObjectLister
	// Upload загружает локальный файл под ключом.
	Upload(ctx context.Context, localPath, key string) error
	// Presign выдает ссылку на скачивание, действительную ttl.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Populator заполняет шаблон и освобождает временный файл.
type Populator interface {
	Populate(fields xlsx.Fields, records []models.ExpenseRecord) (string, error)
	Release(path string) error
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение по ключу.
	Invalidate(ctx context.Context, key string) error
}

// Result итог формирования отчета.
type Result struct {
	Key    string // Ключ отчета в хранилище
	URL    string // Presigned-ссылка на скачивание
	Cached bool   // Отчет не пересобирался, ссылка выдана на уже загруженный файл
}

// Options параметры сервиса.
type Options struct {
	PresignTTL     time.Duration
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// Service формирует отчеты. cache может быть nil.
type Service struct {
	store     ReportStore
	selector  *Selector
	populator Populator
	cache     Cache
	opts      Options
	log       *slog.Logger
}

// NewService создает Service.
func NewService(store ReportStore, selector *Selector, populator Populator, cache Cache, opts Options, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		selector:  selector,
		populator: populator,
		cache:     cache,
		opts:      opts,
		log:       log,
	}
}

// cachedReport запись кеша о последнем загруженном отчете за период.
type cachedReport struct {
	Fingerprint string `json:"fingerprint"`
	Key         string `json:"key"`
}

// Generate выполняет конвейер: отбор записей, заполнение шаблона, загрузка,
// выдача ссылки. subject берется только из проверенного токена.
func (s *Service) Generate(ctx context.Context, subject string, req models.ReportRequest) (Result, error) {
	const op = "services.report.Generate"
	log := s.log.With(slog.String("op", op), slog.String("period_ending", req.PeriodEnding))

	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	req.ApplyDefaults()
	fields, err := toFields(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	records, err := s.selector.Select(ctx, subject, fields.PeriodEnding)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	key := models.ReportKey(subject, req.PeriodEnding)
	fingerprint, err := fingerprintOf(req, records)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.uploadedBefore(ctx, log, subject, req.PeriodEnding, fingerprint) {
		url, err := s.store.Presign(ctx, key, s.opts.PresignTTL)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("report unchanged, link reissued", sl.Key(key))
		return Result{Key: key, URL: url, Cached: true}, nil
	}

	path, err := s.populator.Populate(fields, records)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := s.populator.Release(path); err != nil {
			log.Error("failed to remove temporary report", sl.Err(err))
		}
	}()

	if err := s.store.Upload(ctx, path, key); err != nil {
		s.forget(ctx, log, subject, req.PeriodEnding)
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	s.remember(ctx, log, subject, req.PeriodEnding, cachedReport{Fingerprint: fingerprint, Key: key})

	url, err := s.store.Presign(ctx, key, s.opts.PresignTTL)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("report uploaded", sl.Key(key), slog.Int("records", len(records)))
	return Result{Key: key, URL: url}, nil
}

func (s *Service) uploadedBefore(ctx context.Context, log *slog.Logger, subject, period, fingerprint string) bool {
	if s.cache == nil {
		return false
	}
	var entry cachedReport
	found, err := s.cache.Get(ctx, cacheKey(subject, period), &entry)
	if err != nil {
		log.Warn("report cache lookup failed", sl.Err(err))
		return false
	}
	return found && entry.Fingerprint == fingerprint
}

func (s *Service) remember(ctx context.Context, log *slog.Logger, subject, period string, entry cachedReport) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(subject, period), entry, s.opts.CacheTTL); err != nil {
		log.Warn("report cache update failed", sl.Err(err))
	}
}

// forget сбрасывает запись после неудачной загрузки: объект под ключом
// мог быть перезаписан частично, ссылку на него выдавать нельзя.
func (s *Service) forget(ctx context.Context, log *slog.Logger, subject, period string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cacheKey(subject, period)); err != nil {
		log.Warn("report cache invalidation failed", sl.Err(err))
	}
}

func cacheKey(subject, period string) string {
	return "expense_report:" + subject + ":" + period
}

// fingerprintOf хеш полей запроса и отобранных записей в порядке листинга.
func fingerprintOf(req models.ReportRequest, records []models.ExpenseRecord) (string, error) {
	type rec struct {
		Key      string `json:"k"`
		Date     string `json:"d"`
		Amount   string `json:"a"`
		Category string `json:"c"`
	}
	payload := struct {
		Request models.ReportRequest `json:"r"`
		Records []rec                `json:"e"`
	}{Request: req, Records: make([]rec, 0, len(records))}
	for _, r := range records {
		payload.Records = append(payload.Records, rec{
			Key:      r.Key,
			Date:     r.Date.Format(models.DateLayout),
			Amount:   r.Amount.String(),
			Category: r.RawName,
		})
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func toFields(req models.ReportRequest) (xlsx.Fields, error) {
	periodEnding, err := models.ParseDate(req.PeriodEnding)
	if err != nil {
		return xlsx.Fields{}, fmt.Errorf("%w: periodEnding: %w", models.ErrInvalidRequest, err)
	}
	fields := xlsx.Fields{
		PeriodEnding: periodEnding,
		Department:   req.EmployeeDepartment,
		School:       req.School,
		TripPurpose:  req.TripPurpose,
		Travel:       req.IsTravel(),
	}
	if req.TravelStartDate != "" {
		d, err := models.ParseDate(req.TravelStartDate)
		if err != nil {
			return xlsx.Fields{}, fmt.Errorf("%w: travelStartDate: %w", models.ErrInvalidRequest, err)
		}
		fields.TravelStart = &d
	}
	if req.TravelEndDate != "" {
		d, err := models.ParseDate(req.TravelEndDate)
		if err != nil {
			return xlsx.Fields{}, fmt.Errorf("%w: travelEndDate: %w", models.ErrInvalidRequest, err)
		}
		fields.TravelEnd = &d
	}
	return fields, nil
}
