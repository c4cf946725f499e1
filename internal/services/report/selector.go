package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/expense-report/internal/lib/sl"
	"github.com/magabrotheeeer/expense-report/internal/models"
	"github.com/magabrotheeeer/expense-report/internal/storage/s3store"
)

// Ключи пользовательских метаданных объекта с чеком.
const (
	metaDate     = "date"
	metaPrice    = "price"
	metaCategory = "category"

	unknownCategory = "Unknown"

	defaultHeadConcurrency = 8
)

// ObjectLister описывает чтение объектов пользователя из хранилища.
type ObjectLister interface {
	// List возвращает все объекты с префиксом.
	List(ctx context.Context, prefix string) ([]s3store.Object, error)
	// Head возвращает метаданные объекта с ключами в нижнем регистре.
	Head(ctx context.Context, key string) (map[string]string, error)
}

// SelectorMetrics учитывает пропущенные объекты и размер выборки.
type SelectorMetrics interface {
	SkippedObject()
	SelectedRecords(n int)
}

// Selector отбирает записи о расходах пользователя за отчетный период.
type Selector struct {
	store           ObjectLister
	metrics         SelectorMetrics
	log             *slog.Logger
	headConcurrency int
}

// SelectorOption настраивает Selector.
type SelectorOption func(*Selector)

// WithHeadConcurrency ограничивает число одновременных запросов метаданных.
func WithHeadConcurrency(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.headConcurrency = n
		}
	}
}

// NewSelector создает Selector. metrics может быть nil.
func NewSelector(store ObjectLister, metrics SelectorMetrics, log *slog.Logger, opts ...SelectorOption) *Selector {
	s := &Selector{store: store, metrics: metrics, log: log, headConcurrency: defaultHeadConcurrency}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Select возвращает записи, дата которых попадает в семидневный период,
// заканчивающийся periodEnding. Порядок совпадает с порядком листинга.
// Если у пользователя нет ни одного объекта, возвращается models.ErrNotFound.
func (s *Selector) Select(ctx context.Context, subject string, periodEnding time.Time) ([]models.ExpenseRecord, error) {
	const op = "services.report.Select"
	log := s.log.With(slog.String("op", op))

	objects, err := s.store.List(ctx, models.SubjectPrefix(subject))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(objects) == 0 {
		log.Info("no contents found in the specified prefix")
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	metas, err := s.headAll(ctx, objects)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	window := models.NewWindow(periodEnding)
	records := make([]models.ExpenseRecord, 0, len(objects))
	for i, obj := range objects {
		meta := metas[i]
		log.Debug("object metadata", sl.Key(obj.Key), slog.Any("metadata", meta))

		rawDate, ok := meta[metaDate]
		if !ok {
			log.Warn("missing date metadata", sl.Key(obj.Key))
			s.skipped()
			continue
		}
		date, err := models.ParseDate(rawDate)
		if err != nil {
			log.Error("error parsing date", sl.Key(obj.Key), sl.Err(err))
			s.skipped()
			continue
		}
		if !window.Contains(date) {
			log.Debug("file date is outside the reporting period", sl.Key(obj.Key), slog.String("date", rawDate))
			continue
		}

		rec, err := newRecord(obj.Key, date, meta)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, rec)
		log.Debug("added file data", sl.Key(obj.Key), slog.String("category", rec.RawName), slog.String("price", rec.Amount.String()))
	}

	if s.metrics != nil {
		s.metrics.SelectedRecords(len(records))
	}
	log.Info("files data collected", slog.Int("objects", len(objects)), slog.Int("records", len(records)))
	return records, nil
}

// headAll читает метаданные всех объектов; результат по индексу совпадает с objects.
func (s *Selector) headAll(ctx context.Context, objects []s3store.Object) ([]map[string]string, error) {
	metas := make([]map[string]string, len(objects))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.headConcurrency)
	for i, obj := range objects {
		g.Go(func() error {
			meta, err := s.store.Head(ctx, obj.Key)
			if err != nil {
				return err
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return metas, nil
}

func (s *Selector) skipped() {
	if s.metrics != nil {
		s.metrics.SkippedObject()
	}
}

func newRecord(key string, date time.Time, meta map[string]string) (models.ExpenseRecord, error) {
	amount := decimal.Zero
	if raw, ok := meta[metaPrice]; ok {
		var err error
		amount, err = decimal.NewFromString(raw)
		if err != nil {
			return models.ExpenseRecord{}, fmt.Errorf("invalid price %q for %s: %w", raw, key, err)
		}
	}

	category, ok := meta[metaCategory]
	if !ok {
		category = unknownCategory
	}

	return models.ExpenseRecord{
		Key:      key,
		Date:     date,
		Amount:   amount,
		Category: models.ParseCategory(category),
		RawName:  category,
	}, nil
}
