// Package xlsx заполняет шаблон отчета о расходах: заголовок, строку дат
// за семь дней, суммы по категориям и суточные на дни командировки.
package xlsx

import (
	"errors"
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/expense-report/internal/models"
)

// PerDiemPolicy определяет, что делать с реальными расходами на завтрак
// и ужин в дни командировки.
type PerDiemPolicy string

const (
	// PerDiemOverwrite суточные заменяют уже записанные суммы.
	PerDiemOverwrite PerDiemPolicy = "overwrite"
	// PerDiemKeepActual ячейка с реальным расходом не трогается.
	PerDiemKeepActual PerDiemPolicy = "keep_actual"
)

// ParsePerDiemPolicy разбирает значение из конфига.
func ParsePerDiemPolicy(s string) (PerDiemPolicy, error) {
	switch PerDiemPolicy(s) {
	case "", PerDiemOverwrite:
		return PerDiemOverwrite, nil
	case PerDiemKeepActual:
		return PerDiemKeepActual, nil
	}
	return "", fmt.Errorf("unknown per diem policy %q", s)
}

// Fields поля заголовка и командировки.
type Fields struct {
	PeriodEnding time.Time
	Department   string
	School       string
	TripPurpose  string
	Travel       bool
	TravelStart  *time.Time
	TravelEnd    *time.Time
}

// Populator заполняет копию шаблона. Исходный файл шаблона не изменяется.
type Populator struct {
	templatePath    string
	headerImagePath string
	policy          PerDiemPolicy
	tempDir         string
}

// Option настраивает Populator.
type Option func(*Populator)

// WithHeaderImage размещает картинку в A1.
func WithHeaderImage(path string) Option {
	return func(p *Populator) { p.headerImagePath = path }
}

// WithPerDiemPolicy задает политику суточных.
func WithPerDiemPolicy(policy PerDiemPolicy) Option {
	return func(p *Populator) { p.policy = policy }
}

// WithTempDir задает базовый каталог для временных файлов.
func WithTempDir(dir string) Option {
	return func(p *Populator) { p.tempDir = dir }
}

// New создает Populator для шаблона templatePath.
func New(templatePath string, opts ...Option) *Populator {
	p := &Populator{templatePath: templatePath, policy: PerDiemOverwrite}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Populate заполняет шаблон и сохраняет результат в новый файл в отдельном
// временном каталоге. Каталог удаляется вызовом Release.
func (p *Populator) Populate(fields Fields, records []models.ExpenseRecord) (string, error) {
	const op = "xlsx.Populate"

	f, err := excelize.OpenFile(p.templatePath)
	if err != nil {
		return "", fmt.Errorf("%s: open template: %w", op, err)
	}
	defer f.Close()

	if err := p.fill(f, fields, records); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	dir, err := os.MkdirTemp(p.tempDir, "expense-report-*")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	out := filepath.Join(dir, "expense_report_"+uuid.NewString()+".xlsx")
	if err := f.SaveAs(out); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("%s: save: %w", op, err)
	}
	return out, nil
}

// Release удаляет временный каталог файла, созданного Populate.
func (p *Populator) Release(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(path))
}

func (p *Populator) fill(f *excelize.File, fields Fields, records []models.ExpenseRecord) error {
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return errors.New("template has no active sheet")
	}

	centered, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return err
	}
	centeredDate, err := f.NewStyle(&excelize.Style{
		NumFmt:    dateNumFmt,
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return err
	}

	if p.headerImagePath != "" {
		if err := f.AddPicture(sheet, cellHeaderImage, p.headerImagePath, &excelize.GraphicOptions{
			ScaleX: headerImageScaleX,
			ScaleY: headerImageScaleY,
		}); err != nil {
			return fmt.Errorf("header image: %w", err)
		}
	}

	w := &sheetWriter{f: f, sheet: sheet}
	w.set(cellSchool, fields.School, centered)
	w.set(cellPeriodEnding, models.TruncateDay(fields.PeriodEnding), centeredDate)
	w.set(cellTripPurpose, fields.TripPurpose, centered)
	w.set(cellDepartment, fields.Department, centered)

	days := models.NewWindow(fields.PeriodEnding).Days()
	for i, day := range days {
		col := firstDateCol + i
		w.setAt(col, weekdayRow, "Date\n"+day.Weekday().String(), centered)
		w.setAt(col, dateRow, day, centeredDate)
	}

	byDate := make(map[time.Time][]models.ExpenseRecord, len(days))
	for _, r := range records {
		d := models.TruncateDay(r.Date)
		byDate[d] = append(byDate[d], r)
	}

	actual := make(map[[2]int]bool)
	for i, day := range days {
		col := firstDateCol + i
		for _, r := range byDate[day] {
			row := r.Category.Row()
			w.setAt(col, row, r.Amount.InexactFloat64(), 0)
			actual[[2]int{col, row}] = true
		}
	}

	if fields.Travel && fields.TravelStart != nil && fields.TravelEnd != nil {
		p.perDiem(w, days, *fields.TravelStart, *fields.TravelEnd, actual)
	}
	return w.err
}

// perDiem: в день начала только ужин, в день окончания только завтрак,
// в остальные дни поездки и то и другое. Однодневная поездка получает только ужин.
func (p *Populator) perDiem(w *sheetWriter, days []time.Time, start, end time.Time, actual map[[2]int]bool) {
	start, end = models.TruncateDay(start), models.TruncateDay(end)
	trip := models.Window{Start: start, End: end}
	breakfast := models.CategoryBreakfast.Row()
	dinner := models.CategoryDinner.Row()

	for i, day := range days {
		if !trip.Contains(day) {
			continue
		}
		col := firstDateCol + i
		withBreakfast, withDinner := true, true
		switch {
		case day.Equal(start):
			withBreakfast = false
		case day.Equal(end):
			withDinner = false
		}
		if withBreakfast && p.allow(actual, col, breakfast) {
			w.setAt(col, breakfast, BreakfastAllowance.InexactFloat64(), 0)
		}
		if withDinner && p.allow(actual, col, dinner) {
			w.setAt(col, dinner, DinnerAllowance.InexactFloat64(), 0)
		}
	}
}

func (p *Populator) allow(actual map[[2]int]bool, col, row int) bool {
	return p.policy != PerDiemKeepActual || !actual[[2]int{col, row}]
}

// sheetWriter запоминает первую ошибку записи.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) setAt(col, row int, value any, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.set(cell, value, style)
}

func (w *sheetWriter) set(cell string, value any, style int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
		w.err = fmt.Errorf("cell %s: %w", cell, err)
		return
	}
	if style == 0 {
		return
	}
	if err := w.f.SetCellStyle(w.sheet, cell, cell, style); err != nil {
		w.err = fmt.Errorf("cell %s style: %w", cell, err)
	}
}
