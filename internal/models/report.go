// Package models содержит доменные структуры отчета о расходах:
// запрос на формирование отчета, нормализованные записи о расходах и категории.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout формат дат в запросе и в метаданных объектов.
const DateLayout = "2006-01-02"

// ReportDays длина отчетного периода в днях.
const ReportDays = 7

// Значения по умолчанию для необязательных полей запроса.
const (
	DefaultDepartment  = "Default Department"
	DefaultSchool      = "Default School"
	DefaultTripPurpose = "Default Purpose"
	DefaultTravel      = "No"
)

// ReportRequest тело запроса POST /process_expense_report.
// Даты приходят строками, чтобы их можно было валидировать до разбора.
type ReportRequest struct {
	PeriodEnding       string `json:"periodEnding" validate:"required,datetime=2006-01-02" example:"2024-06-16"`
	EmployeeDepartment string `json:"employeeDepartment" example:"Math"`
	School             string `json:"school" example:"North High"`
	TripPurpose        string `json:"tripPurpose" example:"Conference"`
	Travel             string `json:"travel" example:"Yes"`
	TravelStartDate    string `json:"travelStartDate,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2024-06-10"`
	TravelEndDate      string `json:"travelEndDate,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2024-06-12"`
}

// ApplyDefaults подставляет значения по умолчанию в пустые необязательные поля.
func (r *ReportRequest) ApplyDefaults() {
	if r.EmployeeDepartment == "" {
		r.EmployeeDepartment = DefaultDepartment
	}
	if r.School == "" {
		r.School = DefaultSchool
	}
	if r.TripPurpose == "" {
		r.TripPurpose = DefaultTripPurpose
	}
	if r.Travel == "" {
		r.Travel = DefaultTravel
	}
}

// IsTravel сообщает, заявлена ли командировка (без учета регистра).
func (r ReportRequest) IsTravel() bool {
	return strings.EqualFold(strings.TrimSpace(r.Travel), "yes")
}

// ExpenseRecord нормализованная запись о расходе, полученная из метаданных одного объекта.
type ExpenseRecord struct {
	Key      string          // Ключ объекта в хранилище
	Date     time.Time       // Календарная дата расхода, полночь UTC
	Amount   decimal.Decimal // Сумма расхода
	Category Category        // Категория расхода
	RawName  string          // Категория как она записана в метаданных
}

// Window отчетный период [Start, End], обе границы включены.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow строит семидневный период, заканчивающийся periodEnding.
func NewWindow(periodEnding time.Time) Window {
	end := TruncateDay(periodEnding)
	return Window{Start: end.AddDate(0, 0, -(ReportDays - 1)), End: end}
}

// Contains проверяет, попадает ли дата в период.
func (w Window) Contains(d time.Time) bool {
	d = TruncateDay(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days возвращает даты периода от самой ранней к самой поздней.
func (w Window) Days() []time.Time {
	days := make([]time.Time, 0, ReportDays)
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ParseDate разбирает дату формата YYYY-MM-DD в полночь UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// TruncateDay отбрасывает время суток, оставляя календарную дату в UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ReportKey ключ, под которым сохраняется сформированный отчет пользователя.
func ReportKey(subject, periodEnding string) string {
	return subject + "/expense_report_" + periodEnding + ".xlsx"
}

// SubjectPrefix префикс ключей объектов пользователя.
func SubjectPrefix(subject string) string {
	return subject + "/"
}
