package xlsx

import "github.com/shopspring/decimal"

// Координаты фиксированного шаблона отчета.
const (
	firstDateCol = 4 // D
	lastDateCol  = 10
	weekdayRow   = 7
	dateRow      = 8

	cellDepartment   = "B4"
	cellSchool       = "B5"
	cellPeriodEnding = "H4"
	cellTripPurpose  = "H5"
	cellHeaderImage  = "A1"

	headerImageScaleX = 0.43
	headerImageScaleY = 0.60

	// dateNumFmt встроенный формат Excel m/d/yyyy.
	dateNumFmt = 14
)

// Суточные на питание в дни командировки.
var (
	BreakfastAllowance = decimal.RequireFromString("5.00")
	DinnerAllowance    = decimal.RequireFromString("30.00")
)
