package models

// Category категория расхода в отчете. Каждой категории соответствует
// строка шаблона, CategoryMisc используется для всех нераспознанных названий.
type Category int

const (
	CategoryAirfare Category = iota
	CategoryCarRental
	CategoryLocalTransportation
	CategoryTollsParking
	CategoryCarExpense
	CategoryGas
	CategoryHotel
	CategoryTelephone
	CategoryBreakfast
	CategoryLunch
	CategoryDinner
	CategoryBusinessMeals
	CategoryEntertainment
	CategoryOfficeSupplies
	CategoryPostage
	CategoryTips
	CategoryOther
	// CategoryMisc — строка "Other/Misc" за пределами именованных категорий.
	CategoryMisc
)

// categoryFirstRow строка шаблона для CategoryAirfare, остальные идут подряд.
const categoryFirstRow = 11

var categoryNames = [...]string{
	CategoryAirfare:             "Airfare",
	CategoryCarRental:           "Car Rental",
	CategoryLocalTransportation: "Local Transportation",
	CategoryTollsParking:        "Tolls/Parking",
	CategoryCarExpense:          "Car Expense",
	CategoryGas:                 "Gas",
	CategoryHotel:               "Hotel",
	CategoryTelephone:           "Telephone",
	CategoryBreakfast:           "Breakfast",
	CategoryLunch:               "Lunch",
	CategoryDinner:              "Dinner",
	CategoryBusinessMeals:       "Business Meals",
	CategoryEntertainment:       "Entertainment",
	CategoryOfficeSupplies:      "Office Supplies",
	CategoryPostage:             "Postage",
	CategoryTips:                "Tips",
	CategoryOther:               "Other",
	CategoryMisc:                "Other/Misc",
}

var categoryByName = func() map[string]Category {
	m := make(map[string]Category, len(categoryNames))
	for c := CategoryAirfare; c < CategoryMisc; c++ {
		m[categoryNames[c]] = c
	}
	return m
}()

// ParseCategory возвращает категорию по точному названию из метаданных.
// Неизвестные названия попадают в CategoryMisc.
func ParseCategory(name string) Category {
	if c, ok := categoryByName[name]; ok {
		return c
	}
	return CategoryMisc
}

// Categories возвращает все категории в порядке строк шаблона.
func Categories() []Category {
	out := make([]Category, 0, len(categoryNames))
	for c := CategoryAirfare; c <= CategoryMisc; c++ {
		out = append(out, c)
	}
	return out
}

// Row возвращает номер строки шаблона для категории.
func (c Category) Row() int {
	if c < CategoryAirfare || c > CategoryMisc {
		c = CategoryMisc
	}
	return categoryFirstRow + int(c)
}

func (c Category) String() string {
	if c < CategoryAirfare || c > CategoryMisc {
		return categoryNames[CategoryMisc]
	}
	return categoryNames[c]
}
