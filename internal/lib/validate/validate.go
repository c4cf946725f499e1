// Package validate создает валидатор запросов с правилами, которых нет
// во встроенном наборе go-playground/validator v9.
package validate

import (
	"time"

	"github.com/go-playground/validator"
)

// TagDatetime правило `datetime=<layout>`: строка разбирается time.Parse по layout.
const TagDatetime = "datetime"

// New возвращает валидатор с зарегистрированным правилом datetime.
func New() *validator.Validate {
	v := validator.New()
	// Ошибка возможна только для пустого или зарезервированного тега.
	if err := v.RegisterValidation(TagDatetime, isDatetime); err != nil {
		panic(err)
	}
	return v
}

func isDatetime(fl validator.FieldLevel) bool {
	layout := fl.Param()
	if layout == "" {
		return false
	}
	_, err := time.Parse(layout, fl.Field().String())
	return err == nil
}
