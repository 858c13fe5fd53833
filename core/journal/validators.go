package journal

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/tamkeen/tamkeen/core"
)

var (
	categoryTag  = "category"
	categoryText = "unknown category"

	timeRangeTag  = "timerange"
	timeRangeText = "end time must be after start time"

	dateRangeTag  = "daterange"
	dateRangeText = "end date must not be before start date"
)

// InitValidators registers the journal validation tags on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)

	validate.RegisterStructValidation(sessionFieldsStructValidation, SessionFields{})
	core.RegisterCustomTranslation(validate, translator, timeRangeTag, timeRangeText)

	validate.RegisterStructValidation(dateRangeStructValidation, DateRange{})
	core.RegisterCustomTranslation(validate, translator, dateRangeTag, dateRangeText)
}

func categoryValidation(fl validator.FieldLevel) bool {
	cat := fl.Field().String()
	for _, c := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// sessionFieldsStructValidation checks that a session does not end before it starts.
// HH:MM strings order the same way as the times they denote.
func sessionFieldsStructValidation(sl validator.StructLevel) {
	sf := sl.Current().Interface().(SessionFields)
	if sf.StartTime != "" && sf.EndTime != "" && sf.EndTime <= sf.StartTime {
		sl.ReportError(sf.EndTime, "endTime", "EndTime", timeRangeTag, "")
	}
}

func dateRangeStructValidation(sl validator.StructLevel) {
	dr := sl.Current().Interface().(DateRange)
	if dr.From != "" && dr.To != "" && dr.To < dr.From {
		sl.ReportError(dr.To, "to", "To", dateRangeTag, "")
	}
}
