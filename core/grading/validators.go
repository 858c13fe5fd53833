package grading

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
)

var (
	scoreTag  = "score"
	scoreText = fmt.Sprintf("score must be between %d and %d", MinScore, MaxScore)
)

// InitValidators registers the grading validation rules on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(gradeInputStructValidation, GradeInput{})
	core.RegisterCustomTranslation(validate, translator, scoreTag, scoreText)
}

// gradeInputStructValidation checks that every entered score lies within the scale.
func gradeInputStructValidation(sl validator.StructLevel) {
	gi := sl.Current().Interface().(GradeInput)
	check := func(score null.Float64, jsonName, name string) {
		if score.Valid && (score.Float64 < MinScore || score.Float64 > MaxScore) {
			sl.ReportError(score.Float64, jsonName, name, scoreTag, "")
		}
	}
	check(gi.Eval1, "eval1", "Eval1")
	check(gi.Eval2, "eval2", "Eval2")
	check(gi.Eval3, "eval3", "Eval3")
	check(gi.Exam, "exam", "Exam")
}
