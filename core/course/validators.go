package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educa/core"
)

var (
	subjectTag  = "uuid"
	subjectText = "select a valid choice"
)

// InitValidators registers the course translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText, true)
}
