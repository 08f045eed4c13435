package course

import (
	"path"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/slide"
)

var (
	slideNameTag  = "slidename"
	slideNameText = "{0} must only contain slide files named like 01-02-title.md"
)

// InitValidators registers the course validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(slideNameTag, slideNameValidation)
	core.RegisterCustomTranslation(validate, translator, slideNameTag, slideNameText)
}

func slideNameValidation(fl validator.FieldLevel) bool {
	p, ok := fl.Field().Interface().(string)
	return ok && IsSlideFile(p)
}

// IsSlideFile reports whether p is a relative slide path inside the slide dir.
func IsSlideFile(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return slide.IsSlideName(cleaned)
}
