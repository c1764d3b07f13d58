package validation

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	phonePattern  = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	phoneReplacer = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	registerOnce  sync.Once
	registerErr   error
)

// NormalizePhone strips formatting characters from a phone number
func NormalizePhone(phone string) string {
	return phoneReplacer.Replace(strings.TrimSpace(phone))
}

// IsPhone reports whether phone is an optional "+" followed by 7 to 15 digits, ignoring formatting
func IsPhone(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}

func validatePhone(fl validator.FieldLevel) bool {
	return IsPhone(fl.Field().String())
}

// Register adds the "phone" tag to gin's binding validator
func Register() error {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerErr = v.RegisterValidation("phone", validatePhone)
		}
	})
	return registerErr
}
