package submission

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/siea/ricequote/internal/domain/apperr"
	"github.com/siea/ricequote/internal/domain/models"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// Phone numbers under a dialing code without a configured rule must still look like
// national numbers.
const (
	minPhoneDigits = 6
	maxPhoneDigits = 15
)

// CustomerValidator checks customer contact fields, including the per-country phone
// length rule.
type CustomerValidator struct {
	validate    *validator.Validate
	phoneDigits map[string]int
}

// NewCustomerValidator builds a validator for the given dialing code rules.
func NewCustomerValidator(phoneDigits map[string]int) *CustomerValidator {
	cv := &CustomerValidator{
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		phoneDigits: phoneDigits,
	}

	cv.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = cv.validate.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	cv.validate.RegisterStructValidation(cv.phoneRule, models.Customer{})

	return cv
}

func (cv *CustomerValidator) phoneRule(sl validator.StructLevel) {
	c := sl.Current().Interface().(models.Customer)
	if c.Phone == "" || c.CountryCode == "" {
		return
	}
	if !digitsPattern.MatchString(c.Phone) {
		sl.ReportError(c.Phone, "phone", "Phone", "numeric", "")
		return
	}
	if want, ok := cv.phoneDigits[c.CountryCode]; ok {
		if len(c.Phone) != want {
			sl.ReportError(c.Phone, "phone", "Phone", "phone_digits", strconv.Itoa(want))
		}
		return
	}
	if n := len(c.Phone); n < minPhoneDigits || n > maxPhoneDigits {
		sl.ReportError(c.Phone, "phone", "Phone", "phone_length", "")
	}
}

// Validate returns a *apperr.ValidationError keyed customer.<field>, or nil.
func (cv *CustomerValidator) Validate(c models.Customer) error {
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.CountryCode = strings.TrimSpace(c.CountryCode)

	err := cv.validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate customer: %w", err)
	}

	verr := apperr.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add("customer."+fe.Field(), message(fe))
	}
	return verr.OrNil()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "contact_email":
		return "must be a valid email address"
	case "startswith":
		return fmt.Sprintf("must start with %s", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "phone_digits":
		return fmt.Sprintf("must have exactly %s digits for this country code", fe.Param())
	case "phone_length":
		return fmt.Sprintf("must have between %d and %d digits", minPhoneDigits, maxPhoneDigits)
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
