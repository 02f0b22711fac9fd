package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("checkout form invalid")

var (
	cardNumberRe = regexp.MustCompile(`^\d{16}$`)
	expiryRe     = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvRe        = regexp.MustCompile(`^\d{3,4}$`)
)

// Customer holds the contact and billing fields of the checkout form.
type Customer struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Country    string `json:"country" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	Address    string `json:"address,omitempty"`
	ZipCode    string `json:"zipCode,omitempty"`
	Company    string `json:"company,omitempty"`
	AgreeTerms bool   `json:"agreeTerms" validate:"required"`
}

func (c Customer) trimmed() Customer {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Country = strings.TrimSpace(c.Country)
	c.City = strings.TrimSpace(c.City)
	c.State = strings.TrimSpace(c.State)
	c.Address = strings.TrimSpace(c.Address)
	c.ZipCode = strings.TrimSpace(c.ZipCode)
	c.Company = strings.TrimSpace(c.Company)
	return c
}

// Card holds the card payment fields. Only checked when paying by card.
type Card struct {
	Number string `json:"number" validate:"cardnumber"`
	Holder string `json:"holder" validate:"required"`
	Expiry string `json:"expiry" validate:"expiry"`
	CVV    string `json:"cvv" validate:"cvv"`
}

// OrderRequest is the submitted checkout form.
type OrderRequest struct {
	Customer Customer `json:"customer"`
	Card     *Card    `json:"card,omitempty"`
}

// FieldError names one failing form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failing field of a submitted form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return e.Fields[0].Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var fieldMessages = map[string]string{
	"agreeTerms": "Please agree to the Terms of Service",
	"number":     "Please enter a valid card number",
	"holder":     "Please enter cardholder name",
	"expiry":     "Please enter valid expiry date (MM/YY)",
	"cvv":        "Please enter valid CVV",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return cardNumberRe.MatchString(strings.Join(strings.Fields(fl.Field().String()), ""))
	})
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("cvv", func(fl validator.FieldLevel) bool {
		return cvvRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

func validateForm(v *validator.Validate, req OrderRequest, method PaymentMethod) error {
	var fields []FieldError
	fields = append(fields, collect(v.Struct(req.Customer))...)
	if method == PaymentCard {
		if req.Card == nil {
			req.Card = &Card{}
		}
		fields = append(fields, collect(v.Struct(*req.Card))...)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func collect(err error) []FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: messageFor(fe)})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}
	if fe.Tag() == "email" {
		return "Please enter a valid email address"
	}
	return fe.Field() + " is required"
}
