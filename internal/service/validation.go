// Package service implements the console's use cases on top of the ports.
// Every operation that depends on who is calling takes an explicit
// *domain.Session.
package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("service")

var (
	cpfPattern  = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	cnpjPattern = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	digitsOnly  = regexp.MustCompile(`^[0-9]+$`)
)

// validate is shared by all services; validator caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names, the ones the forms know.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
		return domain.IsValidPlan(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return cpfPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
		return cnpjPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsOnly.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("expiry", validExpiry)

	return v
}

// validExpiry accepts MM/YY cards that have not expired yet.
func validExpiry(fl validator.FieldLevel) bool {
	t, err := time.Parse("01/06", fl.Field().String())
	if err != nil {
		return false
	}
	// valid through the last day of the month
	return time.Now().Before(t.AddDate(0, 1, 0))
}

// validateStruct runs the struct tags and collects every failing field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		key := fieldPath(e)
		if _, seen := fields[key]; !seen {
			fields[key] = validationMessage(e)
		}
	}
	return &domain.ErrValidationSet{Fields: fields}
}

// mergeValidation combines field errors from several checks. Any other
// error wins as is.
func mergeValidation(errs ...error) error {
	fields := map[string]string{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var set *domain.ErrValidationSet
		if !errors.As(err, &set) {
			return err
		}
		for k, v := range set.Fields {
			if _, seen := fields[k]; !seen {
				fields[k] = v
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &domain.ErrValidationSet{Fields: fields}
}

// fieldPath drops the root struct name from the namespace, so nested
// fields read "personal.cpf" and top-level ones just "email".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

// validationMessage returns a user-facing message in Portuguese.
func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "Campo obrigatório"
	case "email":
		return "Email inválido"
	case "min":
		if e.Kind() == reflect.String {
			return "Deve ter pelo menos " + e.Param() + " caracteres"
		}
		return "Deve ser no mínimo " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Deve ter no máximo " + e.Param() + " caracteres"
		}
		return "Deve ser no máximo " + e.Param()
	case "gte":
		return "Deve ser maior ou igual a " + e.Param()
	case "oneof":
		return "Deve ser um de: " + e.Param()
	case "url":
		return "URL inválida"
	case "numeric", "digits":
		return "Deve conter apenas números"
	case "plan":
		return "Plano inválido"
	case "cpf":
		return "CPF inválido"
	case "cnpj":
		return "CNPJ inválido"
	case "expiry":
		return "Validade inválida"
	default:
		return "Valor inválido"
	}
}

// requireReason trims a moderation reason and refuses an empty one.
func requireReason(field, reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", &domain.ErrValidation{Field: field, Message: "Motivo é obrigatório"}
	}
	return reason, nil
}

// requireRole fails unless the session holds role.
func requireRole(session *domain.Session, role domain.Role, action string) error {
	if session == nil {
		return &domain.ErrUnauthorized{Message: "Sessão ausente"}
	}
	if session.Role != role {
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}
