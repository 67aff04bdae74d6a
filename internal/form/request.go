// Package form holds the booking request and its submit-time validation.
package form

import (
	"regexp"
	"strings"

	"tallerbot/internal/availability"
	"tallerbot/internal/shop"
)

var (
	phonePattern = regexp.MustCompile(`^\d{9}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Request is the booking form as filled in by the user.
type Request struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Service      string `json:"service"`
	OtherService string `json:"other_service,omitempty"`
	Date         string `json:"date"` // YYYY-MM-DD
	Time         string `json:"time"` // HH:MM
	Comments     string `json:"comments"`
	AcceptTerms  bool   `json:"acceptTerms"`
}

// FieldError is a validation failure tied to one form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError aggregates per-field failures. It never propagates
// past the form boundary; the wizard surfaces the messages inline.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ByField returns the message for a field, or "".
func (e *ValidationError) ByField(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// ServiceLabel resolves the human-readable service description used in
// the webhook payload. The free-text "otro" entry substitutes its own
// description for the catalog label.
func (r *Request) ServiceLabel() string {
	if r.Service == shop.OtherService {
		return strings.TrimSpace(r.OtherService)
	}
	return shop.ServiceLabel(r.Service)
}

// NormalizedPhone strips spaces from the phone field.
func (r *Request) NormalizedPhone() string {
	return strings.ReplaceAll(r.Phone, " ", "")
}

// Validate applies the client-side rules plus the submit-time
// availability re-check: the chosen time must still be a bookable slot
// of the chosen date. That catches forms submitted after the rendered
// slot list went stale (tab left open overnight).
func (r *Request) Validate(engine *availability.Engine) error {
	var fields []FieldError

	if strings.TrimSpace(r.Name) == "" {
		fields = append(fields, FieldError{"name", "El nombre es obligatorio"})
	}

	switch phone := r.NormalizedPhone(); {
	case phone == "":
		fields = append(fields, FieldError{"phone", "El teléfono es obligatorio"})
	case !phonePattern.MatchString(phone):
		fields = append(fields, FieldError{"phone", "Introduce un teléfono válido (9 dígitos)"})
	}

	if email := strings.TrimSpace(r.Email); email != "" && !emailPattern.MatchString(email) {
		fields = append(fields, FieldError{"email", "Introduce un email válido"})
	}

	switch {
	case r.Service == "":
		fields = append(fields, FieldError{"service", "Selecciona un tipo de servicio"})
	case !shop.ValidService(r.Service):
		fields = append(fields, FieldError{"service", "Servicio desconocido"})
	case r.Service == shop.OtherService && strings.TrimSpace(r.OtherService) == "":
		fields = append(fields, FieldError{"otherService", "Especifica el tipo de servicio"})
	}

	fields = append(fields, r.validateDateTime(engine)...)

	if !r.AcceptTerms {
		fields = append(fields, FieldError{"acceptTerms", "Debes aceptar el aviso de privacidad"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (r *Request) validateDateTime(engine *availability.Engine) []FieldError {
	var fields []FieldError

	if r.Date == "" {
		fields = append(fields, FieldError{"date", "Selecciona una fecha"})
	} else if _, err := engine.DayOfWeek(r.Date); err != nil {
		fields = append(fields, FieldError{"date", "Fecha no válida"})
	}

	if r.Time == "" {
		fields = append(fields, FieldError{"time", "Selecciona una hora"})
		return fields
	}

	if r.Date == "" || len(fields) > 0 {
		return fields
	}

	ok, err := engine.HasSlot(r.Date, r.Time)
	if err != nil {
		fields = append(fields, FieldError{"time", "Hora no válida"})
	} else if !ok {
		fields = append(fields, FieldError{"time", "La hora elegida ya no está disponible para esa fecha"})
	}
	return fields
}
