package bot

import (
	"fmt"
	"strings"
	"time"

	"tallerbot/internal/availability"
	"tallerbot/internal/form"
	"tallerbot/internal/schedule"
	"tallerbot/internal/shop"
	"tallerbot/internal/wizard"
)

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miércoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sábado",
	time.Sunday:    "Domingo",
}

var monthNames = map[time.Month]string{
	time.January:   "enero",
	time.February:  "febrero",
	time.March:     "marzo",
	time.April:     "abril",
	time.May:       "mayo",
	time.June:      "junio",
	time.July:      "julio",
	time.August:    "agosto",
	time.September: "septiembre",
	time.October:   "octubre",
	time.November:  "noviembre",
	time.December:  "diciembre",
}

// formatDate renders "Lunes, 15 de julio" from a YYYY-MM-DD string.
// Malformed input is returned as-is.
func formatDate(dateStr string) string {
	date, err := time.ParseInLocation(availability.DateLayout, dateStr, time.Local)
	if err != nil {
		return dateStr
	}
	return fmt.Sprintf("%s, %d de %s", weekdayNames[date.Weekday()], date.Day(), monthNames[date.Month()])
}

// welcomeText is the shop card shown on the welcome screen.
func welcomeText(profile shop.Profile) string {
	return fmt.Sprintf(`🔧 *%s*

📍 %s
📞 %s · 📱 %s
✉️ %s

Pide tu cita en un minuto, sin llamadas.`,
		profile.Name, profile.Address, profile.Phone, profile.Mobile, profile.Email)
}

// hoursText renders the weekly opening hours.
func hoursText(weekly schedule.Weekly) string {
	var b strings.Builder
	b.WriteString("🕐 *Horario del taller*\n\n")
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	for _, day := range order {
		intervals := weekly.IntervalsFor(day)
		if len(intervals) == 0 {
			fmt.Fprintf(&b, "%s: cerrado\n", weekdayNames[day])
			continue
		}
		parts := make([]string, len(intervals))
		for i, iv := range intervals {
			parts[i] = fmt.Sprintf("%s – %s", iv.Start, iv.End)
		}
		fmt.Fprintf(&b, "%s: %s\n", weekdayNames[day], strings.Join(parts, " y "))
	}
	return b.String()
}

// contactText renders the contact card with the WhatsApp and maps links.
func contactText(profile shop.Profile) string {
	return fmt.Sprintf(`📍 *Cómo encontrarnos*

%s

📞 %s
📱 %s
✉️ %s

[Abrir en Google Maps](%s)
[Escríbenos por WhatsApp](%s)`,
		profile.Address, profile.Phone, profile.Mobile, profile.Email,
		profile.MapsURL, profile.WhatsAppURL)
}

// stepPrompts are the texts for each form field.
var stepPrompts = map[wizard.Step]string{
	wizard.StepName:     "👤 ¿Cómo te llamas? Escribe tu nombre y apellidos:",
	wizard.StepPhone:    "📞 Escribe tu teléfono de contacto (9 dígitos):",
	wizard.StepEmail:    "✉️ Escribe tu email, o pulsa Omitir:",
	wizard.StepService:  "🔧 ¿Qué servicio necesitas?",
	wizard.StepOther:    "Describe el servicio que necesitas:",
	wizard.StepDate:     "📅 Elige un día, o escribe una fecha (AAAA-MM-DD):",
	wizard.StepTime:     "🕐 Elige una hora:",
	wizard.StepComments: "💬 ¿Algo más que debamos saber? Escríbelo, o pulsa Omitir:",
	wizard.StepTerms:    "Para enviar la solicitud necesitamos tu permiso para usar estos datos y llamarte.",
	wizard.StepConfirm:  "Revisa tu solicitud:",
}

// summaryText renders the final review before sending the request.
func summaryText(draft *form.Request) string {
	email := draft.Email
	if email == "" {
		email = "—"
	}
	comments := draft.Comments
	if comments == "" {
		comments = "—"
	}
	return fmt.Sprintf(`📋 *Tu solicitud de cita*

👤 %s
📞 %s
✉️ %s
🔧 %s
📅 %s
🕐 %s
💬 %s

¿Enviamos la solicitud?`,
		draft.Name, draft.NormalizedPhone(), email, draft.ServiceLabel(),
		formatDate(draft.Date), draft.Time, comments)
}

// confirmationText is the confirmation screen after a sent request.
func confirmationText(profile shop.Profile, draft *form.Request) string {
	return fmt.Sprintf(`✅ *¡Solicitud enviada!*

Te esperamos el %s a las %s.

Te llamaremos al %s para confirmar la cita. Si necesitas cambiarla, llámanos al %s.`,
		formatDate(draft.Date), draft.Time, draft.NormalizedPhone(), profile.Phone)
}
