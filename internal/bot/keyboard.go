package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tallerbot/internal/availability"
	"tallerbot/internal/shop"
)

var backRow = tgbotapi.NewInlineKeyboardRow(
	tgbotapi.NewInlineKeyboardButtonData("⬅️ Atrás", "back"),
)

// welcomeKeyboard offers the three welcome-screen actions.
func welcomeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓 Reservar cita", "book"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕐 Horario", "hours"),
			tgbotapi.NewInlineKeyboardButtonData("📍 Contacto", "contact"),
		),
	)
}

// datesKeyboard lists the next open days, one per row.
func datesKeyboard(days []availability.DayAvailability) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(days)+1)
	for _, d := range days {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(formatDate(d.Date), "date:"+d.Date),
		))
	}
	rows = append(rows, backRow)
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// slotsKeyboard groups slot buttons into rows of 3.
func slotsKeyboard(slots []availability.Slot) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var currentRow []tgbotapi.InlineKeyboardButton
	for _, slot := range slots {
		label := slot.String()
		currentRow = append(currentRow, tgbotapi.NewInlineKeyboardButtonData(label, "slot:"+label))
		if len(currentRow) == 3 {
			rows = append(rows, currentRow)
			currentRow = nil
		}
	}
	if len(currentRow) > 0 {
		rows = append(rows, currentRow)
	}
	rows = append(rows, backRow)
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// servicesKeyboard lists the catalog, one service per row.
func servicesKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(shop.Services)+1)
	for _, opt := range shop.Services {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt.Label, "svc:"+opt.Value),
		))
	}
	rows = append(rows, backRow)
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// skipKeyboard is used on optional fields.
func skipKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Omitir", "skip"),
		),
		backRow,
	)
}

// backKeyboard is used on required text fields.
func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(backRow)
}

// termsKeyboard asks for the privacy acknowledgement.
func termsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Acepto", "terms:yes"),
		),
		backRow,
	)
}

// confirmKeyboard closes the form.
func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📨 Enviar solicitud", "confirm"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancelar", "cancel"),
		),
		backRow,
	)
}

// homeKeyboard returns from the confirmation screen.
func homeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Volver al inicio", "home"),
		),
	)
}
