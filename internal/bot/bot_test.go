package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tallerbot/internal/availability"
	"tallerbot/internal/config"
	"tallerbot/internal/schedule"
	"tallerbot/internal/shop"
	"tallerbot/internal/webhook"
	"tallerbot/internal/wizard"
)

type fakeTelegram struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "tallerbot_test"}
}

func (f *fakeTelegram) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no messages sent")
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "last sent item is not a MessageConfig")
	return msg
}

// fridayClock pins "today" to Friday 2024-07-12 so the suggested days
// always start on Monday 2024-07-15.
func fridayClock() time.Time {
	return time.Date(2024, 7, 12, 12, 0, 0, 0, time.Local)
}

type fixture struct {
	bot      *Bot
	tg       *fakeTelegram
	sessions *wizard.MemoryStore
	ctx      context.Context
}

func newFixture(t *testing.T, webhookURL string) *fixture {
	t.Helper()

	cfg := &config.Config{Shop: shop.DefaultProfile()}
	engine := availability.NewEngine(schedule.Default(), availability.WithClock(fridayClock))
	sessions := wizard.NewMemoryStore(0)
	logger := zerolog.Nop()
	hook := webhook.NewClient(webhookURL, &logger)

	tg := &fakeTelegram{}
	b, err := NewWithTelegramClient(tg, cfg, engine, sessions, hook, &logger)
	require.NoError(t, err)

	return &fixture{
		bot:      b,
		tg:       tg,
		sessions: sessions,
		ctx:      logger.WithContext(context.Background()),
	}
}

func (f *fixture) text(chatID int64, text string) {
	f.bot.handleUpdate(f.ctx, &tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
		},
	})
}

func (f *fixture) press(chatID int64, data string) {
	f.bot.handleUpdate(f.ctx, &tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			Data:    data,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		},
	})
}

func (f *fixture) session(t *testing.T, chatID int64) *wizard.Session {
	t.Helper()
	sess, err := f.sessions.Get(chatID)
	require.NoError(t, err)
	return sess
}

func TestStartShowsWelcome(t *testing.T) {
	f := newFixture(t, "")
	f.text(7, "/start")

	msg := f.tg.lastMessage(t)
	assert.Contains(t, msg.Text, "Taller Lira Motors")
	assert.NotNil(t, msg.ReplyMarkup)
	assert.Equal(t, wizard.ScreenWelcome, f.session(t, 7).Screen)
}

func TestBookEntersForm(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")

	sess := f.session(t, 7)
	assert.Equal(t, wizard.ScreenForm, sess.Screen)
	assert.Equal(t, wizard.StepName, sess.Step)
	assert.Contains(t, f.tg.lastMessage(t).Text, "nombre")
}

func TestHoursAndContactStayOnWelcome(t *testing.T) {
	f := newFixture(t, "")

	f.press(7, "hours")
	assert.Contains(t, f.tg.lastMessage(t).Text, "Horario del taller")
	assert.Contains(t, f.tg.lastMessage(t).Text, "Domingo: cerrado")

	f.press(7, "contact")
	assert.Contains(t, f.tg.lastMessage(t).Text, "Google Maps")

	assert.Equal(t, wizard.ScreenWelcome, f.session(t, 7).Screen)
}

func TestPhoneRejectedThenAccepted(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")

	f.text(7, "12345")
	assert.Contains(t, f.tg.lastMessage(t).Text, "teléfono válido")
	assert.Equal(t, wizard.StepPhone, f.session(t, 7).Step)

	f.text(7, "603 473 062")
	sess := f.session(t, 7)
	assert.Equal(t, "603 473 062", sess.Draft.Phone)
	assert.Equal(t, wizard.StepEmail, sess.Step)
}

func TestSkipEmailJumpsToService(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")

	f.press(7, "skip")
	sess := f.session(t, 7)
	assert.Empty(t, sess.Draft.Email)
	assert.Equal(t, wizard.StepService, sess.Step)
}

func TestServiceOtherAsksForDescription(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")
	f.press(7, "skip")

	f.press(7, "svc:otro")
	assert.Equal(t, wizard.StepOther, f.session(t, 7).Step)

	f.text(7, "Cambio de correa")
	sess := f.session(t, 7)
	assert.Equal(t, "Cambio de correa", sess.Draft.OtherService)
	assert.Equal(t, wizard.StepDate, sess.Step)
}

func TestCatalogServiceSkipsDescription(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")
	f.press(7, "skip")

	f.press(7, "svc:cambio-aceite")
	sess := f.session(t, 7)
	assert.Equal(t, "cambio-aceite", sess.Draft.Service)
	assert.Equal(t, wizard.StepDate, sess.Step)
}

func TestUnknownServiceIgnored(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")
	f.press(7, "skip")

	f.press(7, "svc:lavado-gratis")
	assert.Equal(t, wizard.StepService, f.session(t, 7).Step)
}

func TestDatePickShowsSlots(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")
	f.press(7, "skip")
	f.press(7, "svc:diagnosis")

	// From Friday 2024-07-12 the first suggested day is Monday the 15th.
	f.press(7, "date:2024-07-15")
	sess := f.session(t, 7)
	assert.Equal(t, "2024-07-15", sess.Draft.Date)
	assert.Equal(t, wizard.StepTime, sess.Step)
	assert.Contains(t, f.tg.lastMessage(t).Text, "hora")
}

func TestTypedClosedDateRejected(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")
	f.press(7, "skip")
	f.press(7, "svc:diagnosis")

	// 2024-07-21 is a Sunday; the default schedule closes weekends.
	f.text(7, "2024-07-21")
	sess := f.session(t, 7)
	assert.Empty(t, sess.Draft.Date)
	assert.Equal(t, wizard.StepDate, sess.Step)
	assert.Contains(t, f.tg.lastMessage(t).Text, "cerrado")
}

func TestStaleSlotRejected(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")
	f.press(7, "skip")
	f.press(7, "svc:diagnosis")
	f.press(7, "date:2024-07-15")

	// 14:15 never appears on the 30-minute grid.
	f.press(7, "slot:14:15")
	sess := f.session(t, 7)
	assert.Empty(t, sess.Draft.Time)
	assert.Equal(t, wizard.StepTime, sess.Step)
}

func TestBackFromFirstFieldLeavesForm(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	require.Equal(t, wizard.StepName, f.session(t, 7).Step)

	f.press(7, "back")
	sess := f.session(t, 7)
	assert.Equal(t, wizard.ScreenWelcome, sess.Screen)
	assert.Equal(t, wizard.StepNone, sess.Step)
}

func TestBackStepsToPreviousField(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	require.Equal(t, wizard.StepPhone, f.session(t, 7).Step)

	f.press(7, "back")
	assert.Equal(t, wizard.StepName, f.session(t, 7).Step)
}

func TestCancelReturnsToWelcome(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")

	f.press(7, "cancel")
	assert.Equal(t, wizard.ScreenWelcome, f.session(t, 7).Screen)
}

func TestFullFlowDeliversWebhook(t *testing.T) {
	received := make(chan webhook.Payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhook.Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603 473 062")
	f.text(7, "maria@example.com")
	f.press(7, "svc:cambio-aceite")
	f.press(7, "date:2024-07-15")
	f.press(7, "slot:10:30")
	f.text(7, "El coche hace un ruido raro")
	f.press(7, "terms:yes")

	require.Equal(t, wizard.StepConfirm, f.session(t, 7).Step)
	summary := f.tg.lastMessage(t)
	assert.Contains(t, summary.Text, "María García")
	assert.Contains(t, summary.Text, "603473062")
	assert.Contains(t, summary.Text, "Lunes, 15 de julio")

	f.press(7, "confirm")

	sess := f.session(t, 7)
	assert.Equal(t, wizard.ScreenConfirmation, sess.Screen)
	assert.Contains(t, f.tg.lastMessage(t).Text, "Solicitud enviada")

	select {
	case p := <-received:
		assert.Equal(t, "María García", p.Name)
		assert.Equal(t, "603473062", p.Phone)
		assert.Equal(t, "Cambio de aceite y filtros", p.Service)
		assert.Equal(t, "2024-07-15", p.Date)
		assert.Equal(t, "10:30", p.Time)
		assert.True(t, p.AcceptTerms)
		assert.NotEmpty(t, p.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never received the request")
	}

	// Home resets the draft for the next booking.
	f.press(7, "home")
	sess = f.session(t, 7)
	assert.Equal(t, wizard.ScreenWelcome, sess.Screen)
	assert.Empty(t, sess.Draft.Name)
}

func TestConfirmWithoutTermsReturnsToTermsStep(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "book")
	f.text(7, "María García")
	f.text(7, "603473062")
	f.press(7, "skip")
	f.press(7, "svc:diagnosis")
	f.press(7, "date:2024-07-15")
	f.press(7, "slot:09:00")
	f.press(7, "skip")

	// Jump the cursor past the terms step without accepting.
	sess := f.session(t, 7)
	require.Equal(t, wizard.StepTerms, sess.Step)
	sess.Step = wizard.StepConfirm
	require.NoError(t, f.sessions.Put(sess))

	f.press(7, "confirm")
	sess = f.session(t, 7)
	assert.Equal(t, wizard.ScreenForm, sess.Screen)
	assert.Equal(t, wizard.StepTerms, sess.Step)
	assert.Contains(t, f.tg.lastMessage(t).Text, "permiso")
}

func TestConfirmIgnoredOutsideForm(t *testing.T) {
	f := newFixture(t, "")
	f.press(7, "confirm")
	assert.Equal(t, wizard.ScreenWelcome, f.session(t, 7).Screen)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Lunes, 15 de julio", formatDate("2024-07-15"))
	assert.Equal(t, "Domingo, 21 de julio", formatDate("2024-07-21"))
	assert.Equal(t, "garbage", formatDate("garbage"))
}

func TestSlotsKeyboardRowsOfThree(t *testing.T) {
	slots := []availability.Slot{
		{Hour: 9, Minute: 0}, {Hour: 9, Minute: 30}, {Hour: 10, Minute: 0}, {Hour: 10, Minute: 30}, {Hour: 11, Minute: 0},
	}
	kb := slotsKeyboard(slots)

	// Two slot rows plus the back row.
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Len(t, kb.InlineKeyboard[0], 3)
	assert.Len(t, kb.InlineKeyboard[1], 2)
	require.NotNil(t, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "slot:09:00", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestDatesKeyboardUsesSpanishLabels(t *testing.T) {
	days := []availability.DayAvailability{
		{Date: "2024-07-15", DayOfWeek: time.Monday},
	}
	kb := datesKeyboard(days)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "Lunes, 15 de julio", kb.InlineKeyboard[0][0].Text)
}

func TestServicesKeyboardListsCatalog(t *testing.T) {
	kb := servicesKeyboard()
	require.Len(t, kb.InlineKeyboard, len(shop.Services)+1)
	last := kb.InlineKeyboard[len(kb.InlineKeyboard)-1][0]
	assert.True(t, strings.Contains(last.Text, "Atrás"))
}
