// Package bot renders the three-screen booking wizard over Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tallerbot/internal/availability"
	"tallerbot/internal/config"
	"tallerbot/internal/form"
	"tallerbot/internal/metrics"
	"tallerbot/internal/schedule"
	"tallerbot/internal/shop"
	"tallerbot/internal/webhook"
	"tallerbot/internal/wizard"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Bot drives the booking wizard for each chat.
type Bot struct {
	tg          telegramClient
	engine      *availability.Engine
	sessions    wizard.Store
	fsm         *wizard.FSM
	webhook     *webhook.Client
	profile     shop.Profile
	weekly      schedule.Weekly
	lookahead   int
	suggestions int
	logger      *zerolog.Logger
}

// New connects to Telegram and builds the wizard bot.
func New(cfg *config.Config, engine *availability.Engine, sessions wizard.Store, hook *webhook.Client, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	return newBot(&realTelegramClient{api: api}, cfg, engine, sessions, hook, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, cfg *config.Config, engine *availability.Engine, sessions wizard.Store, hook *webhook.Client, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, cfg, engine, sessions, hook, logger)
}

func newBot(tg telegramClient, cfg *config.Config, engine *availability.Engine, sessions wizard.Store, hook *webhook.Client, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, errors.New("telegram client is nil")
	}
	lookahead := cfg.Booking.LookaheadDays
	if lookahead <= 0 {
		lookahead = availability.DefaultLookaheadDays
	}
	maxResults := cfg.Booking.MaxSuggestions
	if maxResults <= 0 {
		maxResults = availability.DefaultMaxSuggestions
	}
	return &Bot{
		tg:          tg,
		engine:      engine,
		sessions:    sessions,
		fsm:         wizard.NewFSM(),
		webhook:     hook,
		profile:     cfg.Shop,
		weekly:      cfg.Weekly(),
		lookahead:   lookahead,
		suggestions: maxResults,
		logger:      logger,
	}, nil
}

// Start polls updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("wizard bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			b.handleUpdate(l.WithContext(ctx), &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().Str("data", update.CallbackQuery.Data).Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().Int64("chat_id", update.Message.Chat.ID).Msg("handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		_ = b.sessions.Delete(chatID)
		b.sendWelcome(chatID)
		return
	case strings.HasPrefix(text, "/horario"):
		b.replyMarkdown(chatID, hoursText(b.weekly))
		return
	case strings.HasPrefix(text, "/cancel"):
		_ = b.sessions.Delete(chatID)
		b.reply(chatID, "Solicitud cancelada.")
		b.sendWelcome(chatID)
		return
	case strings.HasPrefix(text, "/help"):
		b.reply(chatID, "Comandos: /start para empezar, /horario para ver el horario, /cancel para cancelar la solicitud.")
		return
	}

	sess, err := b.sessions.Get(chatID)
	if err != nil {
		b.logSessionError(ctx, chatID, err)
		return
	}
	if sess.Screen != wizard.ScreenForm {
		b.sendWelcome(chatID)
		return
	}

	b.handleFormInput(ctx, sess, text)
}

// handleFormInput consumes typed text for the current form field.
func (b *Bot) handleFormInput(ctx context.Context, sess *wizard.Session, text string) {
	chatID := sess.ChatID
	switch sess.Step {
	case wizard.StepName:
		if len(strings.Fields(text)) == 0 {
			b.reply(chatID, "El nombre es obligatorio.")
			return
		}
		sess.Draft.Name = text
	case wizard.StepPhone:
		phone := strings.ReplaceAll(text, " ", "")
		if !phonePattern.MatchString(phone) {
			b.reply(chatID, "Introduce un teléfono válido (9 dígitos). Ejemplo: 603 473 062")
			return
		}
		sess.Draft.Phone = text
	case wizard.StepEmail:
		if !strings.Contains(text, "@") {
			b.reply(chatID, "Ese email no parece válido. Escríbelo de nuevo o pulsa Omitir.")
			return
		}
		sess.Draft.Email = text
	case wizard.StepOther:
		if text == "" {
			b.reply(chatID, "Especifica el tipo de servicio.")
			return
		}
		sess.Draft.OtherService = text
	case wizard.StepDate:
		if _, err := b.engine.DayOfWeek(text); err != nil {
			b.reply(chatID, "Fecha no válida. Usa el formato AAAA-MM-DD o elige un día de la lista.")
			return
		}
		slots := b.slotsFor(ctx, text)
		if len(slots) == 0 {
			b.reply(chatID, "Ese día el taller está cerrado. Elige otro día.")
			return
		}
		sess.Draft.Date = text
		sess.Draft.Time = ""
	case wizard.StepComments:
		sess.Draft.Comments = text
	default:
		// Not a text field; re-prompt whatever the wizard is waiting for.
		b.promptStep(ctx, sess)
		return
	}

	b.advance(ctx, sess)
}

var phonePattern = regexp.MustCompile(`^\d{9}$`)

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	_ = b.answerCallback(cq.ID)
	chatID := cq.Message.Chat.ID
	data := cq.Data

	sess, err := b.sessions.Get(chatID)
	if err != nil {
		b.logSessionError(ctx, chatID, err)
		return
	}

	switch {
	case data == "book":
		if b.fsm.Transition(sess, wizard.ScreenForm) {
			b.saveAndPrompt(ctx, sess)
		}
	case data == "hours":
		b.replyMarkdown(chatID, hoursText(b.weekly))
	case data == "contact":
		b.replyMarkdown(chatID, contactText(b.profile))
	case data == "back":
		b.handleBack(ctx, sess)
	case data == "skip":
		b.handleSkip(ctx, sess)
	case strings.HasPrefix(data, "svc:"):
		b.handleService(ctx, sess, strings.TrimPrefix(data, "svc:"))
	case strings.HasPrefix(data, "date:"):
		b.handleDate(ctx, sess, strings.TrimPrefix(data, "date:"))
	case strings.HasPrefix(data, "slot:"):
		b.handleSlot(ctx, sess, strings.TrimPrefix(data, "slot:"))
	case data == "terms:yes":
		b.handleTerms(ctx, sess)
	case data == "confirm":
		b.handleConfirm(ctx, sess)
	case data == "cancel":
		b.handleCancel(ctx, sess)
	case data == "home":
		b.handleHome(ctx, sess)
	}
}

func (b *Bot) handleBack(ctx context.Context, sess *wizard.Session) {
	if sess.Screen != wizard.ScreenForm {
		b.sendWelcome(sess.ChatID)
		return
	}
	prev, ok := sess.Prev()
	if !ok {
		// Backing out of the first field leaves the form.
		if b.fsm.Transition(sess, wizard.ScreenWelcome) {
			_ = b.sessions.Put(sess)
			b.sendWelcome(sess.ChatID)
		}
		return
	}
	sess.Step = prev
	b.saveAndPrompt(ctx, sess)
}

func (b *Bot) handleSkip(ctx context.Context, sess *wizard.Session) {
	switch sess.Step {
	case wizard.StepEmail:
		sess.Draft.Email = ""
	case wizard.StepComments:
		sess.Draft.Comments = ""
	default:
		return
	}
	b.advance(ctx, sess)
}

func (b *Bot) handleService(ctx context.Context, sess *wizard.Session, value string) {
	if sess.Step != wizard.StepService || !shop.ValidService(value) {
		return
	}
	sess.Draft.Service = value
	if value != shop.OtherService {
		sess.Draft.OtherService = ""
	}
	b.advance(ctx, sess)
}

func (b *Bot) handleDate(ctx context.Context, sess *wizard.Session, date string) {
	if sess.Step != wizard.StepDate {
		return
	}
	if _, err := b.engine.DayOfWeek(date); err != nil {
		b.reply(sess.ChatID, "Fecha no válida.")
		return
	}
	sess.Draft.Date = date
	sess.Draft.Time = ""
	b.advance(ctx, sess)
}

func (b *Bot) handleSlot(ctx context.Context, sess *wizard.Session, slot string) {
	if sess.Step != wizard.StepTime {
		return
	}
	ok, err := b.engine.HasSlot(sess.Draft.Date, slot)
	if err != nil || !ok {
		b.reply(sess.ChatID, "Esa hora ya no está disponible. Elige otra.")
		b.promptStep(ctx, sess)
		return
	}
	sess.Draft.Time = slot
	b.advance(ctx, sess)
}

func (b *Bot) handleTerms(ctx context.Context, sess *wizard.Session) {
	if sess.Step != wizard.StepTerms {
		return
	}
	sess.Draft.AcceptTerms = true
	b.advance(ctx, sess)
}

// handleConfirm re-validates the whole form against the current
// schedule before sending. A slot list rendered yesterday may be stale.
func (b *Bot) handleConfirm(ctx context.Context, sess *wizard.Session) {
	if sess.Screen != wizard.ScreenForm || sess.Step != wizard.StepConfirm {
		return
	}
	l := zerolog.Ctx(ctx)

	if err := sess.Draft.Validate(b.engine); err != nil {
		metrics.IncRequestSubmitted("rejected")
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			b.surfaceValidationError(ctx, sess, verr)
			return
		}
		l.Error().Err(err).Msg("unexpected validation failure")
		b.reply(sess.ChatID, "No se pudo validar la solicitud. Inténtalo de nuevo.")
		return
	}

	metrics.IncRequestSubmitted("accepted")
	req := sess.Draft

	// Fire and forget: the confirmation screen never waits for the CRM.
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), webhook.DefaultTimeout)
		defer cancel()
		b.webhook.Notify(notifyCtx, &req)
	}()

	if b.fsm.Transition(sess, wizard.ScreenConfirmation) {
		_ = b.sessions.Put(sess)
		b.replyMarkdownWithKeyboard(sess.ChatID, confirmationText(b.profile, &req), homeKeyboard())
	}
}

// surfaceValidationError returns the user to the offending field with
// an inline message.
func (b *Bot) surfaceValidationError(ctx context.Context, sess *wizard.Session, verr *form.ValidationError) {
	fieldSteps := []struct {
		field string
		step  wizard.Step
	}{
		{"name", wizard.StepName},
		{"phone", wizard.StepPhone},
		{"email", wizard.StepEmail},
		{"service", wizard.StepService},
		{"otherService", wizard.StepOther},
		{"date", wizard.StepDate},
		{"time", wizard.StepTime},
		{"acceptTerms", wizard.StepTerms},
	}
	for _, fs := range fieldSteps {
		if msg := verr.ByField(fs.field); msg != "" {
			b.reply(sess.ChatID, "⚠️ "+msg)
			sess.Step = fs.step
			b.saveAndPrompt(ctx, sess)
			return
		}
	}
	b.reply(sess.ChatID, "⚠️ Revisa los datos de la solicitud.")
	b.promptStep(ctx, sess)
}

func (b *Bot) handleCancel(ctx context.Context, sess *wizard.Session) {
	if sess.Screen == wizard.ScreenForm && b.fsm.Transition(sess, wizard.ScreenWelcome) {
		_ = b.sessions.Put(sess)
	}
	b.reply(sess.ChatID, "Solicitud cancelada.")
	b.sendWelcome(sess.ChatID)
}

func (b *Bot) handleHome(ctx context.Context, sess *wizard.Session) {
	if sess.Screen == wizard.ScreenConfirmation && b.fsm.Transition(sess, wizard.ScreenWelcome) {
		sess.Draft = form.Request{}
		_ = b.sessions.Put(sess)
	}
	b.sendWelcome(sess.ChatID)
}

// advance moves the form cursor forward and prompts the next field.
func (b *Bot) advance(ctx context.Context, sess *wizard.Session) {
	sess.Step = sess.Next()
	b.saveAndPrompt(ctx, sess)
}

func (b *Bot) saveAndPrompt(ctx context.Context, sess *wizard.Session) {
	if err := b.sessions.Put(sess); err != nil {
		b.logSessionError(ctx, sess.ChatID, err)
	}
	b.promptStep(ctx, sess)
}

// promptStep renders the prompt and keyboard for the current field.
func (b *Bot) promptStep(ctx context.Context, sess *wizard.Session) {
	chatID := sess.ChatID
	prompt := stepPrompts[sess.Step]

	switch sess.Step {
	case wizard.StepName, wizard.StepPhone, wizard.StepOther:
		b.replyWithKeyboard(chatID, prompt, backKeyboard())
	case wizard.StepEmail, wizard.StepComments:
		b.replyWithKeyboard(chatID, prompt, skipKeyboard())
	case wizard.StepService:
		b.replyWithKeyboard(chatID, prompt, servicesKeyboard())
	case wizard.StepDate:
		days := b.engine.NextAvailableDays(b.lookahead, b.suggestions)
		if len(days) == 0 {
			b.reply(chatID, "Ahora mismo no hay días disponibles. Escribe una fecha (AAAA-MM-DD) o llámanos al "+b.profile.Phone)
			return
		}
		b.replyWithKeyboard(chatID, prompt, datesKeyboard(days))
	case wizard.StepTime:
		slots := b.slotsFor(ctx, sess.Draft.Date)
		if len(slots) == 0 {
			b.reply(chatID, "Ese día el taller está cerrado. Elige otro día.")
			sess.Step = wizard.StepDate
			b.saveAndPrompt(ctx, sess)
			return
		}
		b.replyWithKeyboard(chatID, prompt, slotsKeyboard(slots))
	case wizard.StepTerms:
		b.replyWithKeyboard(chatID, prompt, termsKeyboard())
	case wizard.StepConfirm:
		b.replyMarkdownWithKeyboard(chatID, summaryText(&sess.Draft), confirmKeyboard())
	}
}

func (b *Bot) slotsFor(ctx context.Context, date string) []availability.Slot {
	slots, err := b.engine.GenerateSlots(date)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("date", date).Msg("slot generation failed")
		return nil
	}
	metrics.IncSlotLookup()
	return slots
}

func (b *Bot) sendWelcome(chatID int64) {
	b.replyMarkdownWithKeyboard(chatID, welcomeText(b.profile), welcomeKeyboard())
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) replyMarkdownWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = kb
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

func (b *Bot) logSessionError(ctx context.Context, chatID int64, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("session store error")
	b.reply(chatID, "Algo ha ido mal. Escribe /start para empezar de nuevo.")
}
