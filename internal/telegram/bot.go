package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"xlog/internal/auth"
	"xlog/internal/relay"
	"xlog/internal/session"
)

const (
	profilePrefix = "profile_"
	maxMessageLen = 4000
)

type Replier interface {
	Reply(ctx context.Context, profileName, text string) (string, error)
}

type ProfileFiles interface {
	Welcome(ctx context.Context, profileName string) string
	AppendToLibrary(ctx context.Context, profileName, text string) bool
}

type Transcript interface {
	Recent(ctx context.Context, profileName string, limit int) string
}

type Registry interface {
	Names() []string
	Has(name string) bool
	SetLastID(name, lastID string) error
}

// Deps are the collaborators the bot dispatches to.
type Deps struct {
	Auth        *auth.Service
	Sessions    session.Store
	Registry    Registry
	Files       ProfileFiles
	Transcript  Transcript
	Relay       Replier
	RecentLimit int
}

type Bot struct {
	api  *tgbotapi.BotAPI
	s    sender
	deps Deps
	log  zerolog.Logger
}

func New(botToken string, deps Deps, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", api.Self.UserName).Msg("authorized on telegram")
	return &Bot{api: api, s: botAPISender{api: api}, deps: deps, log: log}, nil
}

// Start handles updates one at a time until ctx is cancelled, so turns of
// the same profile never overlap.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		if !b.deps.Auth.IsAllowed(msg.From.ID) {
			b.log.Warn().Int64("user", msg.From.ID).Str("username", msg.From.UserName).Msg("unauthorized access attempt")
			b.sendMessage(msg.Chat.ID, "⛔ У вас нет доступа к этому боту.")
			return
		}
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		if strings.TrimSpace(msg.Text) != "" {
			b.handleIncomingMessage(ctx, msg)
		}
	case update.CallbackQuery != nil:
		if !b.deps.Auth.IsAllowed(update.CallbackQuery.From.ID) {
			return
		}
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.log.Info().Int64("user", msg.From.ID).Str("name", msg.From.FirstName).Msg("user started the bot")
		text := fmt.Sprintf("👋 Привет, %s! Я бот XLog.\n\nЯ могу общаться от имени разных профилей: %s.\n\nИспользуй /profile чтобы выбрать профиль.",
			msg.From.FirstName, strings.Join(b.deps.Registry.Names(), ", "))
		b.sendWithKeyboard(msg.Chat.ID, text)
	case "profile":
		b.sendWithKeyboard(msg.Chat.ID, "Выбери профиль для общения:")
	case "list":
		var bld strings.Builder
		bld.WriteString("📋 Доступные профили:\n")
		for _, name := range b.deps.Registry.Names() {
			bld.WriteString("• " + name + "\n")
		}
		bld.WriteString("\nИспользуй /profile чтобы выбрать.")
		b.sendMessage(msg.Chat.ID, bld.String())
	case "help":
		b.sendMessage(msg.Chat.ID, b.helpText())
	case "remember":
		b.handleRemember(ctx, msg)
	case "recent":
		b.handleRecent(ctx, msg)
	default:
		b.sendMessage(msg.Chat.ID, "Неизвестная команда. /help покажет список команд.")
	}
}

func (b *Bot) helpText() string {
	return "🤖 XLog Bot\n\n" +
		"Команды:\n" +
		"/start - Запуск бота\n" +
		"/profile - Выбрать профиль\n" +
		"/list - Список профилей\n" +
		"/remember <текст> - Добавить текст в библиотеку профиля\n" +
		"/recent [n] - Последние сообщения профиля\n" +
		"/help - Эта справка\n\n" +
		"Как общаться:\n" +
		"1. Выбери профиль через /profile\n" +
		"2. Просто пиши сообщения\n" +
		"3. Бот ответит от имени выбранного профиля\n\n" +
		"Доступные профили:\n" + strings.Join(b.deps.Registry.Names(), ", ")
}

func (b *Bot) handleRemember(ctx context.Context, msg *tgbotapi.Message) {
	name, ok := b.activeProfile(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.sendMessage(msg.Chat.ID, "Usage: /remember <текст>")
		return
	}
	if !b.deps.Files.AppendToLibrary(ctx, name, text) {
		b.sendMessage(msg.Chat.ID, "❌ Не удалось обновить библиотеку, попробуй позже.")
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("📚 Добавлено в библиотеку профиля %s.", name))
}

func (b *Bot) handleRecent(ctx context.Context, msg *tgbotapi.Message) {
	name, ok := b.activeProfile(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	limit := b.deps.RecentLimit
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			b.sendMessage(msg.Chat.ID, "Usage: /recent [n]")
			return
		}
		limit = n
	}
	recent := b.deps.Transcript.Recent(ctx, name, limit)
	if recent == "" {
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("У профиля %s нет недавних сообщений.", name))
		return
	}
	b.sendMessage(msg.Chat.ID, tail(recent, maxMessageLen))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("failed to answer callback")
	}
	if !strings.HasPrefix(cb.Data, profilePrefix) || cb.Message == nil {
		return
	}
	name := strings.TrimPrefix(cb.Data, profilePrefix)
	if !b.deps.Registry.Has(name) {
		b.sendMessage(cb.Message.Chat.ID, "Такого профиля нет. /list покажет доступные.")
		return
	}
	if err := b.deps.Sessions.SetActiveProfile(ctx, session.UserKey(cb.From.ID), name); err != nil {
		b.log.Error().Err(err).Int64("user", cb.From.ID).Msg("failed to store active profile")
		b.sendMessage(cb.Message.Chat.ID, "❌ Не удалось выбрать профиль, попробуй ещё раз.")
		return
	}
	b.log.Info().Int64("user", cb.From.ID).Str("profile", name).Msg("profile selected")

	welcome := b.deps.Files.Welcome(ctx, name)
	if welcome == "" {
		welcome = fmt.Sprintf("Выбран профиль %s. Теперь общаюсь от его имени.", name)
	}
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, fmt.Sprintf("✅ Активен профиль: %s\n\n%s", name, welcome))
	if _, err := b.s.Send(edit); err != nil {
		b.log.Error().Err(err).Msg("failed to send profile confirmation")
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	name, ok := b.activeProfile(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	b.log.Info().Int64("user", msg.From.ID).Str("profile", name).Int("chars", len([]rune(msg.Text))).Msg("incoming message")

	if _, err := b.s.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debug().Err(err).Msg("failed to send typing action")
	}

	reply, err := b.deps.Relay.Reply(ctx, name, msg.Text)
	if err != nil {
		if errors.Is(err, relay.ErrNoReply) {
			b.sendMessage(msg.Chat.ID, "❌ Извини, не удалось получить ответ. Попробуй ещё раз.")
		} else {
			b.sendMessage(msg.Chat.ID, "❌ Произошла ошибка, попробуй позже.")
		}
		return
	}
	b.sendMessage(msg.Chat.ID, reply)

	if err := b.deps.Registry.SetLastID(name, strconv.Itoa(msg.MessageID)); err != nil {
		b.log.Warn().Err(err).Str("profile", name).Msg("failed to update last id")
	}
}

// activeProfile returns the user's selected profile or tells the user to
// pick one.
func (b *Bot) activeProfile(ctx context.Context, chatID, userID int64) (string, bool) {
	name, ok, err := b.deps.Sessions.ActiveProfile(ctx, session.UserKey(userID))
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("failed to load active profile")
		b.sendMessage(chatID, "❌ Произошла ошибка, попробуй позже.")
		return "", false
	}
	if !ok || !b.deps.Registry.Has(name) {
		b.sendMessage(chatID, "❓ Сначала выбери профиль с помощью команды /profile")
		return "", false
	}
	return name, true
}

func (b *Bot) profileKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, name := range b.deps.Registry.Names() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(name, profilePrefix+name)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) sendWithKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.profileKeyboard()
	if _, err := b.s.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("failed to send message")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("failed to send message")
	}
}

// tail keeps the last max runes of s, cut at a line start when possible.
func tail(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	out := string(r[len(r)-max:])
	if i := strings.IndexByte(out, '\n'); i >= 0 && i < len(out)-1 {
		out = out[i+1:]
	}
	return out
}
