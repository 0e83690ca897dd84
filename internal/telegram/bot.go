package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dedida26/library/internal/db"
	"github.com/dedida26/library/internal/models"
	"github.com/dedida26/library/internal/service"
)

const cbReservePrefix = "reserve:"

// sender: часть BotAPI, через которую бот отвечает.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	bot     *tgbotapi.BotAPI
	out     sender
	library *service.Library
	auth    *service.Auth
	log     *slog.Logger
}

func NewBot(token string, library *service.Library, auth *service.Auth, logger *slog.Logger) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	logger.Info("telegram: авторизован", "username", bot.Self.UserName)

	b := newBot(bot, library, auth, logger)
	b.bot = bot
	return b, nil
}

func newBot(out sender, library *service.Library, auth *service.Auth, logger *slog.Logger) *Bot {
	return &Bot{
		out:     out,
		library: library,
		auth:    auth,
		log:     logger,
	}
}

// Start крутит главный цикл до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
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
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !msg.IsCommand() {
		b.sendMessage(chatID, helpText)
		return
	}

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, "Привет! Это библиотека.\n\n"+helpText)
	case "books":
		b.sendBooks(ctx, chatID)
	case "reservations":
		b.sendReservations(ctx, chatID, msg.From)
	default:
		b.sendMessage(chatID, helpText)
	}
}

const helpText = "/books — список книг, резервирование кнопкой\n/reservations — мои резервации"

func (b *Bot) sendBooks(ctx context.Context, chatID int64) {
	books, err := b.library.ListBooks(ctx, nil)
	if err != nil {
		b.log.ErrorContext(ctx, "telegram: list books", "err", err)
		b.sendMessage(chatID, "❌ Не удалось получить список книг.")
		return
	}
	if len(books) == 0 {
		b.sendMessage(chatID, "😔 Книг пока нет.")
		return
	}

	text, markup := booksMessage(books)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) sendReservations(ctx context.Context, chatID int64, from *tgbotapi.User) {
	userID, err := b.userID(ctx, from)
	if err != nil {
		b.log.ErrorContext(ctx, "telegram: resolve user", "err", err)
		b.sendMessage(chatID, "❌ Не удалось определить пользователя.")
		return
	}

	items, err := b.library.ListReservations(ctx, db.ReservationFilter{UserID: &userID})
	if err != nil {
		b.log.ErrorContext(ctx, "telegram: list reservations", "err", err)
		b.sendMessage(chatID, "❌ Не удалось получить резервации.")
		return
	}
	b.sendMessage(chatID, reservationsText(items))
}

// handleCallback обрабатывает нажатие кнопки "зарезервировать".
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	bookID, ok := parseReserveCallback(cb.Data)
	if !ok {
		b.log.WarnContext(ctx, "telegram: unknown callback", "data", cb.Data)
		b.request(tgbotapi.NewCallback(cb.ID, ""))
		return
	}
	b.request(tgbotapi.NewCallback(cb.ID, "Резервирую…"))

	userID, err := b.userID(ctx, cb.From)
	if err != nil {
		b.log.ErrorContext(ctx, "telegram: resolve user", "err", err)
		b.sendMessage(chatID, "❌ Не удалось определить пользователя.")
		return
	}

	r, err := b.library.Reserve(ctx, bookID, userID, service.ReserveInput{})
	switch {
	case errors.Is(err, service.ErrNotFound):
		b.sendMessage(chatID, "⚠️ Книга не найдена. Обнови список: /books")
	case err != nil:
		b.log.ErrorContext(ctx, "telegram: reserve", "book_id", bookID, "err", err)
		b.sendMessage(chatID, "❌ Не удалось зарезервировать книгу.")
	default:
		b.sendMessage(chatID, fmt.Sprintf("✅ Книга #%d зарезервирована на %s.\nМои резервации: /reservations", r.BookID, r.ReservationDate))
	}
}

func (b *Bot) userID(ctx context.Context, from *tgbotapi.User) (int64, error) {
	if from == nil {
		return 0, fmt.Errorf("update without sender: %w", service.ErrAuthentication)
	}
	return b.auth.TelegramUser(ctx, from.ID, from.UserName)
}

func booksMessage(books []models.Book) (string, tgbotapi.InlineKeyboardMarkup) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(books))
	for _, book := range books {
		label := fmt.Sprintf("%s — %s", book.Title, book.Author)
		if book.IsReserved {
			label += " (зарезервирована)"
		}
		btn := tgbotapi.NewInlineKeyboardButtonData(label, cbReservePrefix+strconv.FormatInt(book.ID, 10))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	text := fmt.Sprintf("📚 Книг: %d\nНажми на книгу, чтобы зарезервировать её на сегодня.", len(books))
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func parseReserveCallback(data string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, cbReservePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func reservationsText(items []models.ReservationView) string {
	if len(items) == 0 {
		return "У тебя нет резерваций. Список книг: /books"
	}
	var sb strings.Builder
	sb.WriteString("📖 Мои резервации:\n")
	for _, r := range items {
		fmt.Fprintf(&sb, "• %s — %s, %s\n", r.BookTitle, r.BookAuthor, r.ReservationDate)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.out.Send(c); err != nil {
		b.log.Warn("telegram: send failed", "err", err)
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.out.Request(c); err != nil {
		b.log.Warn("telegram: request failed", "err", err)
	}
}

// sendMessage отправляет текст
func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}
