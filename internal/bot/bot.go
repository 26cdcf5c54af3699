package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"chatlog-bot/internal/config"
	"chatlog-bot/internal/repository"
	"chatlog-bot/internal/service"
)

const (
	cbStats    = "stats"
	cbMessages = "messages"
	cbHelp     = "help"
)

const recentLimit = 5

const helpText = "ℹ️ <b>Available Commands</b>\n\n" +
	"/start - start the bot\n" +
	"/help - show this help message\n" +
	"/stats - show your statistics\n" +
	"/messages - show your recent messages\n\n" +
	"<b>Features</b>\n" +
	"✅ Stores all messages in the database\n" +
	"✅ Tracks user activity\n" +
	"✅ Provides usage statistics\n" +
	"✅ Shows message history"

// Bot glues Telegram updates to the persistence layer. Every update is
// handled in its own goroutine owning its own repository scope.
type Bot struct {
	api   *tgbotapi.BotAPI
	store *repository.Store
	stats *service.StatsService
	cfg   *config.Config
}

func New(token string, store *repository.Store, stats *service.StatsService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	return &Bot{
		api:   api,
		store: store,
		stats: stats,
		cfg:   cfg,
	}, nil
}

// Start receives updates until ctx is cancelled, via webhook when configured
// and long polling otherwise. Handler errors are logged and the update is
// dropped without a reply.
func (b *Bot) Start(ctx context.Context) error {
	var updates tgbotapi.UpdatesChannel
	if b.cfg.WebhookURL != "" {
		ch, err := b.startWebhook(ctx)
		if err != nil {
			return err
		}
		updates = ch
		log.Info().Str("url", b.cfg.WebhookURL).Int("port", b.cfg.Port).Msg("start webhook updates")
	} else {
		updateConfig := tgbotapi.NewUpdate(0)
		updateConfig.Timeout = 60
		updates = b.api.GetUpdatesChan(updateConfig)
		go func() {
			<-ctx.Done()
			b.api.StopReceivingUpdates()
		}()
		log.Info().Msg("start polling updates")
	}

	var wg sync.WaitGroup
	for update := range updates {
		update := update
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.handleUpdate(ctx, update); err != nil {
				log.Error().Err(err).Int("update_id", update.UpdateID).Msg("drop update")
			}
		}()
	}
	wg.Wait()

	return ctx.Err()
}

func (b *Bot) startWebhook(ctx context.Context) (tgbotapi.UpdatesChannel, error) {
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(b.cfg.WebhookURL, "/") + b.cfg.WebhookPath)
	if err != nil {
		return nil, fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return nil, fmt.Errorf("register webhook: %w", err)
	}

	ch := make(chan tgbotapi.Update, b.api.Buffer)
	mux := http.NewServeMux()
	mux.HandleFunc(b.cfg.WebhookPath, func(w http.ResponseWriter, r *http.Request) {
		if !webhookAuthorized(r, b.cfg.WebhookSecret) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ch <- *update
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", b.cfg.Port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("webhook server")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		close(ch)
	}()

	return ch, nil
}

// webhookAuthorized checks the secret token header Telegram echoes back.
// An empty configured secret disables the check.
func webhookAuthorized(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	return r.Header.Get("X-Telegram-Bot-Api-Secret-Token") == secret
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	scope := b.store.Acquire(ctx)
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, scope, update.CallbackQuery)
	case update.Message != nil:
		return b.handleMessage(ctx, scope, update.Message)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, scope *repository.Scope, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	// The user row is resolved before any other repository call in the cycle.
	user, err := scope.Users.GetOrCreate(ctx, identityFrom(msg.From))
	if err != nil {
		return err
	}

	if msg.IsCommand() {
		log.Debug().Int64("telegram_id", msg.From.ID).Str("command", msg.Command()).Msg("handle command")
		return b.handleCommand(ctx, scope, msg, user.ID)
	}

	if msg.Text == "" {
		return nil
	}

	if err := scope.Messages.Save(ctx, user.ID, msg.MessageID, msg.Text, msg.Chat.ID); err != nil {
		return err
	}

	return b.sendHTML(msg.Chat.ID, replyForText(msg.Text, msg.From.FirstName))
}

func (b *Bot) handleCommand(ctx context.Context, scope *repository.Scope, msg *tgbotapi.Message, userID uint) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.sendHTML(msg.Chat.ID, helpText)
	case "stats":
		return b.replyStats(ctx, scope, msg.Chat.ID, msg.From.ID)
	case "messages":
		return b.replyMessages(ctx, scope, msg.Chat.ID, userID)
	default:
		return b.sendHTML(msg.Chat.ID, "Unknown command. See /help for the list of commands.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	text := fmt.Sprintf(
		"👋 Hello %s!\n\nI log every message you send here and can report back your statistics.\n\nUse the buttons below to explore:",
		mention(msg.From),
	)
	return b.sendWithMarkup(msg.Chat.ID, text, startKeyboard())
}

func (b *Bot) handleCallback(ctx context.Context, scope *repository.Scope, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warn().Err(err).Msg("answer callback")
	}

	user, err := scope.Users.GetOrCreate(ctx, identityFrom(cb.From))
	if err != nil {
		return err
	}

	chatID := cb.Message.Chat.ID
	switch cb.Data {
	case cbStats:
		return b.replyStats(ctx, scope, chatID, cb.From.ID)
	case cbMessages:
		return b.replyMessages(ctx, scope, chatID, user.ID)
	case cbHelp:
		return b.sendHTML(chatID, helpText)
	}
	return nil
}

// replyStats looks up stats by the Telegram id, not the row id.
func (b *Bot) replyStats(ctx context.Context, scope *repository.Scope, chatID, telegramID int64) error {
	stats, err := scope.Users.Stats(ctx, telegramID)
	if err != nil {
		return err
	}
	return b.sendHTML(chatID, b.stats.BuildStats(stats))
}

func (b *Bot) replyMessages(ctx context.Context, scope *repository.Scope, chatID int64, userID uint) error {
	messages, err := scope.Messages.RecentByUser(ctx, userID, recentLimit)
	if err != nil {
		return err
	}
	return b.sendHTML(chatID, b.stats.BuildRecent(messages))
}

// SendDigests pushes a short activity summary to every active user.
func (b *Bot) SendDigests(ctx context.Context) error {
	scope := b.store.Acquire(ctx)
	users, err := scope.Users.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		count, err := scope.Messages.CountByUser(ctx, user.ID)
		if err != nil {
			log.Warn().Err(err).Int64("telegram_id", user.TelegramID).Msg("count messages for digest")
			continue
		}
		if count == 0 {
			continue
		}
		if err := b.sendHTML(user.TelegramID, b.stats.BuildDigest(user, count)); err != nil {
			log.Warn().Err(err).Int64("telegram_id", user.TelegramID).Msg("send digest")
		}
	}
	return nil
}

func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func startKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📊 My Stats", cbStats)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("💬 Recent Messages", cbMessages)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❓ Help", cbHelp)),
	)
}

func identityFrom(from *tgbotapi.User) repository.Identity {
	return repository.Identity{
		TelegramID:   from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
	}
}

func replyForText(text, firstName string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "hello", "hi", "hey":
		name := strings.TrimSpace(firstName)
		if name == "" {
			name = "there"
		}
		return fmt.Sprintf("👋 Hello %s! Your message is saved. 📊", html.EscapeString(name))
	}
	return "✅ Message saved!\n\n💡 Send /stats to see your statistics\n💡 Send /messages to see your recent messages"
}

func mention(from *tgbotapi.User) string {
	name := strings.TrimSpace(from.FirstName)
	if name == "" && from.UserName != "" {
		name = "@" + from.UserName
	}
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, from.ID, html.EscapeString(name))
}
