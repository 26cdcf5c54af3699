package service

import (
	"fmt"
	"html"
	"strings"

	"chatlog-bot/internal/model"
	"chatlog-bot/internal/repository"
)

const previewRunes = 50

// StatsService renders the textual replies for statistics and message
// history requests.
type StatsService struct{}

func NewStatsService() *StatsService {
	return &StatsService{}
}

// BuildStats formats the reply for a stats request.
func (s *StatsService) BuildStats(stats *repository.UserStats) string {
	if stats == nil {
		return "No statistics found. Send a message first!"
	}

	username := stats.User.Username
	if username == "" {
		username = "N/A"
	}
	status := "Inactive"
	if stats.User.IsActive {
		status = "Active"
	}

	var b strings.Builder
	b.WriteString("📊 <b>Your Statistics</b>\n\n")
	b.WriteString(fmt.Sprintf("👤 User ID: <code>%d</code>\n", stats.User.TelegramID))
	b.WriteString(fmt.Sprintf("📝 Username: @%s\n", html.EscapeString(username)))
	b.WriteString(fmt.Sprintf("📧 Messages Sent: %d\n", stats.MessageCount))
	b.WriteString(fmt.Sprintf("📅 Account Created: %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("✅ Status: %s", status))
	return b.String()
}

// BuildRecent formats the reply for a message history request. Messages come
// in newest-first and are printed oldest-first, bodies trimmed to a preview.
func (s *StatsService) BuildRecent(messages []model.Message) string {
	if len(messages) == 0 {
		return "No messages found. Start chatting!"
	}

	var b strings.Builder
	b.WriteString("💬 <b>Your Recent Messages</b>\n\n")
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		b.WriteString(fmt.Sprintf("🕐 %s - %s\n", msg.CreatedAt.Format("15:04:05"), html.EscapeString(preview(msg.Text))))
	}
	return b.String()
}

// BuildDigest formats the periodic activity summary for one user.
func (s *StatsService) BuildDigest(user model.User, count int64) string {
	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("📊 Hi %s! You have sent <b>%d</b> messages so far. Send /stats for details.",
		html.EscapeString(name), count)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
