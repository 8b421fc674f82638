package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/coverwire/curator/core"
)

// previewExcerptLimit caps the body excerpt length in runes. Telegram
// rejects messages above 4096 characters.
const previewExcerptLimit = 400

// BotClient is the slice of the Telegram bot API the notifier needs.
// *tgbotapi.BotAPI satisfies it.
type BotClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts HTML review previews to a Telegram chat.
type TelegramNotifier struct {
	client BotClient
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier creates a notifier posting to the given chat.
func NewTelegramNotifier(client BotClient, chatID int64) (*TelegramNotifier, error) {
	if client == nil {
		return nil, fmt.Errorf("notify: bot client is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("notify: chat id is required")
	}
	return &TelegramNotifier{
		client: client,
		chatID: chatID,
		logger: slog.Default().With("component", "notify"),
	}, nil
}

// SendPreview posts the item preview and returns a reference naming the
// chat and message it landed in.
func (t *TelegramNotifier) SendPreview(ctx context.Context, item *core.StagingItem) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatPreview(item))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := t.client.Send(msg)
	if err != nil {
		return "", fmt.Errorf("send preview for item %d: %w", uint64(item.Id), err)
	}

	ref := fmt.Sprintf("tg:%d:%d", t.chatID, sent.MessageID)
	t.logger.Debug("sent review preview", "id", uint64(item.Id), "ref", ref)
	return ref, nil
}

// FormatPreview renders the reviewer-facing message for a staged item.
func FormatPreview(item *core.StagingItem) string {
	var b strings.Builder

	b.WriteString(priorityMarker(item.Priority))
	b.WriteString(" <b>")
	b.WriteString(html.EscapeString(item.Title))
	b.WriteString("</b>\n")
	fmt.Fprintf(&b, "%s | %s | score %d | %s\n\n",
		html.EscapeString(item.SourceName), html.EscapeString(item.Category),
		item.Score, item.DetectionType)

	if body := excerpt(item.Body, previewExcerptLimit); body != "" {
		b.WriteString("<i>")
		b.WriteString(html.EscapeString(body))
		b.WriteString("</i>\n\n")
	}

	if item.SourceURL != "" {
		fmt.Fprintf(&b, "<a href=%q>Source</a>\n", item.SourceURL)
	}
	fmt.Fprintf(&b, "Review: approve, reject, or request changes for item <code>%d</code>", uint64(item.Id))

	return b.String()
}

func priorityMarker(p core.Priority) string {
	switch p {
	case core.PriorityCritical:
		return "🔴"
	case core.PriorityHigh:
		return "🟠"
	default:
		return "📋"
	}
}

// excerpt flattens whitespace and cuts at a word boundary.
func excerpt(text string, limit int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	cut := limit
	for cut > 0 && runes[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	return string(runes[:cut]) + "…"
}
