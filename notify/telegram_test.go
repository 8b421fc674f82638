package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverwire/curator/core"
)

type fakeBotClient struct {
	sent []tgbotapi.Chattable
	next tgbotapi.Message
	err  error
}

func (f *fakeBotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	return f.next, nil
}

func previewItem() *core.StagingItem {
	return &core.StagingItem{
		Id:          42,
		Fingerprint: "a1b2c3d4e5f60708",
		Type:        core.TypeNews,
		Title:       "FCA fines payment firm £12m over AML failings",
		Body:        "# FCA fines payment firm\n\nThe Financial Conduct Authority announced a penalty over anti-money-laundering control failures.",
		Status:      core.StatusPending,
		Score:       82,
		Category:    "aml",
		Priority:    core.PriorityHigh,
		SourceName:  "FCA",
		SourceURL:   "https://fca.org.uk/news/fine",
	}
}

func TestSendPreview(t *testing.T) {
	client := &fakeBotClient{next: tgbotapi.Message{MessageID: 7}}
	notifier, err := NewTelegramNotifier(client, -100123)
	require.NoError(t, err)

	ref, err := notifier.SendPreview(context.Background(), previewItem())
	require.NoError(t, err)
	assert.Equal(t, "tg:-100123:7", ref)

	require.Len(t, client.sent, 1)
	msg, ok := client.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok, "expected a MessageConfig, got %T", client.sent[0])
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.True(t, msg.DisableWebPagePreview)
	assert.Contains(t, msg.Text, "FCA fines payment firm")
}

func TestSendPreviewError(t *testing.T) {
	client := &fakeBotClient{err: errors.New("bot api: too many requests")}
	notifier, err := NewTelegramNotifier(client, 555)
	require.NoError(t, err)

	ref, err := notifier.SendPreview(context.Background(), previewItem())
	assert.Error(t, err)
	assert.Empty(t, ref)
}

func TestSendPreviewCancelledContext(t *testing.T) {
	client := &fakeBotClient{}
	notifier, err := NewTelegramNotifier(client, 555)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = notifier.SendPreview(ctx, previewItem())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.sent, "no send after cancellation")
}

func TestNewTelegramNotifierValidation(t *testing.T) {
	_, err := NewTelegramNotifier(nil, 555)
	assert.Error(t, err)

	_, err = NewTelegramNotifier(&fakeBotClient{}, 0)
	assert.Error(t, err)
}

func TestFormatPreview(t *testing.T) {
	item := previewItem()
	text := FormatPreview(item)

	assert.Contains(t, text, "<b>FCA fines payment firm £12m over AML failings</b>")
	assert.Contains(t, text, "FCA | aml | score 82")
	assert.Contains(t, text, `<a href="https://fca.org.uk/news/fine">Source</a>`)
	assert.Contains(t, text, "<code>42</code>")
	assert.Contains(t, text, "🟠")
}

func TestFormatPreviewEscapesHTML(t *testing.T) {
	item := previewItem()
	item.Title = `New <reporting> rules & "thresholds"`
	item.Body = "Contains <i>markup</i> that must not render."

	text := FormatPreview(item)
	assert.Contains(t, text, "New &lt;reporting&gt; rules &amp; &#34;thresholds&#34;")
	assert.Contains(t, text, "&lt;i&gt;markup&lt;/i&gt;")
	assert.NotContains(t, text, "<i>markup</i>")
}

func TestFormatPreviewTruncatesBody(t *testing.T) {
	item := previewItem()
	item.Body = strings.Repeat("regulatory wording ", 100)

	text := FormatPreview(item)
	assert.Contains(t, text, "…")
	assert.Less(t, len(text), 2000)
}

func TestFormatPreviewCriticalMarker(t *testing.T) {
	item := previewItem()
	item.Priority = core.PriorityCritical
	assert.Contains(t, FormatPreview(item), "🔴")

	item.Priority = core.PriorityNormal
	assert.Contains(t, FormatPreview(item), "📋")
}

func TestNopNotifier(t *testing.T) {
	notifier := NewNopNotifier()

	ref, err := notifier.SendPreview(context.Background(), previewItem())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "log:"))

	other, err := notifier.SendPreview(context.Background(), previewItem())
	require.NoError(t, err)
	assert.NotEqual(t, ref, other, "refs are unique per send")
}
