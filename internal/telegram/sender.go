// Package telegram posts media groups to a channel and serves the
// operator-facing bot commands.
package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/valenzanico/instagrampostwatcher/internal/composer"
)

// NewBot creates the bot API handle shared by the sender and the command
// loop. The HTTP timeout must be generous enough for video uploads.
func NewBot(token string, sendTimeout time.Duration) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: sendTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

// Sender publishes composed media batches to a single channel.
type Sender struct {
	bot       *tgbotapi.BotAPI
	channelID int64
}

// NewSender creates a Sender posting to channelID.
func NewSender(bot *tgbotapi.BotAPI, channelID int64) *Sender {
	return &Sender{bot: bot, channelID: channelID}
}

// SendMediaBatch uploads the batch as a single media group. The call
// blocks until Telegram acknowledges or the bot's HTTP timeout fires.
func (s *Sender) SendMediaBatch(items []composer.BatchItem) error {
	if len(items) == 0 {
		return fmt.Errorf("empty media batch")
	}

	media := make([]interface{}, 0, len(items))
	for _, item := range items {
		if item.Video {
			v := tgbotapi.NewInputMediaVideo(tgbotapi.FilePath(item.Path))
			v.Caption = item.Caption
			media = append(media, v)
		} else {
			p := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(item.Path))
			p.Caption = item.Caption
			media = append(media, p)
		}
	}

	group := tgbotapi.NewMediaGroup(s.channelID, media)
	if _, err := s.bot.SendMediaGroup(group); err != nil {
		return fmt.Errorf("send media group: %w", err)
	}
	return nil
}
