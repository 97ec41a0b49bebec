package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/valenzanico/instagrampostwatcher/internal/store"
)

// PostLister is the read-only view of the post store the commands need.
type PostLister interface {
	ListAll(ctx context.Context) ([]store.Post, error)
}

// Commands serves the bot's operator commands: /hello and /savedposts.
type Commands struct {
	bot       *tgbotapi.BotAPI
	channelID int64
	account   string
	posts     PostLister
}

// NewCommands creates the command handler.
func NewCommands(bot *tgbotapi.BotAPI, channelID int64, account string, posts PostLister) *Commands {
	return &Commands{
		bot:       bot,
		channelID: channelID,
		account:   account,
		posts:     posts,
	}
}

// Run polls for updates and dispatches commands until ctx is cancelled.
func (c *Commands) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	log.Printf("[telegram] Command loop started as @%s", c.bot.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.handle(ctx, update)
		}
	}
}

func (c *Commands) handle(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}

	switch update.Message.Command() {
	case "hello":
		c.reply(update.Message,
			fmt.Sprintf("Ciao, questo bot controlla quando %s pubblica nuovi post su Instagram e li inoltra su Telegram e Ghost!", c.account))
	case "savedposts":
		c.savedPosts(ctx, update.Message)
	}
}

// savedPosts lists the stored posts; restricted to channel admins.
func (c *Commands) savedPosts(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || !c.isChannelAdmin(msg.From.ID) {
		c.reply(msg, "Solo gli admin del canale possono usare questo comando.")
		return
	}

	posts, err := c.posts.ListAll(ctx)
	if err != nil {
		log.Printf("[telegram] List saved posts failed: %v", err)
		c.reply(msg, "Errore durante la lettura del database.")
		return
	}

	if len(posts) == 0 {
		c.reply(msg, "Nessun post salvato nel database.")
		return
	}

	var b strings.Builder
	b.WriteString("Post salvati nel database:\n")
	for _, p := range posts {
		if p.Caption != "" {
			b.WriteString(fmt.Sprintf("- %s: %s...\n", p.Shortcode, truncate(p.Caption, 50)))
		} else {
			b.WriteString(fmt.Sprintf("- %s: (no description)\n", p.Shortcode))
		}
	}
	c.reply(msg, b.String())
}

func (c *Commands) isChannelAdmin(userID int64) bool {
	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: c.channelID,
			UserID: userID,
		},
	})
	if err != nil {
		log.Printf("[telegram] Cannot verify admin permissions: %v", err)
		return false
	}
	return member.Status == "administrator" || member.Status == "creator"
}

func (c *Commands) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := c.bot.Send(reply); err != nil {
		log.Printf("[telegram] Reply failed: %v", err)
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
