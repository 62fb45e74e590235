package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordAdapter implements Adapter for Discord using the bot gateway.
type DiscordAdapter struct {
	token   string
	session *discordgo.Session
	handler MessageHandler
	logger  *zap.Logger
}

// NewDiscordAdapter creates a Discord gateway adapter.
func NewDiscordAdapter(token string, logger *zap.Logger) *DiscordAdapter {
	return &DiscordAdapter{token: token, logger: logger}
}

func (a *DiscordAdapter) Platform() string { return "discord" }

func (a *DiscordAdapter) OnMessage(h MessageHandler) { a.handler = h }

// Connect opens the Discord gateway websocket.
func (a *DiscordAdapter) Connect(_ context.Context) error {
	session, err := discordgo.New("Bot " + a.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	a.session = session

	a.session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages
	a.session.AddHandler(a.onMessageCreate)

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}

	guildCount := len(a.session.State.Guilds)
	if guildCount == 0 {
		a.logger.Warn("discord bot not added to any server — invite it first")
	}

	a.logger.Info("discord adapter connected",
		zap.String("user", a.session.State.User.Username),
		zap.Int("guilds", guildCount))
	return nil
}

func (a *DiscordAdapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from the bot itself
	if m.Author.ID == s.State.User.ID {
		return
	}
	if a.handler == nil {
		return
	}

	a.handler(&InboundMessage{
		Platform:  "discord",
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		UserName:  m.Author.Username,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		ReplyTo:   m.ChannelID,
	})
}

// Send posts a message to a Discord channel.
func (a *DiscordAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	if _, err := a.session.ChannelMessageSend(msg.ChannelID, msg.Content); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// Close shuts down the Discord session.
func (a *DiscordAdapter) Close() error {
	if a.session != nil {
		return a.session.Close()
	}
	return nil
}
