package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// discordSender adapts a discordgo session to the Sender interface.
type discordSender struct {
	session *discordgo.Session
}

func (d *discordSender) Reply(channelID, messageID, text string) error {
	_, err := d.session.ChannelMessageSendReply(channelID, text, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	})
	return err
}

func (d *discordSender) Send(channelID, text string) error {
	_, err := d.session.ChannelMessageSend(channelID, text)
	return err
}

func (d *discordSender) Typing(channelID string) error {
	return d.session.ChannelTyping(channelID)
}

// Bot owns the Discord gateway connection and routes message events into
// a Handler.
type Bot struct {
	session *discordgo.Session
	handler *Handler
	logger  *slog.Logger
}

// New creates a Bot for the given token. The session is configured but not
// opened; call Start.
func New(token string, answerer Answerer, limit int, logger *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	// Reading message content requires the privileged intent.
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	handler, err := NewHandler(answerer, &discordSender{session: session}, limit, logger)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		session: session,
		handler: handler,
		logger:  logger,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)

	return b, nil
}

// Start opens the gateway connection. It returns once the connection is
// established; events are delivered on discordgo's goroutines until Close.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	return nil
}

// Close shuts down the gateway connection.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("logged in", "username", r.User.Username, "user_id", r.User.ID)
}

// onMessageCreate translates a gateway event into a structured Message and
// hands it to the Handler. Each event arrives on its own goroutine.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State.User == nil {
		// Events can't be attributed before the Ready payload.
		return
	}
	botID := s.State.User.ID

	b.handler.HandleMessage(context.Background(), Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.Author.ID,
		BotID:       botID,
		Content:     m.Content,
		MentionsBot: mentionsUser(m.Mentions, botID),
	})
}

// mentionsUser reports whether the given user appears in a message's
// mention list.
func mentionsUser(mentions []*discordgo.User, userID string) bool {
	for _, u := range mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}
