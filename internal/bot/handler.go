// Package bot implements the Discord-facing half of helpmate: filtering
// incoming messages, running the answer pipeline, and dispatching replies
// within the platform's message-size limit.
//
// The handler is decoupled from the live gateway through the Sender
// interface and a structured Message event, so the gate, chunking, and
// dispatch policy are all unit-testable without a connection.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Sender abstracts the outbound chat operations. Implemented by the
// discordgo adapter in discord.go and by fakes in tests.
type Sender interface {
	// Reply sends text threaded to the given message.
	Reply(channelID, messageID, text string) error

	// Send posts text to the channel, unthreaded.
	Send(channelID, text string) error

	// Typing triggers the typing indicator for the channel.
	Typing(channelID string) error
}

// Answerer produces an answer for a question. Implemented by *rag.Pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Message is a structured inbound chat event.
type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	BotID       string // the bot's own user ID at the time of the event
	Content     string
	MentionsBot bool
}

// Handler processes inbound messages end to end.
//
// Handler has no mutable state; discordgo invokes it from one goroutine per
// event and it is safe for that concurrent use. Ordering of the parts of a
// single answer is guaranteed by the sequential sends within one call.
type Handler struct {
	answerer Answerer
	sender   Sender
	limit    int
	logger   *slog.Logger
}

// NewHandler creates a Handler. limit is the platform's per-message
// character limit.
func NewHandler(answerer Answerer, sender Sender, limit int, logger *slog.Logger) (*Handler, error) {
	if answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		answerer: answerer,
		sender:   sender,
		limit:    limit,
		logger:   logger,
	}, nil
}

// HandleMessage runs the gate, the pipeline, and reply dispatch for one
// inbound message. It never returns an error: every failure is handled at
// this boundary so the event loop keeps serving.
func (h *Handler) HandleMessage(ctx context.Context, msg Message) {
	// The bot must never answer itself; that's a feedback loop, not a
	// missed message.
	if msg.AuthorID == msg.BotID {
		return
	}
	if !msg.MentionsBot {
		return
	}

	question := StripMention(msg.Content, msg.BotID)
	logger := h.logger.With("request_id", uuid.NewString(), "channel_id", msg.ChannelID)
	logger.Info("handling question", "question_length", len(question))

	// Best-effort; the typing indicator is cosmetic.
	if err := h.sender.Typing(msg.ChannelID); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}

	answer, err := h.answerer.Answer(ctx, question)
	if err != nil {
		h.reportFailure(logger, msg.ChannelID, err)
		return
	}

	parts, err := SplitMessage(answer, h.limit)
	if err != nil {
		h.reportFailure(logger, msg.ChannelID, err)
		return
	}

	// First part threads to the question; continuations go to the channel,
	// strictly in order.
	for i, part := range parts {
		var sendErr error
		if i == 0 {
			sendErr = h.sender.Reply(msg.ChannelID, msg.ID, part)
		} else {
			sendErr = h.sender.Send(msg.ChannelID, part)
		}
		if sendErr != nil {
			// No retry; remaining parts are still attempted.
			logger.Error("sending answer part", "part", i, "error", sendErr)
		}
	}

	logger.Info("answered", "parts", len(parts), "answer_length", len(answer))
}

// reportFailure sends exactly one user-visible apology to the channel and
// records the failure. The process keeps serving.
func (h *Handler) reportFailure(logger *slog.Logger, channelID string, cause error) {
	logger.Error("answer pipeline failed", "error", cause)

	apology := fmt.Sprintf("Sorry, I couldn't answer that right now: %v", cause)
	if err := h.sender.Send(channelID, apology); err != nil {
		logger.Error("sending apology", "error", err)
	}
}

// StripMention removes the bot's mention tokens from content and trims the
// surrounding whitespace. Discord renders user mentions as <@ID> or,
// historically for nicknamed users, <@!ID>; both forms are removed.
func StripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	return strings.TrimSpace(content)
}
