package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/helpmate-bot/helpmate/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sentCall records one outbound send for order verification.
type sentCall struct {
	op        string // "reply", "send", "typing"
	channelID string
	messageID string
	text      string
}

// fakeSender implements Sender and records the exact call sequence.
type fakeSender struct {
	calls     []sentCall
	replyErr  error
	sendErr   error
	typingErr error
}

func (f *fakeSender) Reply(channelID, messageID, text string) error {
	f.calls = append(f.calls, sentCall{op: "reply", channelID: channelID, messageID: messageID, text: text})
	return f.replyErr
}

func (f *fakeSender) Send(channelID, text string) error {
	f.calls = append(f.calls, sentCall{op: "send", channelID: channelID, text: text})
	return f.sendErr
}

func (f *fakeSender) Typing(channelID string) error {
	f.calls = append(f.calls, sentCall{op: "typing", channelID: channelID})
	return f.typingErr
}

// messages returns calls excluding typing indicators.
func (f *fakeSender) messages() []sentCall {
	var out []sentCall
	for _, c := range f.calls {
		if c.op != "typing" {
			out = append(out, c)
		}
	}
	return out
}

// fakeAnswerer implements Answerer.
type fakeAnswerer struct {
	answer       string
	err          error
	calls        int
	lastQuestion string
}

func (f *fakeAnswerer) Answer(_ context.Context, question string) (string, error) {
	f.calls++
	f.lastQuestion = question
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestHandler(t *testing.T, answerer Answerer, sender Sender, limit int) *Handler {
	t.Helper()
	h, err := NewHandler(answerer, sender, limit, log.NewNop())
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

// mention builds a Message that mentions the bot.
func mention(content string) Message {
	return Message{
		ID:          "msg-1",
		ChannelID:   "chan-1",
		AuthorID:    "user-9",
		BotID:       "123",
		Content:     content,
		MentionsBot: true,
	}
}

func TestNewHandler_Validation(t *testing.T) {
	a := &fakeAnswerer{}
	s := &fakeSender{}

	if _, err := NewHandler(nil, s, 2000, nil); err == nil {
		t.Error("expected error for nil answerer")
	}
	if _, err := NewHandler(a, nil, 2000, nil); err == nil {
		t.Error("expected error for nil sender")
	}
	if _, err := NewHandler(a, s, 0, nil); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("err = %v, want ErrInvalidLimit", err)
	}
}

func TestHandleMessage_IgnoresOwnMessages(t *testing.T) {
	answerer := &fakeAnswerer{answer: "should never appear"}
	sender := &fakeSender{}
	h := newTestHandler(t, answerer, sender, 2000)

	msg := mention("<@123> hi")
	msg.AuthorID = msg.BotID
	h.HandleMessage(context.Background(), msg)

	if answerer.calls != 0 {
		t.Error("pipeline ran for the bot's own message")
	}
	if len(sender.calls) != 0 {
		t.Errorf("sends occurred for the bot's own message: %v", sender.calls)
	}
}

func TestHandleMessage_IgnoresUnmentionedMessages(t *testing.T) {
	answerer := &fakeAnswerer{answer: "nope"}
	sender := &fakeSender{}
	h := newTestHandler(t, answerer, sender, 2000)

	msg := mention("just chatting")
	msg.MentionsBot = false
	h.HandleMessage(context.Background(), msg)

	if answerer.calls != 0 || len(sender.calls) != 0 {
		t.Error("unmentioned message triggered the pipeline")
	}
}

func TestHandleMessage_StripsMentionFromQuestion(t *testing.T) {
	answerer := &fakeAnswerer{answer: "an answer"}
	sender := &fakeSender{}
	h := newTestHandler(t, answerer, sender, 2000)

	h.HandleMessage(context.Background(), mention("<@!123> what is st.button?"))

	if answerer.lastQuestion != "what is st.button?" {
		t.Errorf("question = %q, want mention stripped and trimmed", answerer.lastQuestion)
	}
}

func TestHandleMessage_EmptyQuestionStillAnswered(t *testing.T) {
	answerer := &fakeAnswerer{answer: "you rang?"}
	sender := &fakeSender{}
	h := newTestHandler(t, answerer, sender, 2000)

	h.HandleMessage(context.Background(), mention("<@123>"))

	if answerer.calls != 1 {
		t.Fatal("empty question must still invoke the pipeline")
	}
	if answerer.lastQuestion != "" {
		t.Errorf("question = %q, want empty", answerer.lastQuestion)
	}
}

func TestHandleMessage_SinglePartRepliesThreaded(t *testing.T) {
	answerer := &fakeAnswerer{answer: "short answer"}
	sender := &fakeSender{}
	h := newTestHandler(t, answerer, sender, 2000)

	h.HandleMessage(context.Background(), mention("<@123> q"))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d sends, want 1: %v", len(msgs), msgs)
	}
	if msgs[0].op != "reply" || msgs[0].messageID != "msg-1" || msgs[0].text != "short answer" {
		t.Errorf("send = %+v, want threaded reply to msg-1", msgs[0])
	}
}

func TestHandleMessage_TwoPartDispatchOrder(t *testing.T) {
	answerer := &fakeAnswerer{answer: strings.Repeat("a", 2500)}
	sender := &fakeSender{}
	h := newTestHandler(t, answerer, sender, 2000)

	h.HandleMessage(context.Background(), mention("<@123> long one"))

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d sends, want 2", len(msgs))
	}
	if msgs[0].op != "reply" || len(msgs[0].text) != 2000 {
		t.Errorf("first send = %s/%d chars, want reply with 2000", msgs[0].op, len(msgs[0].text))
	}
	if msgs[1].op != "send" || len(msgs[1].text) != 500 {
		t.Errorf("second send = %s/%d chars, want channel send with 500", msgs[1].op, len(msgs[1].text))
	}
	if msgs[0].text+msgs[1].text != answerer.answer {
		t.Error("dispatched parts do not reassemble the answer")
	}
}

func TestHandleMessage_PipelineFailureSendsOneApology(t *testing.T) {
	answerer := &fakeAnswerer{err: errors.New("embedding service unavailable")}
	sender := &fakeSender{}
	h := newTestHandler(t, answerer, sender, 2000)

	h.HandleMessage(context.Background(), mention("<@123> q"))

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d sends, want exactly one apology", len(msgs))
	}
	if msgs[0].op != "send" {
		t.Errorf("apology op = %s, want unthreaded channel send", msgs[0].op)
	}
	if !strings.Contains(msgs[0].text, "Sorry") || !strings.Contains(msgs[0].text, "embedding service unavailable") {
		t.Errorf("apology = %q, want failure description", msgs[0].text)
	}
}

func TestHandleMessage_ReplyFailureStillSendsRemainingParts(t *testing.T) {
	answerer := &fakeAnswerer{answer: strings.Repeat("b", 2500)}
	sender := &fakeSender{replyErr: errors.New("rate limited")}
	h := newTestHandler(t, answerer, sender, 2000)

	h.HandleMessage(context.Background(), mention("<@123> q"))

	msgs := sender.messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d sends, want both parts attempted", len(msgs))
	}
	if msgs[1].op != "send" {
		t.Errorf("second part not attempted after reply failure: %+v", msgs[1])
	}
}

func TestHandleMessage_TypingFailureIsIgnored(t *testing.T) {
	answerer := &fakeAnswerer{answer: "fine"}
	sender := &fakeSender{typingErr: errors.New("forbidden")}
	h := newTestHandler(t, answerer, sender, 2000)

	h.HandleMessage(context.Background(), mention("<@123> q"))

	if msgs := sender.messages(); len(msgs) != 1 || msgs[0].text != "fine" {
		t.Errorf("typing failure must not affect the answer: %v", msgs)
	}
}

func TestStripMention(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "nickname form", content: "<@!123> what is st.button?", want: "what is st.button?"},
		{name: "plain form", content: "<@123> what is st.button?", want: "what is st.button?"},
		{name: "trailing mention", content: "what is st.button? <@123>", want: "what is st.button?"},
		{name: "mention only", content: "<@123>", want: ""},
		{name: "other user untouched", content: "<@456> hello", want: "<@456> hello"},
		{name: "surrounding whitespace", content: "  <@123>   spaced   ", want: "spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMention(tt.content, "123"); got != tt.want {
				t.Errorf("StripMention(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
