package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamdynS/agent-contrib/llm"
)

type recordingSender struct{ sent []tgbotapi.MessageConfig }

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type responderFunc func(ctx context.Context, chatID, text string) (string, error)

func (f responderFunc) Respond(ctx context.Context, chatID, text string) (string, error) {
	return f(ctx, chatID, text)
}

func update(chat int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chat}}}
}

func TestHandleReplies(t *testing.T) {
	s := &recordingSender{}
	var gotChat string
	tg := &Telegram{Sender: s, Responder: responderFunc(func(ctx context.Context, chatID, text string) (string, error) {
		gotChat = chatID
		return "echo " + text, nil
	})}

	tg.Handle(context.Background(), update(42, "hi"))
	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(42), s.sent[0].ChatID)
	assert.Equal(t, "echo hi", s.sent[0].Text)
	assert.Equal(t, "42", gotChat)

	tg.Handle(context.Background(), tgbotapi.Update{})
	tg.Handle(context.Background(), update(42, "  "))
	assert.Len(t, s.sent, 1)
}

func TestHandleFailureReply(t *testing.T) {
	s := &recordingSender{}
	tg := &Telegram{Sender: s, Responder: responderFunc(func(ctx context.Context, chatID, text string) (string, error) {
		return "", errors.New("model down")
	})}
	tg.Handle(context.Background(), update(7, "hello"))
	require.Len(t, s.sent, 1)
	assert.Equal(t, FailureReply, s.sent[0].Text)
}

func TestHandleSplitsLongReplies(t *testing.T) {
	s := &recordingSender{}
	long := strings.Repeat("a", MaxMessageLen) + "\n" + "tail"
	tg := &Telegram{Sender: s, Responder: responderFunc(func(ctx context.Context, chatID, text string) (string, error) {
		return long, nil
	})}
	tg.Handle(context.Background(), update(1, "x"))
	require.Len(t, s.sent, 2)
	assert.Equal(t, "tail", s.sent[1].Text)
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"ab", "cd"}, Split("ab\ncd", 3))
	assert.Equal(t, []string{"abc", "def", "g"}, Split("abcdefg", 3))
	assert.Nil(t, Split("", 10))

	parts := Split(strings.Repeat("é", 5), 3)
	for _, p := range parts {
		assert.True(t, len(p) <= 3)
		assert.Equal(t, strings.Repeat("é", len(p)/2), p)
	}
	assert.Equal(t, strings.Repeat("é", 5), strings.Join(parts, ""))
}

type fakeSidekick struct{ resets int }

func (f *fakeSidekick) RunSuperstep(ctx context.Context, message, criteria string, history []llm.Message) ([]llm.Message, error) {
	out := append(append([]llm.Message(nil), history...), llm.UserMessage(message))
	return append(out, llm.AssistantText("answer to "+message), llm.AssistantText("📊 Evaluation: ok")), nil
}

func (f *fakeSidekick) Reset() { f.resets++ }

func TestSidekickResponder(t *testing.T) {
	var made []*fakeSidekick
	r := &SidekickResponder{New: func() (Sidekick, error) {
		sk := &fakeSidekick{}
		made = append(made, sk)
		return sk, nil
	}}
	ctx := context.Background()

	reply, err := r.Respond(ctx, "1", "first")
	require.NoError(t, err)
	assert.Equal(t, "answer to first\n\n📊 Evaluation: ok", reply)

	reply, err = r.Respond(ctx, "1", "second")
	require.NoError(t, err)
	assert.Equal(t, "answer to second\n\n📊 Evaluation: ok", reply)
	assert.Len(t, r.chats["1"].history, 6)

	_, err = r.Respond(ctx, "2", "other")
	require.NoError(t, err)
	assert.Len(t, made, 2)

	reply, err = r.Respond(ctx, "1", "/reset")
	require.NoError(t, err)
	assert.Equal(t, "Conversation reset.", reply)
	assert.Equal(t, 1, made[0].resets)
	assert.Empty(t, r.chats["1"].history)
}

type chunks []string

func (c chunks) Run(ctx context.Context, query string) <-chan string {
	out := make(chan string, len(c))
	for _, s := range c {
		out <- s
	}
	close(out)
	return out
}

func TestResearchResponder(t *testing.T) {
	r := ResearchResponder{Research: chunks{"step 1\n", "step 2\n", "# report"}}
	reply, err := r.Respond(context.Background(), "1", "solar")
	require.NoError(t, err)
	assert.Equal(t, "step 1\nstep 2\n# report", reply)
}
