package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackReplyRules(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		contains string
	}{
		{"insurance", "do you take my insurance?", "CDCP"},
		{"coverage", "what coverage do you accept", "CDCP"},
		{"cleaning price", "how much does a cleaning cost?", "$235"},
		{"filling price", "price for a filling?", "$300-$600"},
		{"cavities price", "what do cavities cost to fix", "$300-$600"},
		{"hours", "when are you open?", "Monday - Friday"},
		{"booking", "I want to book an appointment", "schedule an appointment"},
		{"default", "tell me a joke", "How can I assist you today?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FallbackReply(tt.message), tt.contains)
		})
	}
}

func TestFallbackCleaningWithoutPriceIsNotPriced(t *testing.T) {
	// "cleaning" alone does not hit the price rule; both keyword groups
	// must match.
	reply := FallbackReply("do you do cleanings?")
	assert.NotContains(t, reply, "$235")
}

type stubGen struct {
	reply string
	err   error
}

func (s *stubGen) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

type memChatRepo struct {
	messages []Message
	failSave bool
}

func (m *memChatRepo) SaveMessage(ctx context.Context, msg Message) error {
	if m.failSave {
		return errors.New("save failed")
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memChatRepo) ListSession(ctx context.Context, sessionID string) ([]Message, error) {
	var out []Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func TestReplyAssistedStripsMarkup(t *testing.T) {
	repo := &memChatRepo{}
	svc := NewService(&stubGen{reply: "**Welcome!** We are open *every weekday*."}, repo, time.Second, zerolog.Nop())

	reply := svc.Reply(context.Background(), "sess-1", "hi")
	assert.Equal(t, "Welcome! We are open every weekday.", reply)

	require.Len(t, repo.messages, 2)
	assert.False(t, repo.messages[0].FromBot)
	assert.Equal(t, "hi", repo.messages[0].Text)
	assert.True(t, repo.messages[1].FromBot)
}

func TestReplyAssistedFailureUsesFAQ(t *testing.T) {
	svc := NewService(&stubGen{err: errors.New("down")}, &memChatRepo{}, time.Second, zerolog.Nop())

	reply := svc.Reply(context.Background(), "sess-1", "what are your hours?")
	assert.Contains(t, reply, "Monday - Friday")
}

func TestReplySaveFailureStillAnswers(t *testing.T) {
	repo := &memChatRepo{failSave: true}
	svc := NewService(nil, repo, time.Second, zerolog.Nop())

	reply := svc.Reply(context.Background(), "sess-1", "hours?")
	assert.NotEmpty(t, reply)
}

func TestHistoryFiltersBySession(t *testing.T) {
	repo := &memChatRepo{}
	svc := NewService(nil, repo, time.Second, zerolog.Nop())

	svc.Reply(context.Background(), "a", "hours?")
	svc.Reply(context.Background(), "b", "insurance?")

	history, err := svc.History(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
