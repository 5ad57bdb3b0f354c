package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/triage"
)

const chatPromptTemplate = `You are enamAI, a helpful dental assistant chatbot for Dental AI Clinic.

Clinic Information:
- Name: Dental AI Clinic
- Hours: Monday-Friday 8:00 AM - 6:00 PM, Saturday 9:00 AM - 2:00 PM, Sunday Closed
- Services: Cleanings ($235), Fillings ($300-600), Root canals, Extractions, Invisalign, Dentures, Crown/Bridge work
- Insurance: Accepts CDCP and most insurances, but NOT provincial insurance
- Emergency care available outside regular hours

User message: "%s"

Respond as enamAI in a helpful, professional, and friendly manner. Keep responses concise but informative.
If the user describes symptoms, ask follow-up questions to better understand their condition.
Always encourage users to book an appointment for proper evaluation when appropriate.

IMPORTANT: Use only plain text in your response. Do not use any markdown formatting like bold, italic, bullet points, asterisks, or special characters for emphasis. Use simple line breaks for lists.`

// faqRule answers a question deterministically when every listed group of
// keywords has at least one hit. Rules run top to bottom, first hit wins.
type faqRule struct {
	allOf [][]string
	reply string
}

var faqRules = []faqRule{
	{
		allOf: [][]string{{"insurance", "coverage"}},
		reply: "We cover CDCP and most insurances. However, we do not accept provincial insurance. Please check with a receptionist for your exact coverage details.",
	},
	{
		allOf: [][]string{{"cleaning"}, {"cost", "price"}},
		reply: "A dental cleaning costs $235. This includes a comprehensive cleaning and examination by our dental hygienist.",
	},
	{
		allOf: [][]string{{"filling", "cavities"}, {"cost", "price"}},
		reply: "Fillings for cavities cost between $300-$600, depending on the size and location of the cavity. Our dentist will provide a detailed estimate during your consultation.",
	},
	{
		allOf: [][]string{{"hours", "time", "open"}},
		reply: "Our clinic hours are:\n\nMonday - Friday: 8:00 AM - 6:00 PM\nSaturday: 9:00 AM - 2:00 PM\nSunday: Closed\n\nWe also offer emergency appointments outside regular hours.",
	},
	{
		allOf: [][]string{{"appointment", "book", "schedule"}},
		reply: "I'd be happy to help you schedule an appointment! You can use our online booking system, or call our front desk during business hours.",
	},
}

const defaultReply = "I'm here to help with questions about Dental AI Clinic! You can ask me about our services, pricing, hours, insurance, or booking appointments. How can I assist you today?"

// FallbackReply answers from the deterministic FAQ table.
func FallbackReply(userMessage string) string {
	lower := strings.ToLower(userMessage)
	for _, rule := range faqRules {
		if rule.matches(lower) {
			return rule.reply
		}
	}
	return defaultReply
}

func (r faqRule) matches(lower string) bool {
	for _, group := range r.allOf {
		hit := false
		for _, kw := range group {
			if strings.Contains(lower, kw) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Message is one chat turn, persisted per session.
type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"sessionId"`
	FromBot   bool      `json:"isBot"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"timestamp"`
}

// Repository stores chat history.
type Repository interface {
	SaveMessage(ctx context.Context, msg Message) error
	ListSession(ctx context.Context, sessionID string) ([]Message, error)
}

// Service answers patient questions, assisted by Gemini when configured
// and falling back to the FAQ table otherwise. History persistence is
// best-effort: a failed save never loses the reply.
type Service struct {
	gen     triage.TextGenerator
	repo    Repository
	timeout time.Duration
	logger  zerolog.Logger
}

func NewService(gen triage.TextGenerator, repo Repository, timeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{gen: gen, repo: repo, timeout: timeout, logger: logger}
}

// Reply produces an answer for one user message and records both turns.
func (s *Service) Reply(ctx context.Context, sessionID, userMessage string) string {
	reply := s.answer(ctx, userMessage)

	s.save(ctx, Message{ID: uuid.New(), SessionID: sessionID, FromBot: false, Text: userMessage, CreatedAt: time.Now()})
	s.save(ctx, Message{ID: uuid.New(), SessionID: sessionID, FromBot: true, Text: reply, CreatedAt: time.Now()})

	return reply
}

// History returns a session's messages, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]Message, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListSession(ctx, sessionID)
}

func (s *Service) answer(parent context.Context, userMessage string) string {
	if s.gen == nil {
		return FallbackReply(userMessage)
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	text, err := s.gen.GenerateText(ctx, fmt.Sprintf(chatPromptTemplate, userMessage))
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Debug().Err(err).Msg("assisted chat unavailable, using FAQ table")
		return FallbackReply(userMessage)
	}

	return triage.StripMarkup(text)
}

func (s *Service) save(ctx context.Context, msg Message) {
	if s.repo == nil {
		return
	}
	if err := s.repo.SaveMessage(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("session_id", msg.SessionID).Msg("chat message not persisted")
	}
}
