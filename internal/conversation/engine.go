package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crateguide/crateguide/internal/portrait"
	"github.com/crateguide/crateguide/internal/textgen"
	"github.com/crateguide/crateguide/pkg/models"
)

// ErrConversationComplete is returned when a listener sends a message
// to a conversation that already delivered its closing hand-off.
var ErrConversationComplete = errors.New("conversation already complete")

// Fixed fallback lines. The engine always answers; when the portrait or
// the text generator is unavailable it falls back to these instead of
// surfacing the failure.
const (
	fallbackOpening = "Let's find your next favorite record! Tell me: what's a style of music you've been curious about but never really explored?"
	fallbackFollow  = "Interesting! What draws you in when you hear something new - the rhythm, the mood, or the story it tells?"
	fallbackClosing = "Wonderful, I have a good sense of what you're after. Give me a moment to dig through the crates and pull some records for you!"
)

// Engine runs the guided conversation: one opening question, narrowing
// follow-ups, and a closing hand-off after QuestionThreshold answers.
type Engine struct {
	runner    textgen.Runner
	store     Store
	portraits portrait.Store
}

func NewEngine(runner textgen.Runner, store Store, portraits portrait.Store) *Engine {
	return &Engine{runner: runner, store: store, portraits: portraits}
}

// Start creates a new conversation for the given portrait and asks the
// opening question. A missing portrait or a failed generation never
// blocks the start: the engine falls back to a fixed opening question
// and the conversation is created either way.
func (e *Engine) Start(ctx context.Context, portraitID, userID string) (*Conversation, error) {
	question := fallbackOpening

	p, err := e.portraits.Get(ctx, portraitID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("portrait_id", portraitID).
			Msg("Portrait unavailable, using fallback opening question")
	} else {
		question = e.generate(ctx, buildOpeningPrompt(p), fallbackOpening)
	}

	now := time.Now().UTC()
	conv := &Conversation{
		ID:         uuid.New().String(),
		PortraitID: portraitID,
		UserID:     userID,
		State:      StateStarted,
		Transcript: []models.Message{
			{Role: models.RoleAssistant, Content: question},
		},
		QuestionCount: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := e.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	log.Info().
		Str("conversation_id", conv.ID).
		Str("portrait_id", portraitID).
		Msg("Conversation started")

	return conv, nil
}

// Continue records the listener's answer and produces the next guide
// turn: a narrowing follow-up, or the closing hand-off once the
// listener has answered QuestionThreshold questions. The conversation
// latches Complete with the closing turn and rejects further messages.
func (e *Engine) Continue(ctx context.Context, conversationID, userMessage string) (*Conversation, error) {
	conv, err := e.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	closing := conv.QuestionCount >= QuestionThreshold
	next := StateInProgress
	if closing {
		next = StateComplete
	}
	if !conv.State.CanTransitionTo(next) {
		return nil, ErrConversationComplete
	}

	conv.Transcript = append(conv.Transcript, models.Message{
		Role:    models.RoleUser,
		Content: userMessage,
	})

	var reply string
	if closing {
		reply = e.generate(ctx, buildClosingPrompt(conv.Transcript), fallbackClosing)
	} else {
		reply = e.generate(ctx, buildFollowUpPrompt(conv.Transcript, conv.QuestionCount+1), fallbackFollow)
	}

	conv.Transcript = append(conv.Transcript, models.Message{
		Role:    models.RoleAssistant,
		Content: reply,
	})
	conv.QuestionCount++
	conv.State = next
	conv.UpdatedAt = time.Now().UTC()

	if err := e.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to store conversation %s: %w", conversationID, err)
	}

	log.Info().
		Str("conversation_id", conv.ID).
		Int("question_count", conv.QuestionCount).
		Bool("complete", conv.Complete()).
		Msg("Conversation turn recorded")

	return conv, nil
}

// generate runs one prompt through the text generator, falling back to
// the fixed line on any failure or empty response.
func (e *Engine) generate(ctx context.Context, prompt, fallback string) string {
	resp, err := e.runner.Run(ctx, textgen.Request{
		Messages: []models.Message{
			{Role: models.RoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Text generation failed, using fallback line")
		return fallback
	}

	resp = strings.TrimSpace(resp)
	if resp == "" {
		return fallback
	}
	return resp
}
