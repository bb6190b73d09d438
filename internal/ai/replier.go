package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/dayoung-p/maumlog/internal/config"
	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/sirupsen/logrus"
)

// FallbackReply substitutes for the assistant turn whenever reply
// generation fails. The conversation must never hard-fail on a provider
// error.
const FallbackReply = "죄송합니다. 응답을 생성하는 중에 문제가 발생했습니다. 잠시 후 다시 시도해주세요."

// ErrReplyGeneration wraps any failure from the external model.
var ErrReplyGeneration = errors.New("reply generation failed")

// Replier generates the assistant's next turn from an ordered message
// context. Implementations may fail; callers substitute FallbackReply.
type Replier interface {
	Reply(ctx context.Context, messages []models.Message) (string, error)
}

// LLMReplier generates replies through an eino prompt-template + chat-model
// chain backed by the Ark runtime.
type LLMReplier struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewLLMReplier compiles the reply chain from the configured model.
func NewLLMReplier(ctx context.Context, cfg config.AIConfig) (*LLMReplier, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	return &LLMReplier{chain: runnable, timeout: cfg.Timeout}, nil
}

// Reply invokes the chain with a bounded deadline. A slow provider
// surfaces as an error, never as an indefinitely blocked turn.
func (r *LLMReplier) Reply(ctx context.Context, messages []models.Message) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	response, err := r.chain.Invoke(ctx, buildChainInput(messages))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReplyGeneration, err)
	}
	if response == nil || response.Content == "" {
		return "", fmt.Errorf("%w: empty model response", ErrReplyGeneration)
	}

	logrus.WithField("length", len(response.Content)).Info("Reply generated")
	return response.Content, nil
}

// buildChainInput splits the message context into the chain's template
// slots: the system prompt, the trailing user query, and everything in
// between as history.
func buildChainInput(messages []models.Message) map[string]any {
	system := SystemPrompt("")
	query := ""
	var rest []models.Message

	for i, msg := range messages {
		switch {
		case msg.Role == models.RoleSystem && i == 0:
			system = msg.Content
		case msg.Role == models.RoleUser && i == len(messages)-1:
			query = msg.Content
		default:
			rest = append(rest, msg)
		}
	}

	history := make([]*schema.Message, 0, len(rest))
	for _, msg := range rest {
		switch msg.Role {
		case models.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case models.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return map[string]any{
		"system":  system,
		"history": history,
		"query":   query,
	}
}

// DisabledReplier is wired when no model credentials are configured; every
// turn falls back to the apology message.
type DisabledReplier struct{}

func (DisabledReplier) Reply(context.Context, []models.Message) (string, error) {
	return "", fmt.Errorf("%w: no model configured", ErrReplyGeneration)
}
