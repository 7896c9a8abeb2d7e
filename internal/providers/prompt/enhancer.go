package prompt

import (
	"context"
	"fmt"
	"strings"

	"genstudio/internal/domain"
)

const enhanceImageSystem = `You are a prompt engineer that helps to enhance image generation prompts for illustrious model.
Given a user's prompt, you will enhance it by adding more details, styles, and descriptions to make it more vivid and specific for image generation.
if embeddings words provided make sure you use it again. e.g: embedding:Lazy_Embeddings/Positive/lazypos

Respond only with the enhanced prompt without any additional text.`

const enhanceVideoSystem = `You are ai prompt engineer that helps to enhance video generation prompts for wan 2.2 model.
Given a user's prompt, you will enhance it by adding more details, styles, and descriptions to make it more vivid and specific for video generation.
if embeddings words provided make sure you use it again. e.g: embedding:Lazy_Embeddings/Positive/lazypos

Respond only with the enhanced prompt without any additional text.`

// EnhanceResult pairs the submitted prompt with its rewritten form.
type EnhanceResult struct {
	Original string `json:"original"`
	Enhanced string `json:"enhanced"`
}

// Enhancer rewrites generation prompts through a chat model.
type Enhancer struct {
	chat Completer
}

func NewEnhancer(chat Completer) *Enhancer {
	return &Enhancer{chat: chat}
}

// Enhance rewrites text for kind ("image" unless "video"). An empty
// completion yields the original prompt unchanged.
func (e *Enhancer) Enhance(ctx context.Context, text, kind string) (EnhanceResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EnhanceResult{}, fmt.Errorf("prompt is required: %w", domain.ErrInvalidRequest)
	}
	kind = normalizeKind(kind)
	system := enhanceImageSystem
	if kind == string(domain.JobKindVideo) {
		system = enhanceVideoSystem
	}
	out, err := e.chat.Complete(ctx, CompletionRequest{
		MaxTokens: 1000,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: fmt.Sprintf("Do not creating images or videos. Enhance the following prompt for %s generation: %q", kind, text)},
		},
	})
	if err != nil {
		return EnhanceResult{}, fmt.Errorf("enhance: %w", err)
	}
	return EnhanceResult{Original: text, Enhanced: coalesce(trimCodeFence(out), text)}, nil
}

func normalizeKind(kind string) string {
	if strings.EqualFold(strings.TrimSpace(kind), string(domain.JobKindVideo)) {
		return string(domain.JobKindVideo)
	}
	return string(domain.JobKindImage)
}
