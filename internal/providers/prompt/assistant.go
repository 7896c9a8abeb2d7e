package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
)

const assistantSystem = `You are ZLK Assistant, a friendly and helpful AI chatbot for an AI-powered image and video generation platform.

Platform Information:
- Generate Image feature is available on the homepage (/)
- Generate Video feature is available on the Video page (/video)
- Public Feed/Gallery to view generated results (/gallery)
- Available models: Illustrious SDXL, NoobAI-XL, Pony-XL, and more

Usage Guide:
1. Generate Image: Enter a prompt describing the image you want, adjust parameters like steps, CFG, size, etc.
2. Generate Video: Upload an image and enter a prompt to describe the motion you want
3. Gallery: View and download creations from other users

Tips for good prompts:
- Use detailed descriptions of the subject, pose, expression, clothing
- Specify art styles like "anime style", "realistic", "digital art"
- Describe the background setting
- Use negative prompts to avoid unwanted elements

You must:
- Respond in the same language as the user's question (default English)
- Provide help on how to use the platform
- never generate images yourself, except when explicitly asked "generate image:<prompt>" etc.`

const emptyCompletionReply = "Sorry, I cannot process your request at this time."

// Reply is the assistant's answer. Fallback marks a canned reply used when
// the chat model could not be reached.
type Reply struct {
	Message  string `json:"message"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Assistant answers questions about the platform.
type Assistant struct {
	chat       Completer
	logger     zerolog.Logger
	onFallback func(reason string, err error)
}

// NewAssistant wraps chat. onFallback may be nil.
func NewAssistant(chat Completer, logger *infra.Logger, onFallback func(reason string, err error)) *Assistant {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Assistant{chat: chat, logger: lg, onFallback: onFallback}
}

// Reply answers the conversation. Only an empty conversation is an error;
// upstream failures produce a keyword-matched canned reply.
func (a *Assistant) Reply(ctx context.Context, messages []Message) (Reply, error) {
	if len(messages) == 0 {
		return Reply{}, fmt.Errorf("%w: %w", errEmptyConversation, domain.ErrInvalidRequest)
	}
	conversation := make([]Message, 0, len(messages)+1)
	conversation = append(conversation, Message{Role: "system", Content: assistantSystem})
	conversation = append(conversation, messages...)

	out, err := a.chat.Complete(ctx, CompletionRequest{
		Messages:    conversation,
		MaxTokens:   2000,
		Temperature: 0.7,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("chat: upstream failed; using canned reply")
		if a.onFallback != nil {
			a.onFallback("upstream", err)
		}
		return Reply{Message: cannedReply(messages[len(messages)-1].Content), Fallback: true}, nil
	}
	return Reply{Message: coalesce(out, emptyCompletionReply)}, nil
}

func cannedReply(userMessage string) string {
	lower := strings.ToLower(userMessage)
	switch {
	case containsAny(lower, "halo", "hai", "hello", "hi"):
		return "Hello! I'm ZLK Assistant. How can I help you with this platform? You can ask about generating images, videos, or tips for creating great prompts!"
	case containsAny(lower, "prompt", "cara", "how", "tip"):
		return `Tips for creating good prompts:

1. **Detailed Description**: Describe the subject in detail (pose, expression, clothing)
2. **Art Style**: Add styles like "anime style", "realistic", "digital art"
3. **Lighting**: "cinematic lighting", "soft lighting", "dramatic shadows"
4. **Quality**: "masterpiece", "best quality", "highly detailed"
5. **Background**: Describe the desired background

Example: "1girl, long blonde hair, blue eyes, wearing white dress, sitting in flower garden, soft sunlight, anime style, masterpiece"`
	case containsAny(lower, "video", "animasi", "animation"):
		return "To generate a video, go to the Video page (/video). Upload an image you want to animate, then enter a prompt describing the desired motion. Make sure the image has good resolution for optimal results!"
	case containsAny(lower, "gambar", "image", "generate", "picture"):
		return `To generate an image:

1. Enter a **prompt** describing the image you want
2. Set the **negative prompt** for things to avoid
3. Choose the appropriate **model** (Illustrious, NoobAI, Pony)
4. Set parameters: steps (25-35), CFG (4-7), image size
5. Click **Generate** and wait for the results!

Tip: Use "Enhance Prompt" to automatically improve your prompt quality.`
	case containsAny(lower, "model", "checkpoint"):
		return `Available models:

- **Illustrious SDXL**: Great for anime/illustration style
- **NoobAI-XL**: Easy to use, consistent results
- **Pony-XL**: Specialized for cartoon/pony style characters

Choose a model based on the image style you want!`
	}
	return "I'm ZLK Assistant, ready to help you use this platform! You can ask about:\n\n- How to generate images\n- How to generate videos\n- Tips for writing prompts\n- Available AI models\n\nWhat would you like to know?"
}
