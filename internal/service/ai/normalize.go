package ai

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/storyforge/backend/internal/model/story"
)

// ErrMalformedResponse 表示上游返回了 2xx 但没有任何候选结果。
var ErrMalformedResponse = errors.New("upstream response contains no choices")

// Normalize converts a chat-completion response into the canonical envelope,
// taking the first choice's message content as a single text block.
func Normalize(resp openai.ChatCompletionResponse) (story.GenerationResponse, error) {
	if len(resp.Choices) == 0 {
		return story.GenerationResponse{}, ErrMalformedResponse
	}
	return story.TextResponse(resp.Choices[0].Message.Content), nil
}
