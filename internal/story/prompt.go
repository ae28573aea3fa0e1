package story

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	model "github.com/zhouzirui/storyforge/backend/internal/model/story"
)

// previousSnippetRunes 控制续写提示中引用上一章的长度。
const previousSnippetRunes = 150

const openingPrompt = `Create a unique story opening matching these details:
Character: {character} - {avatar_name} ({class})
Personality: {personality}
World: {world}
Avatar: {avatar}
Ending: {ending}

Write 150 words max. End with 3 distinct numbered choices.

STORY: [unique story text based on all details above]
CHOICES:
1. [choice related to the scenario]
2. [different choice]
3. [third option]`

const continuationPrompt = `Continue this story (already generated {chapters} chapters):
Character: {character} - {avatar_name} ({class}), personality: {personality}
World: {world}
Previous: {previous}...
Choice made: {choice}

{instruction}

STORY: [text that logically continues from the choice]
{choices_block}`

const (
	continueInstruction = "Continue the story (150 words). Add 3 new numbered choices related to the scenario."
	choicesBlock        = "CHOICES:\n1. [next choice]\n2. [alternative]\n3. [third option]"
)

// PromptBuilder renders opening and continuation prompts.
type PromptBuilder struct {
	opening      prompt.ChatTemplate
	continuation prompt.ChatTemplate
}

// NewPromptBuilder creates a PromptBuilder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		opening:      prompt.FromMessages(schema.FString, schema.UserMessage(openingPrompt)),
		continuation: prompt.FromMessages(schema.FString, schema.UserMessage(continuationPrompt)),
	}
}

// Opening builds the request for the first chapter of p.
func (b *PromptBuilder) Opening(ctx context.Context, p Profile) (model.GenerationRequest, error) {
	text, err := render(ctx, b.opening, map[string]any{
		"character":   p.Character(),
		"avatar_name": p.Avatar.Name,
		"class":       p.Avatar.Class,
		"personality": p.Personality,
		"world":       p.World,
		"avatar":      p.Avatar.Emoji,
		"ending":      p.Ending,
	})
	if err != nil {
		return model.GenerationRequest{}, err
	}

	return model.GenerationRequest{
		Prompt:  text,
		Context: p.context(false, ""),
	}, nil
}

// Continuation builds the request for the chapter following chapters earlier
// ones, after the player picked choice. previous is the last chapter's text.
func (b *PromptBuilder) Continuation(ctx context.Context, p Profile, chapters int, previous, choice string) (model.GenerationRequest, error) {
	instruction := continueInstruction
	block := choicesBlock
	if chapters >= FinalChapterIndex {
		instruction = fmt.Sprintf("End the story with %s ending.", p.Ending)
		block = ""
	}

	text, err := render(ctx, b.continuation, map[string]any{
		"chapters":      chapters,
		"character":     p.Character(),
		"avatar_name":   p.Avatar.Name,
		"class":         p.Avatar.Class,
		"personality":   p.Personality,
		"world":         p.World,
		"previous":      truncateRunes(previous, previousSnippetRunes),
		"choice":        choice,
		"instruction":   instruction,
		"choices_block": block,
	})
	if err != nil {
		return model.GenerationRequest{}, err
	}

	return model.GenerationRequest{
		Prompt:  text,
		Context: p.context(true, choice),
	}, nil
}

func (p Profile) context(continuation bool, choice string) *model.StoryContext {
	return &model.StoryContext{
		Character:    p.Character(),
		Class:        p.Avatar.Class,
		Personality:  p.Personality,
		World:        p.World,
		Ending:       p.Ending,
		Continuation: continuation,
		ChoiceMade:   choice,
	}
}

func render(ctx context.Context, tpl prompt.ChatTemplate, vars map[string]any) (string, error) {
	messages, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("failed to render prompt: template produced no message")
	}
	return messages[0].Content, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
