package mock

import (
	"regexp"
	"strings"

	"github.com/zhouzirui/storyforge/backend/internal/model/story"
)

// 缺省的故事参数。
const (
	DefaultCharacter   = "Hero"
	DefaultClass       = "Adventurer"
	DefaultPersonality = "Brave"
	DefaultWorld       = "Unknown Land"
	DefaultEnding      = "Happy"
	DefaultChoice      = "press onward"
)

// continuationMarker identifies prompts asking for a follow-up chapter.
const continuationMarker = "Continue this story"

var (
	characterPattern   = regexp.MustCompile(`Character:\s*([^\n-]+)`)
	classPattern       = regexp.MustCompile(`Character:[^\n]*?\(([^)]+)\)`)
	personalityPattern = regexp.MustCompile(`(?i)Personality:\s*([^\n]+)`)
	worldPattern       = regexp.MustCompile(`World:\s*([^\n]+)`)
	endingPattern      = regexp.MustCompile(`Ending:\s*([^\n]+)`)
	choicePattern      = regexp.MustCompile(`Choice made:\s*([^\n]+)`)

	lineBreaks     = regexp.MustCompile(`\s*[\r\n]+\s*`)
	leadingNumber  = regexp.MustCompile(`^\d+\.\s*`)
	sectionMarkers = strings.NewReplacer("STORY:", "STORY", "CHOICES:", "CHOICES")
)

// Resolve determines the context for req. Structured fields win, fields
// extracted from the prompt text fill the gaps and defaults come last.
func Resolve(req story.GenerationRequest) story.StoryContext {
	extracted := ContextFromPrompt(req.Prompt)
	if req.Context == nil {
		return WithDefaults(extracted)
	}

	sc := *req.Context
	sc.Character = firstNonEmpty(singleLine(sc.Character), extracted.Character)
	sc.Class = firstNonEmpty(singleLine(sc.Class), extracted.Class)
	sc.Personality = firstNonEmpty(singleLine(sc.Personality), extracted.Personality)
	sc.World = firstNonEmpty(singleLine(sc.World), extracted.World)
	sc.Ending = firstNonEmpty(singleLine(sc.Ending), extracted.Ending)
	sc.ChoiceMade = firstNonEmpty(singleLine(sc.ChoiceMade), extracted.ChoiceMade)
	sc.Continuation = sc.Continuation || extracted.Continuation
	return WithDefaults(sc)
}

// ContextFromPrompt extracts whatever story parameters the prompt text
// mentions. Missing fields stay empty.
func ContextFromPrompt(prompt string) story.StoryContext {
	return story.StoryContext{
		Character:    firstMatch(characterPattern, prompt),
		Class:        firstMatch(classPattern, prompt),
		Personality:  firstMatch(personalityPattern, prompt),
		World:        firstMatch(worldPattern, prompt),
		Ending:       firstMatch(endingPattern, prompt),
		Continuation: strings.Contains(prompt, continuationMarker),
		ChoiceMade:   firstMatch(choicePattern, prompt),
	}
}

// WithDefaults fills every empty field of sc.
func WithDefaults(sc story.StoryContext) story.StoryContext {
	sc.Character = firstNonEmpty(sc.Character, DefaultCharacter)
	sc.Class = firstNonEmpty(sc.Class, DefaultClass)
	sc.Personality = firstNonEmpty(sc.Personality, DefaultPersonality)
	sc.World = firstNonEmpty(sc.World, DefaultWorld)
	sc.Ending = firstNonEmpty(sc.Ending, DefaultEnding)
	sc.ChoiceMade = firstNonEmpty(sc.ChoiceMade, DefaultChoice)
	return sc
}

// singleLine flattens a client supplied value so it cannot add lines or
// sections to the STORY/CHOICES payload.
func singleLine(v string) string {
	v = lineBreaks.ReplaceAllString(strings.TrimSpace(v), " ")
	v = leadingNumber.ReplaceAllString(v, "")
	return sectionMarkers.Replace(v)
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
