// Package story holds the client side of a playthrough: prompt building,
// parsing of generated chapters and the session state machine.
package story

import (
	"regexp"
	"strings"
)

// FinalChapterIndex is the number of chapters already told when the next one
// must conclude the story. From then on offered choices are discarded.
const FinalChapterIndex = 2

var (
	storySection   = regexp.MustCompile(`STORY:\s*([\s\S]*?)(?:CHOICES:|$)`)
	choicesSection = regexp.MustCompile(`CHOICES:\s*([\s\S]*)`)
	choicePrefix   = regexp.MustCompile(`^\d+\.\s*`)
)

// ParsedStory is one chapter extracted from a STORY/CHOICES payload.
type ParsedStory struct {
	StoryText string   `json:"storyText"`
	Choices   []string `json:"choices"`
	HasStory  bool     `json:"hasStory"`
}

// Parse extracts the story text and the numbered choices from raw.
func Parse(raw string) ParsedStory {
	var parsed ParsedStory

	if m := storySection.FindStringSubmatch(raw); m != nil {
		parsed.StoryText = strings.TrimSpace(m[1])
		parsed.HasStory = true
	}

	if m := choicesSection.FindStringSubmatch(raw); m != nil {
		// 只有行首即编号的行才算选项，缩进行不算。
		for _, line := range strings.Split(strings.TrimSpace(m[1]), "\n") {
			if !choicePrefix.MatchString(line) {
				continue
			}
			if choice := strings.TrimSpace(choicePrefix.ReplaceAllString(line, "")); choice != "" {
				parsed.Choices = append(parsed.Choices, choice)
			}
		}
	}

	return parsed
}

// ParseChapter parses raw as the chapter following chapterCount earlier
// ones. Once the final chapter is reached no choices are offered, whatever
// the text contains.
func ParseChapter(raw string, chapterCount int) ParsedStory {
	parsed := Parse(raw)
	if chapterCount >= FinalChapterIndex {
		parsed.Choices = nil
	}
	return parsed
}
