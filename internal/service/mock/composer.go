// Package mock composes synthetic story chapters used in demo mode and as
// the fallback when the upstream model keeps failing.
package mock

import (
	"fmt"
	"math/rand"

	"github.com/zhouzirui/storyforge/backend/internal/model/story"
)

// Story is one synthetic chapter with exactly three choices.
type Story struct {
	Text    string
	Choices [3]string
}

// Payload renders the chapter in the STORY/CHOICES text format clients parse.
func (s Story) Payload() string {
	return fmt.Sprintf("STORY: %s\nCHOICES:\n1. %s\n2. %s\n3. %s",
		s.Text, s.Choices[0], s.Choices[1], s.Choices[2])
}

// Composer picks templates at random and fills them from a StoryContext.
type Composer struct {
	intn func(n int) int
}

// NewComposer returns a Composer backed by the global math/rand source,
// which is safe for concurrent use.
func NewComposer() *Composer {
	return &Composer{intn: rand.Intn}
}

// NewComposerWithSource returns a Composer drawing template indexes from
// intn, which must return a value in [0, n).
func NewComposerWithSource(intn func(n int) int) *Composer {
	return &Composer{intn: intn}
}

// Compose builds a chapter for sc. Missing fields fall back to defaults.
func (c *Composer) Compose(sc story.StoryContext) Story {
	sc = WithDefaults(sc)

	var text string
	if sc.Continuation {
		text = c.pick(continuationTemplates)(sc)
	} else {
		text = c.pick(openingTemplates)(sc)
	}

	return Story{
		Text:    text,
		Choices: c.pickChoices(sc),
	}
}

// Generate resolves the request context and wraps a composed chapter in the
// canonical response envelope.
func (c *Composer) Generate(req story.GenerationRequest) story.GenerationResponse {
	return story.TextResponse(c.Compose(Resolve(req)).Payload())
}

func (c *Composer) pick(templates []template) template {
	return templates[c.intn(len(templates))]
}

func (c *Composer) pickChoices(sc story.StoryContext) [3]string {
	return choiceTemplates[c.intn(len(choiceTemplates))](sc)
}

type template func(sc story.StoryContext) string

var openingTemplates = []template{
	func(sc story.StoryContext) string {
		return fmt.Sprintf("%s arrives in %s. As a %s with a %s nature, they sense the weight of untold adventures ahead. The landscape stretches before them, full of mysteries waiting to be uncovered.",
			sc.Character, sc.World, sc.Class, sc.Personality)
	},
	func(sc story.StoryContext) string {
		return fmt.Sprintf("In %s, %s awakens to their destiny. With the skills of a %s and the personality of someone who is %s, they assess the situation carefully. Something significant is about to happen.",
			sc.World, sc.Character, sc.Class, sc.Personality)
	},
	func(sc story.StoryContext) string {
		return fmt.Sprintf("%s stands ready in %s. As a %s, they've faced challenges before, but their %s nature tells them this time is different. The adventure unfolds before them.",
			sc.Character, sc.World, sc.Class, sc.Personality)
	},
	func(sc story.StoryContext) string {
		return fmt.Sprintf("The %s welcomes %s, a capable %s with a %s disposition. Something in the air suggests the beginning of an epic journey. Multiple paths lie ahead.",
			sc.World, sc.Character, sc.Class, sc.Personality)
	},
	func(sc story.StoryContext) string {
		return fmt.Sprintf("%s enters %s with determination. Their experience as a %s and their %s outlook prepare them for what's to come. The story begins in earnest now.",
			sc.Character, sc.World, sc.Class, sc.Personality)
	},
}

var continuationTemplates = []template{
	func(sc story.StoryContext) string {
		return fmt.Sprintf("Following the choice to \"%s\", the adventure takes a turn. %s navigates %s with skill, their %s experience helping them adapt. As someone %s, they press forward.",
			sc.ChoiceMade, sc.Character, sc.World, sc.Class, sc.Personality)
	},
	func(sc story.StoryContext) string {
		return fmt.Sprintf("The decision to \"%s\" changes everything. %s finds themselves deeper in %s than expected. With %s training and a %s spirit, they face new challenges.",
			sc.ChoiceMade, sc.Character, sc.World, sc.Class, sc.Personality)
	},
	func(sc story.StoryContext) string {
		return fmt.Sprintf("\"%s\" leads %s further into the heart of %s. Their %s abilities are tested, and their %s nature guides their next move.",
			sc.ChoiceMade, sc.Character, sc.World, sc.Class, sc.Personality)
	},
	func(sc story.StoryContext) string {
		return fmt.Sprintf("By choosing \"%s\", %s sets off a chain of events. Through %s, they adapt as only a skilled %s can. Their %s resolve strengthens.",
			sc.ChoiceMade, sc.Character, sc.World, sc.Class, sc.Personality)
	},
}

var choiceTemplates = []func(sc story.StoryContext) [3]string{
	func(sc story.StoryContext) [3]string {
		return [3]string{
			fmt.Sprintf("Use your %s skills", sc.Class),
			fmt.Sprintf("Trust your %s instincts", sc.Personality),
			"Seek allies for help",
		}
	},
	func(story.StoryContext) [3]string {
		return [3]string{"Confront the challenge directly", "Find a clever solution", "Take a safer route"}
	},
	func(story.StoryContext) [3]string {
		return [3]string{"Act with urgency", "Take time to investigate", "Get advice from others"}
	},
	func(story.StoryContext) [3]string {
		return [3]string{"Take the risky path", "Play it safe", "Find a balanced approach"}
	},
}
