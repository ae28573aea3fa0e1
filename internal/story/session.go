package story

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	model "github.com/zhouzirui/storyforge/backend/internal/model/story"
)

var (
	// ErrBusy 表示上一章仍在生成中。
	ErrBusy = errors.New("a chapter is already being generated")
	// ErrChoiceUnavailable is returned when the choice is not currently offered.
	ErrChoiceUnavailable = errors.New("choice is not on offer")
	// ErrSessionReset is returned by a call whose session was reset meanwhile.
	ErrSessionReset = errors.New("session was reset during generation")
)

// Step is the screen the session is on.
type Step string

const (
	StepHome      Step = "home"
	StepCustomize Step = "customize"
	StepPlaying   Step = "playing"
)

// Generator produces the next chapter payload for a request.
type Generator interface {
	Generate(ctx context.Context, req model.GenerationRequest) (model.GenerationResponse, error)
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	ID            string   `json:"id"`
	Step          Step     `json:"step"`
	Settings      Settings `json:"settings"`
	Story         string   `json:"story"`
	Choices       []string `json:"choices"`
	StoryHistory  []string `json:"storyHistory"`
	ChoiceHistory []string `json:"choiceHistory"`
	Loading       bool     `json:"loading"`
}

// Session drives one playthrough. It is safe for concurrent use; a second
// generation started while one is in flight fails with ErrBusy.
type Session struct {
	mu      sync.Mutex
	id      string
	gen     Generator
	catalog model.Store
	prompts *PromptBuilder

	step          Step
	settings      Settings
	story         string
	choices       []string
	storyHistory  []string
	choiceHistory []string
	loading       bool
	// epoch changes on Reset so that in-flight results can be discarded.
	epoch uint64
}

// NewSession creates a session on the home step with default settings.
func NewSession(gen Generator, catalog model.Store) *Session {
	return &Session{
		id:       uuid.NewString(),
		gen:      gen,
		catalog:  catalog,
		prompts:  NewPromptBuilder(),
		step:     StepHome,
		settings: DefaultSettings(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Customize moves to the customization step.
func (s *Session) Customize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return ErrBusy
	}
	s.step = StepCustomize
	return nil
}

// UpdateSettings replaces the settings after checking every key against the
// catalog. Invalid settings leave the session unchanged.
func (s *Session) UpdateSettings(settings Settings) error {
	if _, err := ResolveProfile(settings, s.catalog); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loading {
		return ErrBusy
	}
	s.settings = settings
	return nil
}

// Start generates the opening chapter and begins a new playthrough.
func (s *Session) Start(ctx context.Context) error {
	return s.generate(ctx, false, "")
}

// Choose continues the story with one of the currently offered choices.
func (s *Session) Choose(ctx context.Context, choice string) error {
	return s.generate(ctx, true, choice)
}

// Reset returns to the home step with default settings and empty history.
// A generation still in flight is discarded when it completes.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.step = StepHome
	s.settings = DefaultSettings()
	s.story = ""
	s.choices = nil
	s.storyHistory = nil
	s.choiceHistory = nil
	s.loading = false
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:            s.id,
		Step:          s.step,
		Settings:      s.settings,
		Story:         s.story,
		Choices:       slices.Clone(s.choices),
		StoryHistory:  slices.Clone(s.storyHistory),
		ChoiceHistory: slices.Clone(s.choiceHistory),
		Loading:       s.loading,
	}
}

// Finished reports whether the story reached a chapter without choices.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.step == StepPlaying && !s.loading && len(s.storyHistory) > 0 && len(s.choices) == 0
}

func (s *Session) generate(ctx context.Context, isChoice bool, choice string) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if isChoice && !slices.Contains(s.choices, choice) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrChoiceUnavailable, choice)
	}
	profile, err := ResolveProfile(s.settings, s.catalog)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	chapters := 0
	previous := ""
	if isChoice {
		chapters = len(s.storyHistory)
		previous = s.storyHistory[chapters-1]
	}
	epoch := s.epoch
	s.loading = true
	s.mu.Unlock()

	var req model.GenerationRequest
	if isChoice {
		req, err = s.prompts.Continuation(ctx, profile, chapters, previous, choice)
	} else {
		req, err = s.prompts.Opening(ctx, profile)
	}

	var resp model.GenerationResponse
	if err == nil {
		resp, err = s.gen.Generate(ctx, req)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return ErrSessionReset
	}
	s.loading = false
	if err != nil {
		return err
	}

	// 没有 STORY 段时整章忽略，选项仍可重新提交。
	parsed := ParseChapter(resp.Text(), chapters)
	if !parsed.HasStory {
		return nil
	}

	if isChoice {
		s.storyHistory = append(s.storyHistory, parsed.StoryText)
		s.choiceHistory = append(s.choiceHistory, choice)
	} else {
		s.storyHistory = []string{parsed.StoryText}
		s.choiceHistory = nil
	}
	s.story = parsed.StoryText
	s.choices = parsed.Choices
	s.step = StepPlaying
	return nil
}
