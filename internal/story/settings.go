package story

import (
	"errors"
	"fmt"
	"strings"

	model "github.com/zhouzirui/storyforge/backend/internal/model/story"
)

// ErrInvalidSettings 表示设置引用了目录中不存在的选项。
var ErrInvalidSettings = errors.New("invalid story settings")

// DefaultCharacterName is used when the player leaves the name empty.
const DefaultCharacterName = "Hero"

// Settings are the player's customization choices, stored as catalog keys.
type Settings struct {
	WorldSetting  string `json:"worldSetting"`
	CharacterName string `json:"characterName"`
	Personality   string `json:"personality"`
	EndingType    string `json:"endingType"`
	Avatar        string `json:"avatar"`
}

// DefaultSettings returns the settings of a fresh session.
func DefaultSettings() Settings {
	return Settings{
		WorldSetting: "fantasy",
		Personality:  "brave",
		EndingType:   "happy",
		Avatar:       "🧙",
	}
}

// Profile is Settings resolved against the catalog into display values.
type Profile struct {
	CharacterName string
	Avatar        model.Avatar
	World         string
	Personality   string
	Ending        string
}

// Character returns the character name, defaulting to "Hero".
func (p Profile) Character() string {
	if name := strings.TrimSpace(p.CharacterName); name != "" {
		return name
	}
	return DefaultCharacterName
}

// ResolveProfile looks every key of s up in catalog.
func ResolveProfile(s Settings, catalog model.Store) (Profile, error) {
	avatar, ok := catalog.FindAvatar(s.Avatar)
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown avatar %q", ErrInvalidSettings, s.Avatar)
	}
	world, ok := catalog.FindWorld(s.WorldSetting)
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown world %q", ErrInvalidSettings, s.WorldSetting)
	}
	personality, ok := catalog.FindPersonality(s.Personality)
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown personality %q", ErrInvalidSettings, s.Personality)
	}
	ending, ok := catalog.FindEnding(s.EndingType)
	if !ok {
		return Profile{}, fmt.Errorf("%w: unknown ending %q", ErrInvalidSettings, s.EndingType)
	}

	return Profile{
		CharacterName: strings.TrimSpace(s.CharacterName),
		Avatar:        avatar,
		World:         world.Label,
		Personality:   personality.Label,
		Ending:        ending.Label,
	}, nil
}
