package story

// Avatar 描述可选角色形象及其职业。
type Avatar struct {
	Emoji     string `json:"emoji"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	Strengths string `json:"strengths"`
	Flaws     string `json:"flaws"`
}

// Option is a keyed, human-readable choice such as a world or an ending.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Catalog holds every option a player can pick when customizing a story.
type Catalog struct {
	Avatars       []Avatar `json:"avatars"`
	Worlds        []Option `json:"worlds"`
	Personalities []Option `json:"personalities"`
	Endings       []Option `json:"endings"`
}

// Store exposes catalog lookups for handlers and the session.
type Store interface {
	Catalog() Catalog
	FindAvatar(emoji string) (Avatar, bool)
	FindWorld(key string) (Option, bool)
	FindPersonality(key string) (Option, bool)
	FindEnding(key string) (Option, bool)
}

// MemoryStore implements Store over an in-memory Catalog.
type MemoryStore struct {
	catalog Catalog
}

// NewMemoryStore returns a MemoryStore holding a copy of c.
func NewMemoryStore(c Catalog) *MemoryStore {
	return &MemoryStore{catalog: c.clone()}
}

// Catalog returns a copy of the stored catalog.
func (s *MemoryStore) Catalog() Catalog {
	return s.catalog.clone()
}

// FindAvatar looks up an avatar by its emoji.
func (s *MemoryStore) FindAvatar(emoji string) (Avatar, bool) {
	for _, item := range s.catalog.Avatars {
		if item.Emoji == emoji {
			return item, true
		}
	}
	return Avatar{}, false
}

func (s *MemoryStore) FindWorld(key string) (Option, bool) {
	return findOption(s.catalog.Worlds, key)
}

func (s *MemoryStore) FindPersonality(key string) (Option, bool) {
	return findOption(s.catalog.Personalities, key)
}

func (s *MemoryStore) FindEnding(key string) (Option, bool) {
	return findOption(s.catalog.Endings, key)
}

func findOption(items []Option, key string) (Option, bool) {
	for _, item := range items {
		if item.Key == key {
			return item, true
		}
	}
	return Option{}, false
}

func (c Catalog) clone() Catalog {
	return Catalog{
		Avatars:       append([]Avatar(nil), c.Avatars...),
		Worlds:        append([]Option(nil), c.Worlds...),
		Personalities: append([]Option(nil), c.Personalities...),
		Endings:       append([]Option(nil), c.Endings...),
	}
}

// Seed provides the default catalog offered by the story customizer.
func Seed() Catalog {
	return Catalog{
		Avatars: []Avatar{
			{Emoji: "🧙", Name: "Wizard", Class: "Mage", Strengths: "Master of arcane arts, powerful spells", Flaws: "Physically weak, relies on mana"},
			{Emoji: "⚔️", Name: "Knight", Class: "Warrior", Strengths: "Heavy armor, honorable, strong defense", Flaws: "Slow movement, bound by code of honor"},
			{Emoji: "🏹", Name: "Archer", Class: "Ranger", Strengths: "Precise aim, quick reflexes, long range", Flaws: "Weak in close combat, limited arrows"},
			{Emoji: "🗡️", Name: "Rogue", Class: "Assassin", Strengths: "Stealth master, quick strikes, agile", Flaws: "Low health, distrusted by others"},
			{Emoji: "🛡️", Name: "Paladin", Class: "Holy Warrior", Strengths: "Divine protection, healing powers", Flaws: "Vulnerable to dark magic, strict morals"},
			{Emoji: "🔮", Name: "Sorcerer", Class: "Spellcaster", Strengths: "Elemental control, foresight abilities", Flaws: "Unpredictable magic, drains life force"},
			{Emoji: "🐉", Name: "Dragon Rider", Class: "Beast Master", Strengths: "Flying mount, dragon breath attacks", Flaws: "Dependent on dragon, arrogant"},
			{Emoji: "👑", Name: "Royal", Class: "Noble", Strengths: "Diplomatic skills, wealthy, commands respect", Flaws: "Inexperienced in combat, targeted by enemies"},
			{Emoji: "🦸", Name: "Hero", Class: "Champion", Strengths: "Balanced abilities, inspiring presence", Flaws: "Burdened by expectations, overconfident"},
			{Emoji: "🥷", Name: "Ninja", Class: "Shadow Walker", Strengths: "Silent movement, deadly precision, gadgets", Flaws: "Fragile, operates alone"},
			{Emoji: "🤠", Name: "Gunslinger", Class: "Outlaw", Strengths: "Quick draw, sharpshooting, intimidating", Flaws: "Reckless, ammunition dependent"},
			{Emoji: "🧝", Name: "Elf", Class: "Forest Guardian", Strengths: "Nature magic, enhanced senses, immortal", Flaws: "Prideful, weak to iron"},
			{Emoji: "🧛", Name: "Vampire", Class: "Undead Lord", Strengths: "Superhuman strength, regeneration, charm", Flaws: "Sunlight weakness, blood dependency"},
			{Emoji: "🧚", Name: "Fairy", Class: "Sprite", Strengths: "Flight, enchantments, nature affinity", Flaws: "Tiny size, easily overpowered"},
			{Emoji: "🤖", Name: "Cyborg", Class: "Tech Warrior", Strengths: "Enhanced strength, advanced tech, data analysis", Flaws: "EMP vulnerable, requires power source"},
			{Emoji: "👻", Name: "Spirit", Class: "Phantom", Strengths: "Phase through walls, possess objects, immortal", Flaws: "Cannot interact physically, bound to location"},
		},
		Worlds: []Option{
			{Key: "fantasy", Label: "🏰 Fantasy Realm"},
			{Key: "scifi", Label: "🚀 Sci-Fi Universe"},
			{Key: "mystery", Label: "🔍 Mystery World"},
			{Key: "horror", Label: "👻 Horror Setting"},
			{Key: "romance", Label: "💖 Romantic World"},
			{Key: "historical", Label: "⏳ Historical Era"},
			{Key: "cyberpunk", Label: "🌃 Cyberpunk City"},
			{Key: "postapocalyptic", Label: "☢️ Post-Apocalyptic"},
			{Key: "steampunk", Label: "⚙️ Steampunk Era"},
			{Key: "underwater", Label: "🌊 Underwater Kingdom"},
			{Key: "space", Label: "🛸 Space Station"},
			{Key: "western", Label: "🤠 Wild West"},
			{Key: "jungle", Label: "🌴 Jungle Adventure"},
			{Key: "arctic", Label: "❄️ Arctic Wasteland"},
			{Key: "desert", Label: "🏜️ Desert Oasis"},
			{Key: "volcanic", Label: "🌋 Volcanic Islands"},
			{Key: "dreamworld", Label: "💭 Dream Realm"},
			{Key: "timetravel", Label: "⏰ Time Paradox"},
			{Key: "parallel", Label: "🌌 Parallel Universe"},
			{Key: "magical", Label: "✨ Magical Academy"},
		},
		Personalities: []Option{
			{Key: "brave", Label: "Brave & Heroic"},
			{Key: "cunning", Label: "Cunning & Strategic"},
			{Key: "kind", Label: "Kind & Compassionate"},
			{Key: "mysterious", Label: "Mysterious & Enigmatic"},
			{Key: "rebellious", Label: "Rebellious & Bold"},
			{Key: "wise", Label: "Wise & Thoughtful"},
			{Key: "chaotic", Label: "Chaotic & Unpredictable"},
			{Key: "noble", Label: "Noble & Honorable"},
			{Key: "ruthless", Label: "Ruthless & Determined"},
			{Key: "playful", Label: "Playful & Mischievous"},
			{Key: "stoic", Label: "Stoic & Calm"},
			{Key: "ambitious", Label: "Ambitious & Driven"},
			{Key: "paranoid", Label: "Paranoid & Cautious"},
			{Key: "optimistic", Label: "Optimistic & Cheerful"},
			{Key: "cynical", Label: "Cynical & Realistic"},
			{Key: "romantic", Label: "Romantic & Passionate"},
			{Key: "scholarly", Label: "Scholarly & Analytical"},
			{Key: "wild", Label: "Wild & Untamed"},
		},
		Endings: []Option{
			{Key: "happy", Label: "Happy Ending"},
			{Key: "tragic", Label: "Tragic Ending"},
			{Key: "bittersweet", Label: "Bittersweet Ending"},
			{Key: "openended", Label: "Open-Ended"},
			{Key: "twist", Label: "Plot Twist Ending"},
			{Key: "heroic", Label: "Heroic Sacrifice"},
			{Key: "villain", Label: "Villain Wins"},
			{Key: "redemption", Label: "Redemption Arc"},
			{Key: "mystery", Label: "Unresolved Mystery"},
			{Key: "timeloop", Label: "Time Loop"},
			{Key: "apocalyptic", Label: "World Ending"},
			{Key: "peaceful", Label: "Peaceful Resolution"},
			{Key: "cliffhanger", Label: "Cliffhanger"},
			{Key: "revenge", Label: "Sweet Revenge"},
			{Key: "bittertriumph", Label: "Bitter Triumph"},
		},
	}
}
