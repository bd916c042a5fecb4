package ledger

// AchievementID identifies an achievement.
type AchievementID string

const (
	FirstFish      AchievementID = "first_fish"
	RareHunter     AchievementID = "rare_hunter"
	Collector10    AchievementID = "collector_10"
	Collector20    AchievementID = "collector_20"
	LegendarySight AchievementID = "legendary_sight"
	QuietMaster    AchievementID = "quiet_master"
	FocusWarrior   AchievementID = "focus_warrior"
	NightOwl       AchievementID = "night_owl"
	Streak3        AchievementID = "streak_3"
	TotalFish100   AchievementID = "total_fish_100"
)

// Achievement describes one unlockable badge.
type Achievement struct {
	ID   AchievementID `json:"id"`
	Name string        `json:"name"`
	Desc string        `json:"desc"`
	Icon string        `json:"icon"`
}

// Catalog lists every achievement in display order.
var Catalog = []Achievement{
	{FirstFish, "First Contact", "Catch your first fish", "🐟"},
	{RareHunter, "Rare Hunter", "Catch your first rare fish", "💎"},
	{Collector10, "Collector", "Keep 10 fish at once", "📗"},
	{Collector20, "Curator", "Keep 20 fish at once", "📚"},
	{LegendarySight, "Witness a Legend", "Catch your first legendary fish", "👑"},
	{QuietMaster, "Quiet Master", "Stay quiet for one hour in total", "🕊️"},
	{FocusWarrior, "Focus Warrior", "Complete 5 pomodoros", "⚔️"},
	{NightOwl, "Night Owl", "Study late at night", "🦉"},
	{Streak3, "Three-Day Streak", "Study three days in a row", "📅"},
	{TotalFish100, "Hundred Fish", "Catch 100 fish in total", "🔪"},
}

// Lookup returns the catalog entry for id.
func Lookup(id AchievementID) (Achievement, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Level is a rank earned by points.
type Level struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

// Levels is sorted by MinPoints.
var Levels = []Level{
	{1, "Novice", 0},
	{2, "Apprentice", 500},
	{3, "Adept", 1500},
	{4, "Sorcerer", 3000},
	{5, "Archmage", 6000},
	{6, "Quiet Deity", 12000},
}

// LevelFor returns the highest level whose threshold points reaches.
func LevelFor(points int) Level {
	for i := len(Levels) - 1; i >= 0; i-- {
		if points >= Levels[i].MinPoints {
			return Levels[i]
		}
	}
	return Levels[0]
}
