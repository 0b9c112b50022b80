package main

// Achievement definitions
type AchievementDef struct {
	ID          string
	Name        string
	Description string
}

var Achievements = []AchievementDef{
	{"first_blood", "First Blood", "Get your first kill"},
	{"bed_bug", "Bed Bug", "Break your first bed"},
	{"insomniac", "Insomniac", "Break 2 beds in a single match"},
	{"demolisher", "Demolisher", "Break 50 beds in total"},
	{"final_blow", "Final Blow", "Get your first final kill"},
	{"executioner", "Executioner", "Reach 100 final kills"},
	{"flawless", "Flawless Victory", "Win a match without dying"},
	{"victor", "Victor", "Win 10 matches"},
	{"veteran", "Veteran", "Reach level 10"},
	{"legend", "Legend", "Reach level 50"},
	{"survivor", "Survivor", "Play for 1 hour total"},
}

// CheckAchievements unlocks whatever the account's new totals and this match earned.
// Returns only the achievements unlocked by this call.
func CheckAchievements(db *DB, accountID int64, match PlayerStats, won bool) []AchievementDef {
	if db == nil || accountID == 0 {
		return nil
	}

	stats, err := db.GetStats(accountID)
	if err != nil || stats == nil {
		return nil
	}

	existing, err := db.GetAchievements(accountID)
	if err != nil {
		return nil
	}
	has := make(map[string]bool, len(existing))
	for _, a := range existing {
		has[a] = true
	}

	check := func(id string) bool {
		switch id {
		case "first_blood":
			return stats.Kills >= 1
		case "bed_bug":
			return stats.BedsBroken >= 1
		case "insomniac":
			return match.BedsBroken >= 2
		case "demolisher":
			return stats.BedsBroken >= 50
		case "final_blow":
			return stats.FinalKills >= 1
		case "executioner":
			return stats.FinalKills >= 100
		case "flawless":
			return won && match.Deaths == 0
		case "victor":
			return stats.Wins >= 10
		case "veteran":
			return stats.Level >= 10
		case "legend":
			return stats.Level >= 50
		case "survivor":
			return stats.Playtime >= 3600
		}
		return false
	}

	var unlocked []AchievementDef
	for _, def := range Achievements {
		if has[def.ID] || !check(def.ID) {
			continue
		}
		if fresh, err := db.UnlockAchievement(accountID, def.ID); err == nil && fresh {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}
