package entities

import (
	"fmt"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

var achievementStrip = []string{"achievement", "achievements", "badge", "badges", "milestone", "milestones", "trophy", "award", "unlock", "unlocked"}

func init() {
	register(kindDef{
		entity:   models.EntityAchievement,
		label:    "achievement",
		plural:   "achievements",
		nameKey:  "title",
		textKey:  "description",
		strip:    achievementStrip,
		verbs:    []flow.Verb{flow.VerbUpdate, flow.VerbComplete},
		fields:   achievementFields,
		parse:    parseAchievement,
		details:  achievementDetails,
		complete: unlockAchievement,
	})
}

func achievementFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Name", Question: "What's the achievement?", Parser: "name"},
		{Key: "description", Label: "Description", Question: "Want to add a short description?", Optional: true, Parser: "text"},
	}
}

func parseAchievement(text string, now time.Time) models.Data {
	x := newExtractor(text, achievementStrip, now)
	x.name("title")
	return x.data
}

func achievementDetails(d models.Data) []string {
	if at := d.String("unlockedAt"); at != "" {
		return []string{"unlocked " + at}
	}
	return []string{"locked"}
}

func unlockAchievement(rec *models.Record, now time.Time) (string, bool) {
	if at := rec.Data.String("unlockedAt"); at != "" {
		return fmt.Sprintf("You already unlocked %q on %s.", rec.Name, at), false
	}
	rec.Data["unlocked"] = true
	rec.Data["unlockedAt"] = today(now)
	return fmt.Sprintf("Achievement unlocked: %q!", rec.Name), true
}
