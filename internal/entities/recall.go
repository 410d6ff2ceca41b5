package entities

import (
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

var moodWords = map[string]string{
	"great": "great", "amazing": "great", "happy": "great",
	"good": "good", "calm": "good", "fine": "okay", "okay": "okay", "ok": "okay",
	"sad": "low", "tired": "low", "stressed": "low", "anxious": "low", "low": "low",
}

func init() {
	register(kindDef{
		entity:  models.EntityRecall,
		label:   "journal entry",
		plural:  "journal entries",
		nameKey: "content",
		textKey: "content",
		strip:   []string{"recall", "journal", "diary", "reflection", "entry", "memory"},
		verbs:   []flow.Verb{flow.VerbUpdate},
		fields:  recallFields,
		parse:   parseRecall,
		update:  parseMood,
		details: recallDetails,
		title:   recallTitle,
		prepare: func(data models.Data, now time.Time) models.Data {
			if data.IsMissing("date") {
				data["date"] = today(now)
			}
			return data
		},
	})
}

func recallFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "content", Label: "Entry", Question: "What's on your mind?", Parser: "text"},
		{Key: "mood", Label: "Mood", Question: "How are you feeling?", Optional: true, Options: []string{"Great", "Good", "Okay", "Low"}, Parser: "choice"},
	}
}

// parseRecall keeps the text after a colon verbatim as the entry.
func parseRecall(text string, now time.Time) models.Data {
	data := models.Data{}
	if _, after, ok := strings.Cut(text, ":"); ok && strings.TrimSpace(after) != "" {
		data["content"] = strings.TrimSpace(after)
	}
	return data.Merge(parseMood(text, now))
}

func parseMood(text string, now time.Time) models.Data {
	n := textutil.NormalizeText(text)
	if !textutil.ContainsWord(n, "feeling") && !textutil.ContainsWord(n, "mood") && !textutil.ContainsWord(n, "felt") {
		return nil
	}
	for _, w := range strings.Fields(n) {
		if mood, ok := moodWords[w]; ok {
			return models.Data{"mood": mood}
		}
	}
	return nil
}

// recallTitle names an entry by its opening words.
func recallTitle(d models.Data) string {
	if c := d.String("content"); c != "" {
		return snippet(c, 6)
	}
	return d.String("name")
}

func recallDetails(d models.Data) []string {
	mood := ""
	if m := d.String("mood"); m != "" {
		mood = "feeling " + m
	}
	return nonEmpty(d.String("date"), mood)
}
