package entities

import (
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

var knowledgeStrip = []string{"note", "notes", "knowledge", "idea", "ideas", "jot", "jot down", "write down"}

func init() {
	register(kindDef{
		entity:  models.EntityKnowledge,
		label:   "note",
		plural:  "notes",
		nameKey: "title",
		strip:   knowledgeStrip,
		verbs:   []flow.Verb{flow.VerbUpdate},
		fields:  knowledgeFields,
		parse:   parseKnowledge,
		textKey: "content",
		details: knowledgeDetails,
	})
}

func knowledgeFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Title", Question: "What should I title this note?", Parser: "name"},
		{Key: "content", Label: "Content", Question: "What would you like the note to say?", Parser: "text"},
		{Key: "tags", Label: "Tags", Question: "Any tags? Separate them with commas.", Optional: true, Parser: "list"},
	}
}

// parseKnowledge treats the text after a colon as the note body; the words before
// it, or the first words of the body, become the title.
func parseKnowledge(text string, now time.Time) models.Data {
	x := newExtractor(text, knowledgeStrip, now)
	before, after, ok := strings.Cut(text, ":")
	if ok && strings.TrimSpace(after) != "" {
		x.data["content"] = strings.TrimSpace(after)
		x.text = before
	}
	if !x.name("title") && !x.data.IsMissing("content") {
		x.data["title"] = textutil.TitleCase(snippet(x.data.String("content"), 5))
	}
	return x.data
}

func knowledgeDetails(d models.Data) []string {
	tags := ""
	if t := d.Strings("tags"); len(t) > 0 {
		tags = "#" + strings.Join(t, " #")
	}
	return nonEmpty(snippet(d.String("content"), 8), tags)
}

// snippet returns the first n words of s, marking the cut with an ellipsis.
func snippet(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
