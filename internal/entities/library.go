package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

var mediaWords = map[string]string{
	"book": "book", "books": "book", "reading": "book",
	"article": "article", "articles": "article",
	"video": "video", "videos": "video",
	"podcast": "podcast", "podcasts": "podcast", "episode": "podcast",
}

var libraryStrip = []string{"library", "book", "books", "article", "articles", "reading", "podcast", "podcasts", "video", "videos", "episode"}

func init() {
	register(kindDef{
		entity:   models.EntityLibrary,
		label:    "library item",
		plural:   "library items",
		nameKey:  "title",
		strip:    libraryStrip,
		verbs:    []flow.Verb{flow.VerbUpdate, flow.VerbComplete},
		fields:   libraryFields,
		parse:    parseLibrary,
		update:   parseLibraryUpdate,
		details:  libraryDetails,
		complete: finishLibraryItem,
	})
}

func libraryFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Title", Question: "What's the title?", Parser: "name"},
		{Key: "mediaType", Label: "Type", Question: "Is it a book, article, video or podcast?", Options: []string{"Book", "Article", "Video", "Podcast"}, Parser: "choice"},
		{Key: "status", Label: "Status", Question: "Where are you with it?", Optional: true, Options: []string{"To read", "Reading", "Finished"}, Parser: "choice"},
	}
}

func mediaType(text string) (string, bool) {
	for _, w := range strings.Fields(textutil.NormalizeText(text)) {
		if m, ok := mediaWords[w]; ok {
			return m, true
		}
	}
	return "", false
}

func parseLibrary(text string, now time.Time) models.Data {
	x := newExtractor(text, libraryStrip, now)
	if m, ok := mediaType(text); ok {
		x.data["mediaType"] = m
	}
	x.name("title")
	return x.data
}

func parseLibraryUpdate(value string, now time.Time) models.Data {
	n := textutil.NormalizeText(value)
	for _, status := range []string{"to read", "reading", "finished"} {
		if textutil.ContainsWord(n, status) {
			return models.Data{"status": status}
		}
	}
	return nil
}

func libraryDetails(d models.Data) []string {
	return nonEmpty(d.String("mediaType"), d.String("status"))
}

func finishLibraryItem(rec *models.Record, now time.Time) (string, bool) {
	if rec.Data.String("status") == "finished" {
		return fmt.Sprintf("You already finished %q.", rec.Name), false
	}
	rec.Data["status"] = "finished"
	rec.Data["finishedAt"] = today(now)
	return fmt.Sprintf("Marked %q as finished.", rec.Name), true
}
