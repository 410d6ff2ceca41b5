package entities

import (
	"regexp"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// Words dropped from a name once their meaning has been parsed.
var (
	frequencyWords = []string{
		"every day", "everyday", "daily", "weekdays", "weekday", "weekends", "weekend",
		"every week", "weekly", "sundays", "sunday", "mondays", "monday", "tuesdays", "tuesday",
		"wednesdays", "wednesday", "thursdays", "thursday", "fridays", "friday", "saturdays", "saturday",
	}
	dateWords     = []string{"today", "tonight", "tomorrow", "yesterday", "due", "on"}
	priorityWords = []string{"high priority", "low priority", "medium priority", "priority", "urgent", "asap", "high", "low", "medium", "normal"}
	categoryWords = []string{"health", "healthy", "fitness", "exercise", "wellness", "mindful", "mindfulness", "meditation", "learning", "study", "personal", "growth", "social", "work"}

	datePattern     = regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b|\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`)
	durationPattern = regexp.MustCompile(`(?i)\bfor\s+(\d+)\s*(minutes?|mins?|hours?|hrs?|h)\b`)
)

// extractor pulls typed fragments out of an utterance one concern at a time. Every
// recognized fragment is removed from the text, or its words are queued for
// stripping, so that what remains can become the name.
type extractor struct {
	text  string
	strip []string
	data  models.Data
	now   time.Time
}

func newExtractor(text string, strip []string, now time.Time) *extractor {
	return &extractor{
		text:  text,
		strip: append([]string(nil), strip...),
		data:  models.Data{},
		now:   now,
	}
}

// clock stores time24 (for explicit or word times), timeLabel and timeOfDay.
func (x *extractor) clock() bool {
	t, ok := textutil.ParseTime(x.text)
	if !ok {
		return false
	}
	if t.Time24 != "" {
		x.data["time24"] = t.Time24
	}
	x.data["timeLabel"] = t.Label
	x.data["timeOfDay"] = t.TimeOfDay
	x.text = textutil.RemoveFold(x.text, t.Match)
	return true
}

// frequency stores the weekday set under "days" and its label under key.
func (x *extractor) frequency(key string) bool {
	f, ok := textutil.ParseFrequency(x.text)
	if !ok {
		return false
	}
	x.data["days"] = f.Days
	x.data[key] = f.Label
	x.strip = append(x.strip, frequencyWords...)
	return true
}

func (x *extractor) date(key string) bool {
	d, ok := textutil.ParseDate(x.text, x.now)
	if !ok {
		return false
	}
	x.data[key] = d
	x.text = datePattern.ReplaceAllString(x.text, " ")
	x.strip = append(x.strip, dateWords...)
	return true
}

func (x *extractor) priority(key string) bool {
	p, ok := textutil.ExtractPriority(x.text)
	if !ok {
		return false
	}
	x.data[key] = p
	x.strip = append(x.strip, priorityWords...)
	return true
}

func (x *extractor) category(key string) bool {
	c, ok := textutil.ExtractCategory(x.text)
	if !ok {
		return false
	}
	x.data[key] = c
	x.strip = append(x.strip, categoryWords...)
	return true
}

// minutes reads "for 30 minutes" or "for 2 hours" as a duration in minutes.
func (x *extractor) minutes(key string) bool {
	m := durationPattern.FindStringSubmatch(x.text)
	if m == nil {
		return false
	}
	n, _ := textutil.FirstInt(m[1])
	if m[2][0] == 'h' || m[2][0] == 'H' {
		n *= 60
	}
	x.data[key] = n
	x.text = durationPattern.ReplaceAllString(x.text, " ")
	return true
}

// name stores whatever is left of the text, minus filler and stripped words.
func (x *extractor) name(key string) bool {
	name, ok := textutil.ExtractName(x.text, x.strip)
	if !ok {
		return false
	}
	x.data[key] = name
	return true
}

// timeLabel renders the stored time of d for details lines.
func timeLabel(d models.Data) string {
	if l := d.String("timeLabel"); l != "" {
		return l
	}
	if t := d.String("time24"); t != "" {
		return textutil.FormatTime24(t)
	}
	return ""
}

// nonEmpty drops blank entries.
func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// today returns now's calendar date in the ISO layout.
func today(now time.Time) string {
	return now.Format(textutil.DateLayout)
}
