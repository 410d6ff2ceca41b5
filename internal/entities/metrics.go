package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// defaultUnits fills the unit of well-known metrics.
var defaultUnits = map[string]string{
	"weight": "kg",
	"sleep":  "hours",
	"water":  "glasses",
	"steps":  "steps",
	"mood":   "/10",
}

var (
	metricStrip   = []string{"metric", "metrics", "stat", "stats"}
	unitPattern   = regexp.MustCompile(`(?i)\d\s*(kg|kgs|lbs?|pounds|hours?|hrs?|glasses|cups|ml|liters?|l|steps|km|miles)\b`)
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

func init() {
	register(kindDef{
		entity:      models.EntityMetrics,
		label:       "metric",
		plural:      "metrics",
		nameKey:     "name",
		strip:       metricStrip,
		latestFirst: true,
		fields:      metricFields,
		parse:       parseMetric,
		details:     metricDetails,
		prepare:     prepareMetric,
		viewAll:     metricHistory,
	})
}

func metricFields(data models.Data) []models.FlowField {
	value := "What's the value?"
	if name := data.String("name"); name != "" {
		value = fmt.Sprintf("What's your %s today?", strings.ToLower(name))
	}
	return []models.FlowField{
		{Key: "name", Label: "Metric", Question: "Which metric are you logging?", Options: []string{"Weight", "Sleep", "Water", "Steps", "Mood"}, Parser: "name"},
		{Key: "value", Label: "Value", Question: value, Parser: "number"},
		{Key: "unit", Label: "Unit", Question: "Which unit?", Optional: true, Parser: "text"},
	}
}

func parseMetric(text string, now time.Time) models.Data {
	x := newExtractor(text, metricStrip, now)
	if m := unitPattern.FindStringSubmatch(text); m != nil {
		x.data["unit"] = strings.ToLower(m[1])
		x.strip = append(x.strip, strings.ToLower(m[1]))
	}
	if v, ok := textutil.FirstNumber(text); ok {
		x.data["value"] = v
		x.text = numberPattern.ReplaceAllString(x.text, " ")
	}
	n := textutil.NormalizeText(text)
	for _, known := range []string{"weight", "sleep", "water", "steps", "mood"} {
		if textutil.ContainsWord(n, known) {
			x.data["name"] = textutil.TitleCase(known)
			return x.data
		}
	}
	x.name("name")
	return x.data
}

func prepareMetric(data models.Data, now time.Time) models.Data {
	if data.IsMissing("unit") {
		if unit, ok := defaultUnits[strings.ToLower(data.String("name"))]; ok {
			data["unit"] = unit
		}
	}
	data["date"] = today(now)
	return data
}

// formatValue renders a metric reading with its unit.
func formatValue(d models.Data) string {
	v, ok := d.Float("value")
	if !ok {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if unit := d.String("unit"); unit != "" {
		if strings.HasPrefix(unit, "/") {
			return s + unit
		}
		return s + " " + unit
	}
	return s
}

func metricDetails(d models.Data) []string {
	return nonEmpty(formatValue(d), d.String("date"))
}

// metricHistory shows the latest reading and up to five recent values.
func metricHistory(rec models.Record, same []models.Record) string {
	if len(same) == 0 {
		same = []models.Record{rec}
	}
	latest := same[len(same)-1]
	recent := same
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	values := make([]string, 0, len(recent))
	for _, r := range recent {
		values = append(values, formatValue(r.Data))
	}
	return fmt.Sprintf("%s: latest %s on %s. Recent: %s.", latest.Name, formatValue(latest.Data), latest.Data.String("date"), strings.Join(values, ", "))
}
