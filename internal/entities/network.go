package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

var (
	networkStrip  = []string{"network", "contact", "contacts", "connection", "connections", "person", "people", "check in", "checkin", "catch up"}
	relationWords = map[string]string{
		"friend": "friend", "friends": "friend",
		"family": "family",
		"colleague": "colleague", "coworker": "colleague",
		"mentor": "mentor",
	}
)

func init() {
	register(kindDef{
		entity:   models.EntityNetwork,
		label:    "contact",
		plural:   "contacts",
		nameKey:  "name",
		strip:    networkStrip,
		verbs:    []flow.Verb{flow.VerbUpdate, flow.VerbComplete},
		fields:   networkFields,
		parse:    parseNetwork,
		update:   parseNetworkUpdate,
		details:  networkDetails,
		complete: checkIn,
	})
}

func networkFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "name", Label: "Name", Question: "Who would you like to keep in touch with?", Parser: "name"},
		{Key: "relation", Label: "Relation", Question: "How do you know them?", Optional: true, Options: []string{"Friend", "Family", "Colleague", "Mentor"}, Parser: "choice"},
		{Key: "contactFrequency", Label: "Frequency", Question: "How often do you want to reach out?", Options: []string{"Weekly", "Weekends", "Daily"}, Parser: "frequency"},
	}
}

func parseNetwork(text string, now time.Time) models.Data {
	x := newExtractor(text, networkStrip, now)
	x.frequency("contactFrequency")
	for _, w := range strings.Fields(textutil.NormalizeText(text)) {
		if rel, ok := relationWords[w]; ok {
			x.data["relation"] = rel
			x.strip = append(x.strip, w)
			break
		}
	}
	x.name("name")
	return x.data
}

func parseNetworkUpdate(value string, now time.Time) models.Data {
	x := newExtractor(value, nil, now)
	x.frequency("contactFrequency")
	return x.data
}

func networkDetails(d models.Data) []string {
	last := ""
	if v := d.String("lastContacted"); v != "" {
		last = "last contacted " + v
	}
	return nonEmpty(d.String("relation"), d.String("contactFrequency"), last)
}

func checkIn(rec *models.Record, now time.Time) (string, bool) {
	rec.Data["lastContacted"] = today(now)
	count, _ := rec.Data.Int("checkIns")
	rec.Data["checkIns"] = count + 1
	return fmt.Sprintf("Logged a check-in with %s.", rec.Name), true
}
