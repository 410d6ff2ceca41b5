package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

var protocolStrip = []string{"protocol", "protocols", "routine", "routines", "ritual", "sequence", "steps"}

func init() {
	flow.RegisterParser("protocol.durations", parseDurations)
	register(kindDef{
		entity:   models.EntityProtocol,
		label:    "protocol",
		plural:   "protocols",
		nameKey:  "title",
		strip:    protocolStrip,
		verbs:    []flow.Verb{flow.VerbUpdate, flow.VerbComplete},
		fields:   protocolFields,
		parse:    parseProtocol,
		update:   parseProtocolUpdate,
		details:  protocolDetails,
		complete: runProtocol,
	})
}

// protocolFields asks for durations against the steps already collected.
func protocolFields(data models.Data) []models.FlowField {
	durations := "How many minutes should each step take?"
	if steps := data.Strings("steps"); len(steps) > 0 {
		durations = fmt.Sprintf("How many minutes for each step (%s)?", strings.Join(steps, ", "))
	}
	return []models.FlowField{
		{Key: "title", Label: "Name", Question: "What should I call this protocol?", Parser: "name"},
		{Key: "steps", Label: "Steps", Question: "What are the steps? Separate them with commas.", Parser: "list"},
		{Key: "durations", Label: "Durations", Question: durations, Options: []string{"5", "10", "15"}, Parser: "protocol.durations"},
		{Key: "time24", Label: "Time", Question: "What time do you usually run it?", Optional: true, Parser: "time"},
	}
}

// parseDurations matches minutes to the collected steps. A segment naming a step
// sets that step; the remaining numbers fill the other steps in order and the last
// number repeats for any step left over.
func parseDurations(input string, pc flow.ParseContext) models.Data {
	nums := textutil.AllInts(input)
	if len(nums) == 0 {
		return nil
	}
	steps := pc.Data.Strings("steps")
	if len(steps) == 0 {
		return models.Data{pc.Key: nums, "totalMinutes": sum(nums)}
	}

	out := make([]int, len(steps))
	assigned := make([]bool, len(steps))
	var unnamed []int
	for _, seg := range textutil.SplitList(input) {
		segNums := textutil.AllInts(seg)
		if len(segNums) == 0 {
			continue
		}
		ns := textutil.NormalizeText(seg)
		named := false
		for i, step := range steps {
			if !assigned[i] && textutil.ContainsWord(ns, textutil.NormalizeText(step)) {
				out[i], assigned[i], named = segNums[0], true, true
				break
			}
		}
		if !named {
			unnamed = append(unnamed, segNums...)
		}
	}

	next := 0
	last := nums[len(nums)-1]
	if len(unnamed) > 0 {
		last = unnamed[len(unnamed)-1]
	}
	for i := range steps {
		if assigned[i] {
			continue
		}
		if next < len(unnamed) {
			out[i] = unnamed[next]
			next++
		} else {
			out[i] = last
		}
	}
	return models.Data{pc.Key: out, "totalMinutes": sum(out)}
}

func sum(nums []int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func parseProtocol(text string, now time.Time) models.Data {
	x := newExtractor(text, protocolStrip, now)
	if i := stepsColon(text); i >= 0 {
		if steps := textutil.SplitList(text[i+1:]); len(steps) > 0 {
			x.data["steps"] = steps
		}
		x.text = text[:i]
	}
	x.clock()
	x.name("title")
	return x.data
}

// stepsColon returns the index of the colon introducing a step list, skipping
// colons inside clock times such as 7:30. It returns -1 when there is none.
func stepsColon(text string) int {
	isDigit := func(i int) bool { return i >= 0 && i < len(text) && text[i] >= '0' && text[i] <= '9' }
	for i := 0; i < len(text); i++ {
		if text[i] == ':' && !(isDigit(i-1) && isDigit(i+1)) {
			return i
		}
	}
	return -1
}

func parseProtocolUpdate(value string, now time.Time) models.Data {
	x := newExtractor(value, nil, now)
	x.clock()
	return x.data
}

func protocolDetails(d models.Data) []string {
	steps, total, runs := "", "", ""
	if s := d.Strings("steps"); len(s) > 0 {
		steps = fmt.Sprintf("%d steps", len(s))
	}
	if n, ok := d.Int("totalMinutes"); ok && n > 0 {
		total = fmt.Sprintf("%d min", n)
	}
	if n, ok := d.Int("runCount"); ok && n > 0 {
		runs = fmt.Sprintf("run %d times", n)
	}
	return nonEmpty(steps, total, timeLabel(d), runs)
}

func runProtocol(rec *models.Record, now time.Time) (string, bool) {
	runs, _ := rec.Data.Int("runCount")
	runs++
	rec.Data["runCount"] = runs
	rec.Data["lastRun"] = today(now)
	return fmt.Sprintf("Logged a run of %q. That's %d so far.", rec.Name, runs), true
}
