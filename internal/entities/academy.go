package entities

import (
	"fmt"
	"regexp"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

var (
	academyStrip   = []string{"academy", "course", "courses", "lesson", "lessons", "class", "classes", "module"}
	lessonsPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:lessons?|modules?|classes)\b`)
)

func init() {
	register(kindDef{
		entity:          models.EntityAcademy,
		label:           "course",
		plural:          "courses",
		nameKey:         "title",
		strip:           academyStrip,
		verbs:           []flow.Verb{flow.VerbComplete},
		fields:          academyFields,
		parse:           parseAcademy,
		details:         academyDetails,
		complete:        advanceCourse,
		confirmComplete: confirmCourse,
	})
}

func academyFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Name", Question: "Which course is it?", Parser: "name"},
		{Key: "lessons", Label: "Lessons", Question: "How many lessons does it have?", Options: []string{"5", "10", "20"}, Parser: "number"},
	}
}

func parseAcademy(text string, now time.Time) models.Data {
	x := newExtractor(text, academyStrip, now)
	if m := lessonsPattern.FindStringSubmatch(text); m != nil {
		n, _ := textutil.FirstInt(m[1])
		x.data["lessons"] = n
		x.text = lessonsPattern.ReplaceAllString(x.text, " ")
	}
	x.name("title")
	return x.data
}

func academyDetails(d models.Data) []string {
	lessons, _ := d.Int("lessons")
	done, _ := d.Int("lessonsDone")
	enrolled, _ := d.Bool("enrolled")
	completed, _ := d.Bool("completed")
	switch {
	case completed:
		return []string{"completed"}
	case enrolled:
		return []string{fmt.Sprintf("%d/%d lessons done", done, lessons)}
	case lessons > 0:
		return []string{fmt.Sprintf("%d lessons", lessons)}
	default:
		return nil
	}
}

func confirmCourse(name string, item models.Data) string {
	if enrolled, _ := item.Bool("enrolled"); !enrolled {
		return fmt.Sprintf("Enroll in course %q?", name)
	}
	done, _ := item.Int("lessonsDone")
	return fmt.Sprintf("Mark lesson %d of %q as done?", done+1, name)
}

// advanceCourse enrolls on the first completion and advances one lesson on each
// later one; finishing the last lesson completes the course.
func advanceCourse(rec *models.Record, now time.Time) (string, bool) {
	if completed, _ := rec.Data.Bool("completed"); completed {
		return fmt.Sprintf("You already finished %q.", rec.Name), false
	}
	lessons, _ := rec.Data.Int("lessons")
	if enrolled, _ := rec.Data.Bool("enrolled"); !enrolled {
		rec.Data["enrolled"] = true
		rec.Data["lessonsDone"] = 0
		rec.Data["enrolledAt"] = today(now)
		return fmt.Sprintf("You're enrolled in %q. %d lessons to go.", rec.Name, lessons), true
	}
	done, _ := rec.Data.Int("lessonsDone")
	done++
	rec.Data["lessonsDone"] = done
	if lessons > 0 && done >= lessons {
		rec.Data["completed"] = true
		rec.Data["completedAt"] = today(now)
		return fmt.Sprintf("Congratulations, you finished %q!", rec.Name), true
	}
	return fmt.Sprintf("Lesson %d of %d done in %q.", done, lessons, rec.Name), true
}
