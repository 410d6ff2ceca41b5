package textutil

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ParsedTime is a clock time recognized in free text.
type ParsedTime struct {
	Time24    string // "HH:MM"; empty for "anytime"
	Label     string // human label, e.g. "5:00 PM" or "Morning"
	TimeOfDay string // morning, afternoon, evening or anytime
	Match     string // the lowercased fragment that was recognized
}

var (
	time12Pattern = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am\b|pm\b|a\.m\.|p\.m\.)`)
	time24Pattern = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
)

var timeWords = []struct {
	word, time24, label, bucket string
}{
	{"anytime", "", "Anytime", "anytime"},
	{"any time", "", "Anytime", "anytime"},
	{"morning", "08:00", "Morning", "morning"},
	{"afternoon", "13:00", "Afternoon", "afternoon"},
	{"evening", "18:00", "Evening", "evening"},
	{"tonight", "21:00", "Night", "evening"},
	{"night", "21:00", "Night", "evening"},
}

// ParseTime recognizes an explicit 12-hour ("5pm", "7:30 am") or 24-hour ("17:45")
// clock time, falling back to the words anytime, morning, afternoon, evening and night.
func ParseTime(s string) (ParsedTime, bool) {
	lower := strings.ToLower(s)

	if m := time12Pattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour >= 1 && hour <= 12 && minute < 60 {
			pm := strings.HasPrefix(m[3], "p")
			if hour == 12 {
				hour = 0
			}
			if pm {
				hour += 12
			}
			return clockTime(hour, minute, m[0]), true
		}
	}

	if m := time24Pattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return clockTime(hour, minute, m[0]), true
	}

	n := NormalizeText(lower)
	for _, w := range timeWords {
		if ContainsWord(n, w.word) {
			return ParsedTime{Time24: w.time24, Label: w.label, TimeOfDay: w.bucket, Match: w.word}, true
		}
	}
	return ParsedTime{}, false
}

func clockTime(hour, minute int, match string) ParsedTime {
	return ParsedTime{
		Time24:    fmt.Sprintf("%02d:%02d", hour, minute),
		Label:     FormatClock(hour, minute),
		TimeOfDay: Bucket(hour),
		Match:     match,
	}
}

// FormatClock renders a 24-hour time as "h:mm AM/PM".
func FormatClock(hour, minute int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}

// FormatTime24 renders an "HH:MM" string as "h:mm AM/PM". Unparseable input is returned as is.
func FormatTime24(t string) string {
	var hour, minute int
	if _, err := fmt.Sscanf(t, "%d:%d", &hour, &minute); err != nil {
		return t
	}
	return FormatClock(hour, minute)
}

// Bucket maps an hour to morning (<12), afternoon (12-16) or evening (>=17).
func Bucket(hour int) string {
	switch {
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

// Frequency is a weekday set with a display label. Days use 0=Sunday..6=Saturday.
type Frequency struct {
	Days  []int
	Label string
}

var weekdayTokens = map[string]int{
	"sunday": 0, "sundays": 0, "sun": 0,
	"monday": 1, "mondays": 1, "mon": 1,
	"tuesday": 2, "tuesdays": 2, "tue": 2, "tues": 2,
	"wednesday": 3, "wednesdays": 3, "wed": 3,
	"thursday": 4, "thursdays": 4, "thu": 4, "thur": 4, "thurs": 4,
	"friday": 5, "fridays": 5, "fri": 5,
	"saturday": 6, "saturdays": 6, "sat": 6,
}

// WeekdayAbbrev holds the three-letter weekday names indexed by day number.
var WeekdayAbbrev = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// ParseFrequency recognizes daily, weekdays, weekends, explicit weekday names and weekly.
func ParseFrequency(s string) (Frequency, bool) {
	n := NormalizeText(s)
	if n == "" {
		return Frequency{}, false
	}
	switch {
	case ContainsWord(n, "daily"), ContainsWord(n, "every day"), ContainsWord(n, "everyday"):
		return Frequency{Days: []int{0, 1, 2, 3, 4, 5, 6}, Label: "Daily"}, true
	case ContainsWord(n, "weekdays"), ContainsWord(n, "weekday"):
		return Frequency{Days: []int{1, 2, 3, 4, 5}, Label: "Weekdays"}, true
	case ContainsWord(n, "weekends"), ContainsWord(n, "weekend"):
		return Frequency{Days: []int{0, 6}, Label: "Weekends"}, true
	}

	seen := map[int]bool{}
	for _, tok := range strings.Fields(n) {
		if d, ok := weekdayTokens[tok]; ok {
			seen[d] = true
		}
	}
	if len(seen) > 0 {
		days := make([]int, 0, len(seen))
		for d := range seen {
			days = append(days, d)
		}
		sort.Ints(days)
		return Frequency{Days: days, Label: DaysLabel(days)}, true
	}

	if ContainsWord(n, "weekly") || ContainsWord(n, "every week") {
		return Frequency{Days: []int{1}, Label: "Weekly (Mon)"}, true
	}
	return Frequency{}, false
}

// DaysLabel joins the abbreviations of days with ", ".
func DaysLabel(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < 7 {
			names = append(names, WeekdayAbbrev[d])
		}
	}
	return strings.Join(names, ", ")
}

var (
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDatePattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
)

// DateLayout is the ISO calendar date format returned by ParseDate.
const DateLayout = "2006-01-02"

// ParseDate recognizes today, tomorrow, yesterday, YYYY-MM-DD and M/D[/YY|/YYYY]
// relative to now, returning an ISO date.
func ParseDate(s string, now time.Time) (string, bool) {
	lower := strings.ToLower(s)
	n := NormalizeText(lower)
	switch {
	case ContainsWord(n, "today"), ContainsWord(n, "tonight"):
		return now.Format(DateLayout), true
	case ContainsWord(n, "tomorrow"):
		return now.AddDate(0, 0, 1).Format(DateLayout), true
	case ContainsWord(n, "yesterday"):
		return now.AddDate(0, 0, -1).Format(DateLayout), true
	}

	if m := isoDatePattern.FindStringSubmatch(lower); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return validDate(y, mo, d, now.Location())
	}

	if m := slashDatePattern.FindStringSubmatch(lower); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		y := now.Year()
		if m[3] != "" {
			y, _ = strconv.Atoi(m[3])
			if len(m[3]) == 2 {
				y += 2000
			}
		}
		return validDate(y, mo, d, now.Location())
	}
	return "", false
}

func validDate(y, mo, d int, loc *time.Location) (string, bool) {
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Day() != d || int(t.Month()) != mo {
		return "", false
	}
	return t.Format(DateLayout), true
}
