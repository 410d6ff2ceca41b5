package textutil

import (
	"regexp"
	"strings"
)

var quotedPattern = regexp.MustCompile(`["“”]([^"“”]+)["“”]`)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "my": true, "me": true, "i": true,
	"to": true, "at": true, "for": true, "of": true, "on": true, "in": true,
	"and": true, "please": true, "it": true, "this": true, "that": true,
	"all": true, "todays": true, "today": true, "every": true, "called": true,
	"named": true, "as": true, "is": true, "are": true, "what": true, "can": true,
	"you": true, "could": true, "would": true, "want": true, "wanna": true,
	"new": true, "about": true, "from": true, "with": true, "by": true,
}

var actionVerbs = []string{
	"set up", "sign up", "check off", "get rid of", "how am i doing", "write down", "mark as",
	"create", "add", "make", "setup", "start", "remind", "log", "track", "plan", "record", "write",
	"edit", "change", "update", "modify", "rename", "move", "reschedule", "adjust", "switch",
	"complete", "completed", "done", "finish", "finished", "mark", "tick",
	"delete", "remove", "cancel", "drop", "erase",
	"show", "view", "list", "see", "display", "open", "find", "search",
	"snooze", "postpone", "delay", "export", "download", "share", "invite",
	"enroll", "join", "register", "progress", "stats", "refresh",
}

// ExtractName pulls a free-form name out of an utterance. A quoted fragment wins;
// otherwise stop words, the supplied domain keywords and action verbs are dropped and
// what remains is title-cased. ok is false when nothing remains.
func ExtractName(s string, stripKeywords []string) (string, bool) {
	if m := quotedPattern.FindStringSubmatch(s); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" {
			return TitleCase(name), true
		}
	}

	n := NormalizeText(s)
	for _, kw := range stripKeywords {
		n = RemovePhrase(n, NormalizeText(kw))
	}
	for _, v := range actionVerbs {
		n = RemovePhrase(n, v)
	}

	n = StripStopWords(n)
	if n == "" {
		return "", false
	}
	return TitleCase(n), true
}

// StripStopWords drops stop words from normalized text, as ExtractName does.
func StripStopWords(n string) string {
	words := strings.Fields(n)
	kept := words[:0]
	for _, w := range words {
		if !stopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// IsStopWord reports whether the normalized word carries no naming content.
func IsStopWord(w string) bool {
	return stopWords[w]
}
