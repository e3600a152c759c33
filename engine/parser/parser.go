// Package parser converts player input into Intent structs for the
// frontends. Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strconv"
	"strings"

	"github.com/nathoo/taleweaver/types"
)

// Verbs the frontends act on.
const (
	VerbGo        = "go"
	VerbUse       = "use"
	VerbTalk      = "talk"
	VerbTrigger   = "trigger"
	VerbContinue  = "continue"
	VerbChoose    = "choose"
	VerbWait      = "wait"
	VerbLook      = "look"
	VerbInventory = "inventory"
)

var verbAliases = map[string]string{
	// Movement
	"walk":   "go",
	"move":   "go",
	"head":   "go",
	"travel": "go",
	"enter":  "go",

	// Use
	"operate":  "use",
	"activate": "use",
	"open":     "use",

	// Talk
	"ask":      "talk",
	"speak":    "talk",
	"chat":     "talk",
	"converse": "talk",
	"greet":    "talk",

	// Trigger
	"fire": "trigger",

	// Scene input
	"c":      "continue",
	"next":   "continue",
	"more":   "continue",
	"select": "choose",
	"option": "choose",
	"pick":   "choose",
	"answer": "choose",

	// Time
	"z":     "wait",
	"rest":  "wait",
	"sleep": "wait",

	// Miscellaneous
	"l":       "look",
	"x":       "look",
	"examine": "look",
	"i":       "inventory",
	"inv":     "inventory",
}

var prepositions = map[string]bool{
	"on": true, "at": true, "to": true,
	"with": true, "in": true, "about": true,
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// Parse converts a raw command string into an Intent. The verb is
// lower-cased; objects keep their case because entity ids and trigger names
// are matched by the engine, not here.
func Parse(input string) types.Intent {
	words := strings.Fields(input)
	if len(words) == 0 {
		return types.Intent{}
	}

	// A bare number picks a choice.
	if len(words) == 1 {
		if _, err := strconv.Atoi(words[0]); err == nil {
			return types.Intent{Verb: VerbChoose, Object: words[0]}
		}
	}

	words = expandMultiWordVerbs(words)
	verb := strings.ToLower(words[0])
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	rest := words[1:]

	// Trigger names are passed through verbatim; a trailing kind:id names
	// the entity.
	if verb == VerbTrigger {
		return parseTrigger(rest)
	}

	rest = stripArticles(rest)
	object, target := splitOnPreposition(rest)
	return types.Intent{Verb: verb, Object: object, Target: target}
}

func parseTrigger(words []string) types.Intent {
	intent := types.Intent{Verb: VerbTrigger}
	if n := len(words); n > 1 && strings.Contains(words[n-1], ":") {
		intent.Target = words[n-1]
		words = words[:n-1]
	}
	intent.Object = strings.Join(words, " ")
	return intent
}

// expandMultiWordVerbs handles "talk to", "look at", "go to" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}
	second := strings.ToLower(words[1])

	switch strings.ToLower(words[0]) {
	case "look":
		if second == "at" || second == "around" {
			return append([]string{"look"}, words[2:]...)
		}
	case "talk", "speak", "chat":
		if second == "to" || second == "with" {
			return append([]string{"talk"}, words[2:]...)
		}
	case "go", "walk", "head", "travel":
		if second == "to" || second == "into" {
			return append([]string{"go"}, words[2:]...)
		}
	case "pick", "choose", "select":
		if second == "option" || second == "choice" {
			return append([]string{"choose"}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[strings.ToLower(w)] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnPreposition splits words on the first preposition.
// Words before the preposition become the object, words after become the target.
// If no preposition is found, all words become the object.
func splitOnPreposition(words []string) (object, target string) {
	for i, w := range words {
		if i > 0 && prepositions[strings.ToLower(w)] {
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, target
		}
	}
	return strings.Join(words, " "), ""
}
