// Package parser converts REPL command strings into Intent structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strings"

	"github.com/nathoo/goapcore/types"
)

var verbAliases = map[string]string{
	// Planning
	"p":      "plan",
	"find":   "plan",
	"search": "plan",
	"pa":     "planall",
	"all":    "planall",

	// Inspection
	"check":   "why",
	"explain": "why",
	"f":       "facts",
	"world":   "facts",
	"state":   "facts",
	"b":       "behaviors",
	"actions": "behaviors",

	// World edits
	"clear":  "unset",
	"flip":   "toggle",
	"assume": "set",

	// Miscellaneous
	"target": "goal",
	"who":    "agents",
	"h":      "help",
	"?":      "help",
}

// Words that separate a fact from its value: "set have_job to false".
var valueSeparators = map[string]bool{
	"to": true, "=": true, "is": true,
}

// Filler words dropped before the object: "plan for have_item".
var fillers = map[string]bool{
	"for": true, "the": true, "a": true, "an": true,
}

// Parse converts a raw command string into an Intent.
// The verb is lowercased; fact and behavior IDs keep their case.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(input)
	verb := strings.ToLower(words[0])

	// "set fact=false" arrives as a single token after the verb.
	rest := splitAssignments(words[1:])

	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}

	rest = stripFillers(rest)
	object, target := splitOnSeparator(rest)

	return types.Intent{
		Verb:   verb,
		Object: object,
		Target: strings.ToLower(target),
	}
}

// splitAssignments breaks "fact=value" tokens into "fact", "=", "value".
func splitAssignments(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		name, value, ok := strings.Cut(w, "=")
		if !ok || w == "=" {
			result = append(result, w)
			continue
		}
		if name != "" {
			result = append(result, name)
		}
		result = append(result, "=")
		if value != "" {
			result = append(result, value)
		}
	}
	return result
}

// stripFillers removes leading filler words. A filler is kept when it is the
// last word or comes right before a value separator, since then it is the
// object itself: "plan a", "set a to false".
func stripFillers(words []string) []string {
	for len(words) > 1 && fillers[strings.ToLower(words[0])] &&
		!valueSeparators[strings.ToLower(words[1])] {
		words = words[1:]
	}
	return words
}

// splitOnSeparator splits words on the first value separator.
// Words before the separator become the object, words after become the target.
// Without a separator the first word is the object and the second, if any,
// is the target, so "set have_job false" works too.
func splitOnSeparator(words []string) (object, target string) {
	for i, w := range words {
		if valueSeparators[strings.ToLower(w)] {
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, target
		}
	}
	switch len(words) {
	case 0:
		return "", ""
	case 1:
		return words[0], ""
	default:
		return words[0], strings.Join(words[1:], " ")
	}
}

// ParseBool interprets an Intent target as a fact value.
// An empty target means true.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "t", "yes", "y", "on", "1":
		return true, true
	case "false", "f", "no", "n", "off", "0":
		return false, true
	default:
		return false, false
	}
}
