// Package command maps transcribed voice text to map actions.
package command

import "strings"

// Action is the symbolic name returned to the browser for a voice command.
type Action string

const (
	ZoomIn          Action = "zoomIn"
	ZoomOut         Action = "zoomOut"
	FindRestaurants Action = "findRestaurants"

	// NotRecognized is returned when no trigger phrase matches.
	NotRecognized Action = "Command not recognized"
)

// Recognized reports whether a matched a trigger phrase.
func (a Action) Recognized() bool {
	return a != NotRecognized
}

func (a Action) String() string {
	return string(a)
}

// Rule pairs a lowercase trigger phrase with the action it selects.
type Rule struct {
	Trigger string
	Action  Action
}

// rules is a priority list: the first trigger contained in the input wins.
var rules = []Rule{
	{Trigger: "zoom in", Action: ZoomIn},
	{Trigger: "zoom out", Action: ZoomOut},
	{Trigger: "find restaurant", Action: FindRestaurants},
}

// Rules returns a copy of the trigger table in priority order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Actions lists every action Classify can return, sentinel last.
func Actions() []Action {
	out := make([]Action, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.Action)
	}
	return append(out, NotRecognized)
}

// Classify lowercases text and returns the action of the first rule whose
// trigger is a substring of it. Any input, including "", yields a result.
func Classify(text string) Action {
	normalized := strings.ToLower(text)
	for _, r := range rules {
		if strings.Contains(normalized, r.Trigger) {
			return r.Action
		}
	}
	return NotRecognized
}

// Classifier adapts Classify to the controlplane.Classifier interface.
type Classifier struct{}

func (Classifier) Classify(text string) Action {
	return Classify(text)
}
