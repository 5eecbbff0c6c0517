package controlplane

import "github.com/anshiaggrwal/voice-enabled-geospatial-map-based-web-application/internal/command"

// Classifier maps transcribed voice text to a map action. Implementations
// must be safe for concurrent use; handlers call it from every request.
type Classifier interface {
	Classify(text string) command.Action
}
