package entities

// Action is one of the closed set of exercise-control commands.
type Action string

const (
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionFaster   Action = "faster"
	ActionSlower   Action = "slower"
)

// commandActions is the closed vocabulary for exercise control.
var commandActions = map[Action]bool{
	ActionPause:    true,
	ActionResume:   true,
	ActionNext:     true,
	ActionPrevious: true,
	ActionFaster:   true,
	ActionSlower:   true,
}

// NavAction values form the second closed vocabulary used for general
// system navigation commands.
const (
	ActionNavigateHome     Action = "navigate_home"
	ActionNavigateProfile  Action = "navigate_profile"
	ActionNavigateExercise Action = "navigate_exercise"
	ActionStopListening    Action = "stop_listening"
)

var navActions = map[Action]bool{
	ActionNavigateHome:     true,
	ActionNavigateProfile:  true,
	ActionNavigateExercise: true,
	ActionStopListening:    true,
}

// ParseCommandAction validates s against the exercise-control vocabulary.
// Anything outside the vocabulary returns (nil, false) so that backend
// drift never leaks an unknown action to a client.
func ParseCommandAction(s string) (*Action, bool) {
	a := Action(s)
	if !commandActions[a] {
		return nil, false
	}
	return &a, true
}

// ParseNavAction validates s against the navigation vocabulary.
func ParseNavAction(s string) (*Action, bool) {
	a := Action(s)
	if !navActions[a] {
		return nil, false
	}
	return &a, true
}

// Classification is the output of a command classifier: an action from a
// closed vocabulary (nil when the transcript is not a command) and a
// confidence in [0,1].
type Classification struct {
	Action     *Action `json:"action"`
	Confidence float64 `json:"confidence"`
}

// RecognitionResult is the value returned to a client after one
// processing cycle.
type RecognitionResult struct {
	Transcript string  `json:"message"`
	Action     *Action `json:"action"`
	Confidence float64 `json:"confidence"`
}

// WakeDetection reports whether a transcript contained a wake phrase.
// Local matching is binary, so there is no confidence.
type WakeDetection struct {
	Detected bool `json:"wake_detected"`
}

// FormValue is the output of form-mode normalization: the extracted value
// (nil when the backend could not extract one) and the raw transcript.
type FormValue struct {
	Normalized *string `json:"normalized"`
	Raw        string  `json:"raw"`
}
