// Package wake detects wake phrases in transcripts with a local,
// backend-independent substring match. It is the fast pre-filter used by
// the listen mode: no external calls, no state, no failure mode beyond
// returning false.
package wake

import "strings"

// phrases are the recognized wake phrases, including the common STT
// misrecognitions of the coach's name.
var phrases = []string{
	"시선 코치",
	"시선코치",
	"시선 고치",
	"시선고치",
}

// Detect reports whether transcript contains a wake phrase. Matching is
// whitespace-insensitive and case-insensitive.
func Detect(transcript string) bool {
	clean := strings.ToLower(strings.ReplaceAll(transcript, " ", ""))
	for _, p := range phrases {
		if strings.Contains(clean, strings.ReplaceAll(p, " ", "")) {
			return true
		}
	}
	return false
}
