package stt_test

import (
	"github.com/siseonlab/voicecoach/adapters/stt"
	"github.com/siseonlab/voicecoach/domain/repositories"
)

var _ repositories.SpeechToText = &stt.GoogleSpeechToText{}
var _ repositories.SpeechToText = &stt.MockSpeechToText{}
