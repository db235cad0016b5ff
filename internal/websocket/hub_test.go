package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/entities"
	"github.com/siseonlab/voicecoach/internal/metrics"
	"github.com/siseonlab/voicecoach/usecase"
)

// recordedCycle captures one ProcessStream invocation.
type recordedCycle struct {
	SessionID  string
	PCM        []byte
	SampleRate int
	Format     entities.AudioFormat
}

// mockRecognizer records cycles and replays a canned result or error.
type mockRecognizer struct {
	mu     sync.Mutex
	cycles []recordedCycle

	result entities.RecognitionResult
	err    error
}

func (m *mockRecognizer) ProcessStream(ctx context.Context, sessionID string, pcm []byte, sampleRate int, format entities.AudioFormat) (entities.RecognitionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, recordedCycle{
		SessionID:  sessionID,
		PCM:        append([]byte(nil), pcm...),
		SampleRate: sampleRate,
		Format:     format,
	})
	return m.result, m.err
}

func (m *mockRecognizer) Cycles() []recordedCycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedCycle(nil), m.cycles...)
}

func setupTestHub(t testing.TB, recognizer Recognizer) *Hub {
	t.Helper()
	logger := zap.NewNop()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewHub(recognizer, m, 0, logger)
}

// newTestClient builds a client without a live connection so the message
// handlers can be driven directly.
func newTestClient(hub *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:     hub,
		send:    make(chan WriteData, 256),
		session: entities.NewStreamSession(hub.maxBufferBytes),
		ctx:     ctx,
		cancel:  cancel,
		logger:  zap.NewNop(),
	}
}

func recvJSON(t *testing.T, client *Client) map[string]interface{} {
	t.Helper()
	select {
	case msg := <-client.send:
		if msg.Type != websocket.TextMessage {
			t.Fatalf("expected text frame, got type %d", msg.Type)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return decoded
	case <-time.After(time.Second):
		t.Fatal("no response within timeout")
		return nil
	}
}

func TestHub_NewHub(t *testing.T) {
	hub := setupTestHub(t, &mockRecognizer{})

	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.register == nil {
		t.Error("Hub register channel not initialized")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel not initialized")
	}
}

func TestClient_ProcessCycle(t *testing.T) {
	pause := entities.ActionPause
	recognizer := &mockRecognizer{
		result: entities.RecognitionResult{
			Transcript: "잠깐 멈춰",
			Action:     &pause,
			Confidence: 0.95,
		},
	}
	hub := setupTestHub(t, recognizer)
	client := newTestClient(hub)

	chunkA := bytes.Repeat([]byte{0x01, 0x02}, 1600)
	chunkB := bytes.Repeat([]byte{0x03, 0x04}, 2000)
	client.processAudioChunk(chunkA)
	client.processAudioChunk(chunkB)

	client.processControlMessage([]byte(`{"command":"process"}`))

	response := recvJSON(t, client)
	if response["type"] != "result" {
		t.Fatalf("expected result message, got %v", response["type"])
	}
	if response["message"] != "잠깐 멈춰" {
		t.Errorf("expected transcript in message field, got %v", response["message"])
	}
	if response["action"] != "pause" {
		t.Errorf("expected action pause, got %v", response["action"])
	}
	if response["confidence"] != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", response["confidence"])
	}

	cycles := recognizer.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 processing cycle, got %d", len(cycles))
	}
	want := append(append([]byte(nil), chunkA...), chunkB...)
	if !bytes.Equal(cycles[0].PCM, want) {
		t.Errorf("expected chunks concatenated in arrival order, got %d bytes", len(cycles[0].PCM))
	}
	if cycles[0].SampleRate != entities.DefaultSampleRate {
		t.Errorf("expected default sample rate, got %d", cycles[0].SampleRate)
	}
	if cycles[0].Format != entities.FormatPCM16 {
		t.Errorf("expected pcm16 format, got %s", cycles[0].Format)
	}

	if buffered := client.session.BufferedBytes(); buffered != 0 {
		t.Errorf("expected empty buffer after processing, got %d bytes", buffered)
	}
}

func TestClient_MetadataUpdate(t *testing.T) {
	hub := setupTestHub(t, &mockRecognizer{})
	client := newTestClient(hub)

	client.processAudioChunk([]byte{0x01, 0x02, 0x03, 0x04})
	client.processControlMessage([]byte(`{"command":"audio","sampleRate":48000,"format":"webm_opus"}`))

	if client.session.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", client.session.SampleRate)
	}
	if client.session.Format != entities.FormatWebmOpus {
		t.Errorf("expected webm_opus format, got %s", client.session.Format)
	}
	if buffered := client.session.BufferedBytes(); buffered != 4 {
		t.Errorf("metadata update should keep buffered audio, got %d bytes", buffered)
	}

	// Last write wins.
	client.processControlMessage([]byte(`{"command":"audio","sampleRate":16000,"format":"pcm16"}`))
	if client.session.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000 after second update, got %d", client.session.SampleRate)
	}
}

func TestClient_ProcessEmptyBuffer(t *testing.T) {
	recognizer := &mockRecognizer{err: usecase.ErrNoAudio}
	hub := setupTestHub(t, recognizer)
	client := newTestClient(hub)

	client.processControlMessage([]byte(`{"command":"process"}`))

	response := recvJSON(t, client)
	if response["type"] != "error" {
		t.Fatalf("expected error message, got %v", response["type"])
	}
	if response["message"] != ErrMsgNoAudio {
		t.Errorf("expected %q, got %v", ErrMsgNoAudio, response["message"])
	}

	cycles := recognizer.Cycles()
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}
	if len(cycles[0].PCM) != 0 {
		t.Errorf("expected empty audio handed to pipeline, got %d bytes", len(cycles[0].PCM))
	}
}

func TestClient_DoubleProcessSecondCycleEmpty(t *testing.T) {
	recognizer := &mockRecognizer{}
	hub := setupTestHub(t, recognizer)
	client := newTestClient(hub)

	client.processAudioChunk(bytes.Repeat([]byte{0x05}, 4000))
	client.processControlMessage([]byte(`{"command":"process"}`))
	client.processControlMessage([]byte(`{"command":"process"}`))

	// Drain both responses before inspecting the recorder.
	recvJSON(t, client)
	recvJSON(t, client)

	cycles := recognizer.Cycles()
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycles))
	}
	total := len(cycles[0].PCM) + len(cycles[1].PCM)
	if total != 4000 {
		t.Errorf("audio must be consumed exactly once across cycles, got %d total bytes", total)
	}
}

func TestClient_TranscriptionFailureMessage(t *testing.T) {
	recognizer := &mockRecognizer{
		err: &usecase.TranscriptionError{Err: errors.New("backend unavailable")},
	}
	hub := setupTestHub(t, recognizer)
	client := newTestClient(hub)

	client.processAudioChunk(bytes.Repeat([]byte{0x01}, 4000))
	client.processControlMessage([]byte(`{"command":"process"}`))

	response := recvJSON(t, client)
	if response["type"] != "error" {
		t.Fatalf("expected error message, got %v", response["type"])
	}
	if response["message"] != ErrMsgTranscription {
		t.Errorf("expected %q, got %v", ErrMsgTranscription, response["message"])
	}
}

func TestClient_BufferOverflowDropsChunk(t *testing.T) {
	logger := zap.NewNop()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	hub := NewHub(&mockRecognizer{}, m, 8, logger)
	client := newTestClient(hub)

	if err := client.session.AppendAudio([]byte{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("append within cap failed: %v", err)
	}

	client.processAudioChunk([]byte{7, 8, 9, 10})

	response := recvJSON(t, client)
	if response["message"] != ErrMsgBufferFull {
		t.Errorf("expected %q, got %v", ErrMsgBufferFull, response["message"])
	}
	if buffered := client.session.BufferedBytes(); buffered != 6 {
		t.Errorf("rejected chunk must leave earlier audio intact, got %d bytes", buffered)
	}
}

func TestErrorMessageFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"no audio", usecase.ErrNoAudio, ErrMsgNoAudio},
		{"transcription", &usecase.TranscriptionError{Err: errors.New("boom")}, ErrMsgTranscription},
		{"decode", &usecase.DecodeError{Err: errors.New("bad header")}, ErrMsgDecode},
		{"unknown", errors.New("unexpected"), ErrMsgInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ErrorMessageFor(tc.err)
			if got.Type != "error" {
				t.Errorf("expected error type, got %s", got.Type)
			}
			if got.Message != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got.Message)
			}
		})
	}
}

func TestResultMessage_NullAction(t *testing.T) {
	payload, err := json.Marshal(NewResultMessage(entities.RecognitionResult{
		Transcript: "오늘 날씨 어때",
	}))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if action, ok := decoded["action"]; !ok || action != nil {
		t.Errorf("expected explicit null action, got %v (present=%v)", action, ok)
	}
	if decoded["confidence"] != 0.0 {
		t.Errorf("expected zero confidence, got %v", decoded["confidence"])
	}
}

func TestWebSocketEndToEnd(t *testing.T) {
	next := entities.ActionNext
	recognizer := &mockRecognizer{
		result: entities.RecognitionResult{
			Transcript: "다음 운동",
			Action:     &next,
			Confidence: 0.9,
		},
	}
	hub := setupTestHub(t, recognizer)
	go hub.Run()

	logger := zap.NewNop()
	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, logger)
	})

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket connection failed: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"command":"audio","sampleRate":16000,"format":"pcm16"}`)); err != nil {
		t.Fatalf("failed to send metadata: %v", err)
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, bytes.Repeat([]byte{0x01}, 4000)); err != nil {
		t.Fatalf("failed to send audio: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"command":"process"}`)); err != nil {
		t.Fatalf("failed to send process command: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var response ResultMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("failed to read result: %v", err)
	}
	if response.Type != "result" {
		t.Errorf("expected result type, got %s", response.Type)
	}
	if response.Message != "다음 운동" {
		t.Errorf("expected transcript, got %s", response.Message)
	}
	if response.Action == nil || *response.Action != entities.ActionNext {
		t.Errorf("expected next action, got %v", response.Action)
	}
}

func TestConcurrentClientHandling(t *testing.T) {
	hub := setupTestHub(t, &mockRecognizer{})
	go hub.Run()

	numClients := 10
	clients := make([]*Client, numClients)

	for i := 0; i < numClients; i++ {
		client := newTestClient(hub)
		clients[i] = client
		hub.register <- client
	}

	time.Sleep(100 * time.Millisecond)

	if count := hub.SessionCount(); count != numClients {
		t.Errorf("Expected %d active sessions, got %d", numClients, count)
	}

	for _, client := range clients {
		hub.unregister <- client
	}

	time.Sleep(100 * time.Millisecond)

	if count := hub.SessionCount(); count != 0 {
		t.Errorf("Expected 0 active sessions, got %d", count)
	}
}

// blockingRecognizer parks inside ProcessStream until released, so a test
// can disconnect the client while a cycle is still in flight.
type blockingRecognizer struct {
	entered chan struct{}
	release chan struct{}
	result  entities.RecognitionResult
}

func (b *blockingRecognizer) ProcessStream(ctx context.Context, sessionID string, pcm []byte, sampleRate int, format entities.AudioFormat) (entities.RecognitionResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.result, nil
}

func TestClient_DisconnectDuringProcessing(t *testing.T) {
	next := entities.ActionNext
	recognizer := &blockingRecognizer{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		result:  entities.RecognitionResult{Transcript: "다음", Action: &next},
	}
	hub := setupTestHub(t, recognizer)
	go hub.Run()

	// A result landing after the client has left the hub must be queued or
	// dropped, never crash the server. Repeat to give the scheduler chances
	// to interleave delivery with the unregister.
	for i := 0; i < 20; i++ {
		client := newTestClient(hub)
		hub.register <- client

		client.processAudioChunk(bytes.Repeat([]byte{0x01}, 3200))
		client.handleProcess()

		<-recognizer.entered

		// Peer drops mid-cycle: readPump's teardown order is cancel, then
		// unregister.
		client.cancel()
		hub.unregister <- client

		recognizer.release <- struct{}{}

		select {
		case msg := <-client.send:
			var decoded ResultMessage
			if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
				t.Fatalf("iteration %d: bad late result: %v", i, err)
			}
		case <-time.After(200 * time.Millisecond):
			// Dropped via the canceled context, equally fine.
		}
	}

	if count := hub.SessionCount(); count != 0 {
		t.Errorf("Expected 0 active sessions, got %d", count)
	}
}

func BenchmarkProcessAudioChunk(b *testing.B) {
	hub := setupTestHub(b, &mockRecognizer{})
	client := newTestClient(hub)
	chunk := bytes.Repeat([]byte{0x01}, 3200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client.processAudioChunk(chunk)
		if i%100 == 99 {
			client.session.TakeAudio()
		}
	}
}
