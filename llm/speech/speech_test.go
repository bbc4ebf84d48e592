package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/viralshorts/config"
	"github.com/BaSui01/viralshorts/types"
)

var fakeMP3 = []byte("ID3\x03\x00\x00\x00fake-mpeg-frames")

func TestElevenLabs_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
		assert.Equal(t, "el-key", r.Header.Get("xi-api-key"))

		var body elevenLabsTTSRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Did you know?", body.Text)
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)
		assert.Equal(t, 1.1, body.VoiceSettings.Speed)
		_, _ = w.Write(fakeMP3)
	}))
	defer server.Close()

	p := NewElevenLabsProvider(ElevenLabsConfig{APIKey: "el-key", BaseURL: server.URL, VoiceID: "voice-1"}, nil)
	out := filepath.Join(t.TempDir(), "vo", "voiceover.mp3")
	res, err := p.Synthesize(context.Background(), &Request{Text: "Did you know?", Speed: 1.1}, out)
	require.NoError(t, err)
	assert.Equal(t, "elevenlabs", res.Provider)
	assert.Equal(t, int64(len(fakeMP3)), res.Bytes)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, fakeMP3, data)
}

func TestElevenLabs_NotConfigured(t *testing.T) {
	p := NewElevenLabsProvider(ElevenLabsConfig{}, nil)
	_, err := p.Synthesize(context.Background(), &Request{Text: "x"}, filepath.Join(t.TempDir(), "a.mp3"))
	assert.True(t, types.IsErrorCode(err, types.ErrNotConfigured))
}

func TestOpenAITTS_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer oa-key", r.Header.Get("Authorization"))

		var body openAITTSRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tts-1", body.Model)
		assert.Equal(t, "onyx", body.Voice)
		assert.Equal(t, "mp3", body.ResponseFormat)
		_, _ = w.Write(fakeMP3)
	}))
	defer server.Close()

	p := NewOpenAITTSProvider(OpenAITTSConfig{APIKey: "oa-key", BaseURL: server.URL}, nil)
	out := filepath.Join(t.TempDir(), "voiceover.mp3")
	res, err := p.Synthesize(context.Background(), &Request{Text: "hello"}, out)
	require.NoError(t, err)
	assert.Equal(t, "openai-tts", res.Provider)
	assert.FileExists(t, out)
}

func TestOpenAITTS_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"slow down"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenAITTSProvider(OpenAITTSConfig{APIKey: "k", BaseURL: server.URL}, nil)
	out := filepath.Join(t.TempDir(), "voiceover.mp3")
	_, err := p.Synthesize(context.Background(), &Request{Text: "hello"}, out)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRateLimited))
	assert.NoFileExists(t, out)
}

func TestWriteAudio_EmptyStreamLeavesNoFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.mp3")
	_, err := writeAudio(out, http.NoBody)
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

type stubSynth struct {
	name  string
	err   error
	calls int
	got   *Request
}

func (s *stubSynth) Name() string { return s.name }

func (s *stubSynth) Synthesize(_ context.Context, req *Request, path string) (*Result, error) {
	s.calls++
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Provider: s.name, Path: path}, nil
}

func TestChain_FallsThrough(t *testing.T) {
	unconfigured := &stubSynth{name: "a", err: types.NewNotConfiguredError("a")}
	failing := &stubSynth{name: "b", err: errors.New("boom")}
	ok := &stubSynth{name: "c"}

	c := NewChain(nil, unconfigured, failing, ok)
	c.speed = 1.1
	res, err := c.Synthesize(context.Background(), &Request{Text: "hi"}, "out.mp3")
	require.NoError(t, err)
	assert.Equal(t, "c", res.Provider)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1.1, ok.got.Speed)
}

func TestChain_Errors(t *testing.T) {
	c := NewChain(nil, &stubSynth{name: "a", err: types.NewNotConfiguredError("a")})
	_, err := c.Synthesize(context.Background(), &Request{Text: "hi"}, "out.mp3")
	assert.ErrorIs(t, err, ErrNoSynthesizers)

	boom := errors.New("boom")
	c = NewChain(nil, &stubSynth{name: "a", err: boom})
	_, err = c.Synthesize(context.Background(), &Request{Text: "hi"}, "out.mp3")
	assert.ErrorIs(t, err, boom)

	_, err = c.Synthesize(context.Background(), &Request{Text: "  "}, "out.mp3")
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestNewFromConfig_Order(t *testing.T) {
	c := NewFromConfig(config.SpeechConfig{Order: []string{"openai", "elevenlabs", "bogus"}, Speed: 1.1}, nil)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "openai-tts", c.synths[0].Name())
	assert.Equal(t, "elevenlabs", c.synths[1].Name())
}
