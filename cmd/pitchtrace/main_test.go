package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomokaItou/voice-training/internal/audiofile"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage: pitchtrace")

	code, _, stderr = runCLI(t, "transcribe")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "transcribe"`)

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "analyze")

	code, _, _ = runCLI(t, "synth", "-h")
	assert.Equal(t, 0, code)
}

func TestSynthWritesTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	code, stdout, stderr := runCLI(t, "synth", "-freq", "220", "-dur", "500ms", "-rate", "8000", "-harmonics", "0.5, 0.25", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "4000 samples")

	a, err := audiofile.DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, a.Samples, 4000)
	assert.InDelta(t, 8000, a.SampleRate, 0)
}

func TestSynthRejects(t *testing.T) {
	dir := t.TempDir()
	tests := map[string][]string{
		"no output":      {"synth"},
		"bad weights":    {"synth", "-harmonics", "0.5,loud", filepath.Join(dir, "a.wav")},
		"over nyquist":   {"synth", "-freq", "5000", "-rate", "8000", filepath.Join(dir, "b.wav")},
		"zero amplitude": {"synth", "-amp", "0", filepath.Join(dir, "c.wav")},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			code, _, stderr := runCLI(t, args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, "error:")
		})
	}
}

func TestSynthGlideWithNoise(t *testing.T) {
	samples, err := synthesize(synthOptions{freq: 150, glideTo: 300, dur: 1e9, rate: 16000, amp: 0.5, noise: 0.05, seed: 3})
	require.NoError(t, err)
	require.Len(t, samples, 16000)
	peak := 0.0
	for _, v := range samples {
		peak = max(peak, v, -v)
	}
	assert.InDelta(t, 0.5, peak, 1e-9)
}

func TestAnalyzeTone(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "take1.wav")
	code, _, stderr := runCLI(t, "synth", "-freq", "150", "-dur", "1s", "-rate", "16000", wav)
	require.Equal(t, 0, code, stderr)

	out := filepath.Join(dir, "csv")
	code, stdout, stderr := runCLI(t, "analyze", "-quiet", "-log-level", "error", "-out", out, wav)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "take1.wav")
	assert.Contains(t, stdout, "done")
	assert.Contains(t, stdout, "D3")

	data, err := os.ReadFile(filepath.Join(out, "take1.pitch.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Greater(t, len(lines), 50)
	assert.Equal(t, "timestampMs,frequencyHz,note", lines[0])
	assert.Contains(t, lines[len(lines)-1], "D3")

	_, err = os.Stat(filepath.Join(out, "take1.formants.csv"))
	require.NoError(t, err)
}

func TestAnalyzeRawModeWithoutFormants(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "take2.wav")
	code, _, stderr := runCLI(t, "synth", "-freq", "200", "-dur", "500ms", wav)
	require.Equal(t, 0, code, stderr)

	out := filepath.Join(dir, "csv")
	code, stdout, stderr := runCLI(t, "analyze", "-quiet", "-log-level", "error",
		"-mode", "raw", "-algorithm", "amdf", "-no-formants", "-out", out, wav)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "G3")

	_, err := os.Stat(filepath.Join(out, "take2.pitch.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "take2.formants.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyzeFailures(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "notes.wav")
	require.NoError(t, os.WriteFile(bogus, []byte("not a recording"), 0o600))

	code, stdout, stderr := runCLI(t, "analyze", "-quiet", "-log-level", "error", bogus, filepath.Join(dir, "missing.mp3"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "notes.wav")
	assert.Contains(t, stdout, "failed")
	assert.Contains(t, stderr, errAnalysisFailed.Error())

	code, _, _ = runCLI(t, "analyze")
	assert.Equal(t, 1, code)

	code, _, stderr = runCLI(t, "analyze", "-algorithm", "yin", bogus)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "yin")
}

func TestAnalyzeConfigFile(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "long.wav")
	code, _, stderr := runCLI(t, "synth", "-dur", "2s", wav)
	require.Equal(t, 0, code, stderr)

	cfgPath := filepath.Join(dir, "voice.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("batch:\n  max_duration: 1s\nlog:\n  level: error\n"), 0o600))

	code, stdout, stderr := runCLI(t, "analyze", "-quiet", "-config", cfgPath, wav)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "cancelled")

	code, stdout, stderr = runCLI(t, "analyze", "-quiet", "-config", cfgPath, "-yes", wav)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "done")

	require.NoError(t, os.WriteFile(cfgPath, []byte("pitch:\n  tempo: 3\n"), 0o600))
	code, _, _ = runCLI(t, "analyze", "-config", cfgPath, wav)
	assert.Equal(t, 1, code)
}
