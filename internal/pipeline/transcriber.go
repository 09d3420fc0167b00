package pipeline

import (
	"context"
	"os"
)

// AudioFetcher extracts a media URL's audio track into a local file.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, url, destPath string) error
}

// SpeechClient turns a local audio file into a transcript.
type SpeechClient interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Transcriber orchestrates audio extraction and transcription through a
// temporary file that is removed on every path, success or failure.
type Transcriber struct {
	fetcher AudioFetcher
	speech  SpeechClient
}

func NewTranscriber(fetcher AudioFetcher, speech SpeechClient) *Transcriber {
	return &Transcriber{
		fetcher: fetcher,
		speech:  speech,
	}
}

// Transcribe extracts the audio at sourceURL and returns its transcript.
// An empty transcript is a valid result.
func (t *Transcriber) Transcribe(ctx context.Context, sourceURL string) (string, error) {
	tmpFile, err := os.CreateTemp("", "inlet-audio-*.mp3")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := t.fetcher.FetchAudio(ctx, sourceURL, tmpPath); err != nil {
		return "", err
	}

	return t.speech.Transcribe(ctx, tmpPath)
}
