package main

import (
	"log/slog"

	voice "github.com/koscakluka/ema-ivr/core"
	"github.com/koscakluka/ema-ivr/core/audio"
	"github.com/koscakluka/ema-ivr/core/audio/miniaudio"
	"github.com/koscakluka/ema-ivr/core/audio/portaudio"
	stt "github.com/koscakluka/ema-ivr/core/speechtotext/deepgram"
	tts "github.com/koscakluka/ema-ivr/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-ivr/internal/config"
)

// engines holds the speech engines and the devices behind them. A nil engine
// means that side of the console is text-only.
type engines struct {
	recognizer  voice.Recognizer
	synthesizer voice.Synthesizer
	closers     []func()
}

func (e *engines) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// newEngines opens the audio devices and the Deepgram engines. Missing
// credentials or devices degrade to text and are only logged.
func newEngines(cfg config.Config) *engines {
	e := &engines{}
	if cfg.Deepgram.APIKey == "" {
		slog.Warn("deepgram api key not set, voice features disabled")
		return e
	}

	device, err := miniaudio.NewClient()
	if err != nil {
		slog.Warn("audio device unavailable, voice features disabled", "error", err)
		return e
	}
	e.closers = append(e.closers, device.Close)

	synthesizer, err := tts.NewSynthesizer(cfg.Deepgram.APIKey, device)
	if err != nil {
		slog.Warn("speech output unavailable", "error", err)
	} else {
		e.synthesizer = synthesizer
	}

	var source audio.Source = device
	if cfg.Audio.Device == "portaudio" {
		client, err := portaudio.NewClient(cfg.Audio.BufferSize)
		if err != nil {
			slog.Warn("portaudio input unavailable", "error", err)
			return e
		}
		e.closers = append(e.closers, client.Close)
		source = client
	}

	recognizer, err := stt.NewRecognizer(cfg.Deepgram.APIKey, source, stt.WithModel(cfg.Deepgram.STTModel))
	if err != nil {
		slog.Warn("speech input unavailable", "error", err)
		return e
	}
	e.recognizer = recognizer
	return e
}
