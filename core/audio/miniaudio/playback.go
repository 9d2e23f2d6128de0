package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-ivr/core/audio"
)

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	// queued holds synthesized audio not yet handed to the device. Marks are
	// positioned relative to its start.
	queued []byte
	marks  []playbackMark

	mu      sync.Mutex
	queueMu sync.Mutex
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.fill(bytesPerFrame)},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()
	if device == nil {
		return fmt.Errorf("device not initialized")
	} else if !device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	c.queued = append(c.queued, audio...)
	return nil
}

func (c *playbackClient) ClearBuffer() {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	c.queued = nil
	c.marks = nil
}

func (c *playbackClient) Mark(name string, callback func(string)) error {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	c.marks = append(c.marks, playbackMark{
		name:     name,
		position: len(c.queued),
		callback: callback,
	})
	return nil
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackClient) fill(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.queueMu.Lock()
		n := copy(pOutput[:min(need, len(pOutput))], c.queued)
		c.queued = c.queued[n:]
		if len(c.queued) == 0 {
			c.queued = nil
		}
		passed := c.advanceMarks(n)
		c.queueMu.Unlock()

		if len(passed) > 0 {
			go func() {
				for _, mark := range passed {
					mark.callback(mark.name)
				}
			}()
		}
	}
}

// advanceMarks moves marks forward by played bytes and returns the ones that
// have been reached. Callers hold queueMu.
func (c *playbackClient) advanceMarks(played int) []playbackMark {
	reached := 0
	for i := range c.marks {
		c.marks[i].position -= played
		if c.marks[i].position <= 0 {
			reached = i + 1
		}
	}
	if reached == 0 {
		return nil
	}

	passed := c.marks[:reached:reached]
	c.marks = c.marks[reached:]
	return passed
}
