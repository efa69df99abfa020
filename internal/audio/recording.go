// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording begins writing the interpolated output to a mono WAV file.
// The processing chain is mono, so the recording is too regardless of how
// many channels the stream carries.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	bitDepth := e.config.Recording.BitDepth
	if bitDepth == 0 {
		bitDepth = 32
	}

	e.wavEncoder = wav.NewEncoder(file, int(e.config.Audio.SampleRate),
		bitDepth, 1, 1)

	e.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		Data: make([]int, e.config.Audio.FramesPerBuffer),
	}

	atomic.StoreInt32(&e.isRecording, 1)

	return nil
}

func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	if err := e.StopStream(); err != nil {
		return err
	}

	if e.interpolator != nil {
		return e.interpolator.Close()
	}
	return nil
}
