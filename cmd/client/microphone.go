package main

import (
	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate      = 16000
	framesPerBuffer = 1024
	bytesPerSample  = 2
)

// MicrophoneReader captures 16-bit mono PCM from the default input device at
// 16kHz and hands it out in fixed-duration chunks.
type MicrophoneReader struct {
	stream *portaudio.Stream
	buffer []int16
}

// NewMicrophoneReader initializes PortAudio, opens the default input stream,
// and starts recording. The caller must call Close() to release the device.
func NewMicrophoneReader() (*MicrophoneReader, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	buffer := make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buffer), buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}

	return &MicrophoneReader{
		stream: stream,
		buffer: buffer,
	}, nil
}

// ReadChunk records until at least seconds of audio has accumulated and
// returns the PCM bytes plus the exact captured duration.
func (m *MicrophoneReader) ReadChunk(seconds float64) ([]byte, float64, error) {
	wantSamples := int(seconds * sampleRate)
	pcm := make([]byte, 0, wantSamples*bytesPerSample)

	samples := 0
	for samples < wantSamples {
		if err := m.stream.Read(); err != nil {
			return nil, 0, err
		}
		pcm = append(pcm, int16SliceToByteSlice(m.buffer)...)
		samples += len(m.buffer)
	}

	return pcm, float64(samples) / sampleRate, nil
}

// Close stops the audio stream, closes it, and terminates PortAudio.
func (m *MicrophoneReader) Close() error {
	var err error
	if m.stream != nil {
		if stopErr := m.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := m.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	portaudio.Terminate()
	return err
}

// int16SliceToByteSlice converts int16 audio samples to little-endian bytes.
func int16SliceToByteSlice(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, v := range in {
		// little-endian
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}
