package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavScale maps the [-1, 1] float range onto 32-bit PCM.
const wavScale = math.MaxInt32

// WriteWAV stores mono float64 samples as a 32-bit PCM WAV file. Samples
// outside [-1, 1] are clipped.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(file, sampleRate, 32, 1, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 32,
	}
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		buf.Data[i] = int(math.Round(v * wavScale))
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return file.Close()
}

// ReadWAV loads a PCM WAV file as float64 samples in [-1, 1] plus its
// sample rate. Multi-channel files are reduced to their first channel.
func ReadWAV(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", path, err)
	}
	if dec.BitDepth < 8 || dec.BitDepth > 32 {
		return nil, 0, fmt.Errorf("decoding %s: unsupported bit depth %d", path, dec.BitDepth)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	scale := 1.0 / float64(uint64(1)<<(dec.BitDepth-1)-1)
	out := make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		out = append(out, float64(buf.Data[i])*scale)
	}
	return out, int(dec.SampleRate), nil
}
