package sherpa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// decodeWAV parses an in-memory RIFF/WAVE payload into normalized float32
// samples plus the sample rate. Only PCM16 is supported; multi-channel audio
// is downmixed by averaging.
func decodeWAV(data []byte) ([]float32, int, error) {
	r := bytes.NewReader(data)

	riffHeader := make([]byte, 12)
	if _, err := io.ReadFull(r, riffHeader); err != nil {
		return nil, 0, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a valid WAV payload")
	}

	var numChannels, sampleRate, bitsPerSample int
	var pcm []byte
	var foundFmt bool

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, 0, fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case "fmt ":
			fmtData := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, fmtData); err != nil {
				return nil, 0, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if len(fmtData) < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short")
			}
			numChannels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			foundFmt = true

		case "data":
			pcm = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return nil, 0, fmt.Errorf("failed to read data chunk: %w", err)
			}

		default:
			// Skip unknown chunks (LIST, INFO, etc.)
			if _, err := r.Seek(chunkSize, io.SeekCurrent); err != nil {
				return nil, 0, fmt.Errorf("failed to skip chunk %s: %w", chunkID, err)
			}
		}

		// WAV chunks are word-aligned (padded to even byte boundary)
		if chunkSize%2 != 0 {
			_, _ = r.Seek(1, io.SeekCurrent)
		}

		if foundFmt && pcm != nil {
			break
		}
	}

	if !foundFmt {
		return nil, 0, fmt.Errorf("missing fmt chunk")
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("missing data chunk")
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bits per sample: %d", bitsPerSample)
	}
	if numChannels < 1 {
		return nil, 0, fmt.Errorf("invalid channel count: %d", numChannels)
	}

	frameCount := len(pcm) / (2 * numChannels)
	samples := make([]float32, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum float32
		for ch := 0; ch < numChannels; ch++ {
			offset := (i*numChannels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[offset : offset+2]))
			sum += float32(sample) / 32768.0
		}
		samples[i] = sum / float32(numChannels)
	}

	return samples, sampleRate, nil
}
