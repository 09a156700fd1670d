package audio

import "encoding/binary"

// Level returns the mean absolute sample value of a 16-bit little-endian
// chunk, normalized to [0,1], multiplied by gain and clipped at 1.
func Level(chunk []byte, gain float64) float64 {
	n := len(chunk) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(chunk[i*2:]))
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}

	level := sum / float64(n) / 32768.0 * gain
	if level > 1 {
		return 1
	}
	return level
}
