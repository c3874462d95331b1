package config

import (
	"fmt"
	"strconv"
	"strings"

	"spotify2mp3/internal/shared"
)

// Bitrate bounds accepted for a numeric quality, in bits per second
const (
	MinBitrate = 48000
	MaxBitrate = 256000
)

var namedQualities = map[string]int{
	"low":    50000,
	"medium": 80000,
	"high":   256000,
}

// ParseQuality maps a quality name or a numeric bitrate to bits per second
func ParseQuality(quality string) (int, error) {
	q := strings.ToLower(strings.TrimSpace(quality))
	if bitrate, ok := namedQualities[q]; ok {
		return bitrate, nil
	}
	bitrate, err := strconv.Atoi(q)
	if err != nil {
		return 0, fmt.Errorf("%w %q: use low, medium, high or a bitrate", shared.ErrInvalidQuality, quality)
	}
	if bitrate < MinBitrate || bitrate > MaxBitrate {
		return 0, fmt.Errorf("%w: bitrate %d outside of typical YouTube range (%d to %d bps)", shared.ErrInvalidQuality, bitrate, MinBitrate, MaxBitrate)
	}
	return bitrate, nil
}
