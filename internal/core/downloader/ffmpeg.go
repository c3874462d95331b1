package downloader

import (
	"context"
	"fmt"
	"os/exec"

	"spotify2mp3/internal/shared"
)

const (
	ffmpegBinary = "ffmpeg"
	minKbps      = 32
	maxKbps      = 320
)

// FFmpegInstallHint is shown when ffmpeg cannot be found
const FFmpegInstallHint = "Install ffmpeg and make sure it is on your PATH (https://ffmpeg.org/download.html)"

// CheckFFmpeg checks if ffmpeg is installed and available in the system's PATH.
func CheckFFmpeg() error {
	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrFFmpegMissing, FFmpegInstallHint)
	}
	return nil
}

// commandRunner runs an external program and returns its combined output
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// kbps converts a bitrate in bits per second to the mp3 encoder range
func kbps(bitrate int) int {
	k := (bitrate + 500) / 1000
	if k < minKbps {
		return minKbps
	}
	if k > maxKbps {
		return maxKbps
	}
	return k
}

// transcodeArgs builds the ffmpeg command line. coverPath may be empty.
func transcodeArgs(source, coverPath, output string, bitrate int, tags []tagField) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", source}
	if coverPath != "" {
		args = append(args, "-i", coverPath)
	}

	args = append(args, "-map", "0:a")
	if coverPath != "" {
		args = append(args,
			"-map", "1:v",
			"-c:v", "mjpeg",
			"-disposition:v", "attached_pic",
			"-metadata:s:v", "title=Album cover",
			"-metadata:s:v", "comment=Cover (front)",
		)
	}

	args = append(args,
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", kbps(bitrate)),
		"-id3v2_version", "3",
		"-write_id3v1", "1",
	)
	for _, tag := range tags {
		args = append(args, "-metadata", tag.key+"="+tag.value)
	}
	return append(args, "-f", "mp3", output)
}
