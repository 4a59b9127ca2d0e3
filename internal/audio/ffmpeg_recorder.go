// Package audio provides the local microphone and speaker implementations
// used by kiosk deployments, both built on the ffmpeg toolchain.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/medilink-lk/medibridge/backend/internal/config"
	"github.com/medilink-lk/medibridge/backend/internal/ports"
)

const (
	captureSampleRate = 16000
	captureChannels   = 1
)

// FFmpegRecorder captures microphone PCM audio via an ffmpeg subprocess.
type FFmpegRecorder struct {
	command     string
	inputFormat string
	inputDevice string
}

// NewFFmpegRecorder builds a recorder from audio configuration.
func NewFFmpegRecorder(cfg config.AudioConfig) *FFmpegRecorder {
	command := cfg.FFmpegCmd
	if command == "" {
		command = "ffmpeg"
	}
	inputFormat := cfg.InputFormat
	if inputFormat == "" {
		inputFormat = "pulse"
	}
	inputDevice := cfg.InputDevice
	if inputDevice == "" {
		inputDevice = "default"
	}
	return &FFmpegRecorder{
		command:     command,
		inputFormat: inputFormat,
		inputDevice: inputDevice,
	}
}

// Start acquires the microphone and begins buffering PCM audio.
func (r *FFmpegRecorder) Start(ctx context.Context) (ports.Capture, error) {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", r.inputFormat,
		"-i", r.inputDevice,
		"-ac", strconv.Itoa(captureChannels),
		"-ar", strconv.Itoa(captureSampleRate),
		"-f", "s16le",
		"-",
	}

	// The capture outlives the request that started it; its lifetime ends
	// through halt (Stop/Discard), never through a caller context.
	cmd := exec.Command(r.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// ffmpeg reports device/permission problems immediately; give it a
	// moment before declaring the capture live.
	select {
	case err := <-waitErr:
		detail := strings.TrimSpace(stderr.String())
		if isPermissionFailure(detail) {
			return nil, fmt.Errorf("%w: %s", ports.ErrPermissionDenied, detail)
		}
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail)
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	c := &ffmpegCapture{
		process: cmd.Process,
		waitErr: waitErr,
		done:    make(chan struct{}),
	}
	go c.drain(stdout)
	return c, nil
}

func isPermissionFailure(detail string) bool {
	lowered := strings.ToLower(detail)
	return strings.Contains(lowered, "permission denied") ||
		strings.Contains(lowered, "access denied")
}

type ffmpegCapture struct {
	process *os.Process
	waitErr <-chan error

	mu  sync.Mutex
	pcm bytes.Buffer

	done     chan struct{}
	stopOnce sync.Once
}

func (c *ffmpegCapture) drain(stdout io.ReadCloser) {
	defer close(c.done)
	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.pcm.Write(buf[:n])
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Stop finalizes the capture and returns the buffered audio as a WAV
// artifact.
func (c *ffmpegCapture) Stop() ([]byte, error) {
	c.halt()

	c.mu.Lock()
	pcm := c.pcm.Bytes()
	c.mu.Unlock()

	if len(pcm) == 0 {
		return nil, ports.ErrEmptyRecording
	}
	return wrapWAV(pcm, captureSampleRate, captureChannels), nil
}

func (c *ffmpegCapture) Format() string { return "wav" }

// Discard abandons the capture, releasing the microphone and the buffer.
func (c *ffmpegCapture) Discard() {
	c.halt()
	c.mu.Lock()
	c.pcm.Reset()
	c.mu.Unlock()
}

func (c *ffmpegCapture) halt() {
	c.stopOnce.Do(func() {
		if c.process != nil {
			_ = c.process.Signal(os.Interrupt)
		}
		select {
		case <-c.waitErr:
		case <-time.After(2 * time.Second):
			if c.process != nil {
				_ = c.process.Kill()
			}
			<-c.waitErr
		}
		<-c.done
	})
}

// wrapWAV prefixes raw 16-bit little-endian PCM with a RIFF header so the
// speech backend can decode the artifact without sideband metadata.
func wrapWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(byteRate))
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(bitsPerSample))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}
