package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/medilink-lk/medibridge/backend/internal/config"
	"github.com/medilink-lk/medibridge/backend/internal/ports"
)

// FFplayPlayer plays synthesized MP3 clips through an ffplay subprocess.
type FFplayPlayer struct {
	command string
}

// NewFFplayPlayer builds a player from audio configuration.
func NewFFplayPlayer(cfg config.AudioConfig) *FFplayPlayer {
	command := cfg.FFplayCmd
	if command == "" {
		command = "ffplay"
	}
	return &FFplayPlayer{command: command}
}

// Play writes the clip to a temp file and starts ffplay on it. The returned
// playback owns both the process and the file until Stop or completion.
func (p *FFplayPlayer) Play(ctx context.Context, audio []byte) (ports.Playback, error) {
	tmp, err := os.CreateTemp("", "speech-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to stage audio clip: %w", err)
	}
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write audio clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to flush audio clip: %w", err)
	}

	// Playback spans requests; it ends through Stop or process exit, never
	// through a caller context.
	cmd := exec.Command(p.command,
		"-nodisp",
		"-autoexit",
		"-loglevel", "quiet",
		tmp.Name(),
	)
	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to start ffplay: %w", err)
	}

	playback := &ffplayPlayback{
		process: cmd.Process,
		path:    tmp.Name(),
		done:    make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		playback.cleanup()
	}()
	return playback, nil
}

type ffplayPlayback struct {
	process *os.Process
	path    string

	done     chan struct{}
	doneOnce sync.Once
}

func (p *ffplayPlayback) Done() <-chan struct{} { return p.done }

// Stop halts playback; the process exit path removes the staged clip.
func (p *ffplayPlayback) Stop() {
	if p.process != nil {
		_ = p.process.Kill()
	}
	// cleanup runs from the Wait goroutine once the process exits; waiting
	// here keeps Stop synchronous with resource release.
	<-p.done
}

func (p *ffplayPlayback) cleanup() {
	p.doneOnce.Do(func() {
		os.Remove(p.path)
		close(p.done)
	})
}
