// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when no speech command is configured.
var ErrUnavailable = errors.New("speech is not available")

func splitCommand(command string) ([]string, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, ErrUnavailable
	}
	return argv, nil
}

// =============================================================================
// COMMAND OUTPUT
// =============================================================================

// CommandOutput speaks by running an external TTS program (espeak, say,
// piper, ...) with the text on stdin.
type CommandOutput struct {
	argv   []string
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandOutput parses command ("espeak -s 170") into a speaker.
func NewCommandOutput(command string, logger *zap.Logger) (*CommandOutput, error) {
	argv, err := splitCommand(command)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandOutput{argv: argv, logger: logger}, nil
}

// Speak cancels any utterance in progress and starts a new one.
func (o *CommandOutput) Speak(ctx context.Context, text string) error {
	o.Cancel()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, o.argv[0], o.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start speech command: %w", err)
	}

	done := make(chan struct{})
	o.mu.Lock()
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if err := cmd.Wait(); err != nil && runCtx.Err() == nil {
			o.logger.Warn("speech command failed", zap.Error(err))
		}
	}()
	return nil
}

// Cancel kills the running utterance, if any.
func (o *CommandOutput) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current utterance has exited. Used on shutdown so the
// child process is reaped.
func (o *CommandOutput) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done != nil {
		<-done
	}
}

// =============================================================================
// COMMAND INPUT
// =============================================================================

// CommandInput recognises speech by running an external STT program that
// prints one transcript per line on stdout.
type CommandInput struct {
	argv   []string
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCommandInput parses command into a recogniser.
func NewCommandInput(command string, logger *zap.Logger) (*CommandInput, error) {
	argv, err := splitCommand(command)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandInput{argv: argv, logger: logger}, nil
}

// Start launches the recogniser. Any previous session is stopped first.
func (in *CommandInput) Start(ctx context.Context) (<-chan Transcript, error) {
	in.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, in.argv[0], in.argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("listen: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start listen command: %w", err)
	}

	in.mu.Lock()
	in.cancel = cancel
	in.mu.Unlock()

	out := make(chan Transcript)
	go func() {
		defer close(out)
		defer cancel()

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case out <- Transcript{Text: line}:
			case <-runCtx.Done():
			}
		}
		err := cmd.Wait()
		if err != nil && runCtx.Err() == nil {
			in.logger.Warn("listen command failed", zap.Error(err))
			select {
			case out <- Transcript{Err: fmt.Errorf("listen: %w", err)}:
			case <-runCtx.Done():
			}
		}
	}()
	return out, nil
}

// Stop ends the current recognition session.
func (in *CommandInput) Stop() {
	in.mu.Lock()
	cancel := in.cancel
	in.cancel = nil
	in.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
