// ABOUTME: Renderer that shells out to an OS speech engine
// ABOUTME: Command templates expand {voice}, {text} and {out}; output is sniffed and decoded
package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/resonance-audio/resonance/pkg/audio"
	"github.com/resonance-audio/resonance/pkg/audio/decode"
)

// ExecRenderer runs a command per utterance, e.g.
//
//	espeak-ng -v {voice} --stdout {text}
//	say -v {voice} --file-format=WAVE --data-format=LEI16@22050 -o {out} {text}
//
// Without {out} the command's stdout is taken as the audio.
type ExecRenderer struct {
	args []string
	raw  audio.Format
}

// NewExecRenderer parses a command template. raw describes headerless PCM output.
func NewExecRenderer(command string, raw audio.Format) (*ExecRenderer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &ExecRenderer{args: args, raw: raw}, nil
}

// Render implements Renderer
func (e *ExecRenderer) Render(ctx context.Context, voice, text string) (audio.Buffer, error) {
	outPath := ""
	if e.usesOut() {
		dir, err := os.MkdirTemp("", "resonance-tts-*")
		if err != nil {
			return audio.Buffer{}, fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(dir)
		outPath = filepath.Join(dir, "utterance.wav")
	}

	args := make([]string, len(e.args))
	for i, a := range e.args {
		a = strings.ReplaceAll(a, "{voice}", voice)
		a = strings.ReplaceAll(a, "{text}", text)
		a = strings.ReplaceAll(a, "{out}", outPath)
		args[i] = a
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return audio.Buffer{}, fmt.Errorf("%s: %w (%s)", args[0], err, strings.TrimSpace(stderr.String()))
	}

	data := stdout.Bytes()
	if outPath != "" {
		var err error
		data, err = os.ReadFile(outPath)
		if err != nil {
			return audio.Buffer{}, fmt.Errorf("read tts output: %w", err)
		}
	}

	return decode.Clip(data, e.raw)
}

func (e *ExecRenderer) usesOut() bool {
	for _, a := range e.args {
		if strings.Contains(a, "{out}") {
			return true
		}
	}
	return false
}
