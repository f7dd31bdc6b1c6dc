package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jonwraymond/cellexec/exec"
)

const (
	prompt         = "cell> "
	continuePrompt = "....> "
	historyFile    = ".cellrun_history"
)

// session chains REPL entries into a lineage: each entry runs with the last
// successful cell as its only predecessor.
type session struct {
	exec *exec.Exec
	out  io.Writer
	seq  int
	last string
}

// eval runs one entry and prints its output and fault.
func (s *session) eval(ctx context.Context, src string) {
	s.seq++
	id := fmt.Sprintf("in%d", s.seq)
	var preds []string
	if s.last != "" {
		preds = []string{s.last}
	}

	resp, err := s.exec.RunCell(ctx, exec.Request{CellID: id, PredecessorIDs: preds, Code: src})
	fmt.Fprint(s.out, resp.Output)
	fmt.Fprint(s.out, resp.Stderr)
	if err != nil {
		fmt.Fprintf(s.out, "error: %s\n", resp.Error)
		return
	}
	s.last = id
}

// command handles a ":" entry. It reports false when the session should end.
func (s *session) command(ctx context.Context, line string) bool {
	switch strings.Fields(line)[0] {
	case ":quit", ":q":
		return false
	case ":reset":
		if err := s.exec.Reset(ctx); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			return true
		}
		s.last = ""
		fmt.Fprintln(s.out, "namespace cleared")
	case ":cells":
		fmt.Fprintln(s.out, strings.Join(s.exec.Cells(), " "))
	case ":help":
		fmt.Fprintln(s.out, ":cells  list stored cells\n:reset  clear every namespace\n:quit   leave")
	default:
		fmt.Fprintf(s.out, "unknown command %s (try :help)\n", line)
	}
	return true
}

func cmdRepl(args []string) int {
	cfg, err := loadConfig("repl", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cellrun:", err)
		return 2
	}
	if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	cfg.LogFormat = "console"
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cellrun:", err)
		return 2
	}

	executor, err := newExec(cfg, logger, nil, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cellrun:", err)
		return 1
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}
	}
	defer func() {
		if histPath == "" {
			return
		}
		if f, err := os.Create(histPath); err == nil {
			_, _ = line.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("cellrun", version, "(:help for commands)")
	s := &session{exec: executor, out: os.Stdout}
	ctx := context.Background()
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return 0
			}
			fmt.Fprintln(os.Stderr, "cellrun:", err)
			return 1
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		line.AppendHistory(input)
		if strings.HasPrefix(trimmed, ":") {
			if !s.command(ctx, trimmed) {
				return 0
			}
			continue
		}

		src := input
		if strings.HasSuffix(trimmed, ":") {
			src, err = readBlock(line, input)
			if err != nil {
				fmt.Println()
				continue
			}
		}
		s.eval(ctx, src)
	}
}

// readBlock collects continuation lines until a blank one.
func readBlock(line *liner.State, first string) (string, error) {
	lines := []string{first}
	for {
		next, err := line.Prompt(continuePrompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(next) == "" {
			return strings.Join(lines, "\n"), nil
		}
		line.AppendHistory(next)
		lines = append(lines, next)
	}
}
