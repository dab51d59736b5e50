package progress

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const maxStepWidth = 40

// StepBar displays progress through a small number of discrete steps, such
// as the chunks of a file. Done may be called concurrently with String.
type StepBar struct {
	message string
	current atomic.Int64
	failed  atomic.Int64
	total   int
}

func NewStepBar(message string, total int) *StepBar {
	return &StepBar{message: message, total: total}
}

// Done marks one step finished.
func (s *StepBar) Done() {
	s.current.Add(1)
}

// Fail marks one step as failed.
func (s *StepBar) Fail() {
	s.failed.Add(1)
}

func (s *StepBar) String() string {
	current := min(int(s.current.Load()), s.total)

	var percent float64
	if s.total > 0 {
		percent = float64(current) / float64(s.total) * 100
	}

	width := min(s.total, maxStepWidth)
	var filled int
	if s.total > 0 {
		filled = current * width / s.total
	}

	// "chunks  50% ▕████    ▏ 4/8"
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %3.0f%% ▕%s%s▏ %d/%d",
		s.message, percent,
		strings.Repeat("█", filled), strings.Repeat(" ", width-filled),
		current, s.total)

	if failed := s.failed.Load(); failed > 0 {
		fmt.Fprintf(&sb, " (%d failed)", failed)
	}

	return sb.String()
}
