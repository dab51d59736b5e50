package progress

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

type Spinner struct {
	message      string
	messageWidth int

	parts []string

	value atomic.Int64

	ticker  *time.Ticker
	started time.Time
	stopped atomic.Bool
}

func NewSpinner(message string) *Spinner {
	s := &Spinner{
		message: message,
		parts: []string{
			"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏",
		},
		ticker:  time.NewTicker(100 * time.Millisecond),
		started: time.Now(),
	}
	go s.start()
	return s
}

func (s *Spinner) String() string {
	var sb strings.Builder
	if len(s.message) > 0 {
		message := strings.TrimSpace(s.message)
		if s.messageWidth > 0 && len(message) > s.messageWidth {
			message = message[:s.messageWidth]
		}

		fmt.Fprintf(&sb, "%s", message)
		if padding := s.messageWidth - sb.Len(); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" ")
	}

	if !s.stopped.Load() {
		sb.WriteString(s.parts[s.value.Load()])
		sb.WriteString(" ")
	}

	return sb.String()
}

func (s *Spinner) start() {
	defer s.ticker.Stop()
	for range s.ticker.C {
		if s.stopped.Load() {
			return
		}
		s.value.Store((s.value.Load() + 1) % int64(len(s.parts)))
	}
}

func (s *Spinner) Stop() {
	s.stopped.Store(true)
}
