package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunDoneMsg reports one finished run to a [Progress] model.
type RunDoneMsg struct {
	Coupling float64
	RunIndex int
	Lyapunov float64
	Tau      float64
	Elapsed  time.Duration
	Err      error
}

// BatchDoneMsg ends the progress view.
type BatchDoneMsg struct{ Err error }

type spinMsg time.Time

const recentLines = 8

// Progress is a bubbletea model tracking a batch of runs.
type Progress struct {
	total, done, skipped int
	frame                int
	recent               []RunDoneMsg
	finished             bool
	err                  error
	width                int
}

func NewProgress(total int) Progress {
	return Progress{total: total, width: 40}
}

func spin() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg { return spinMsg(t) })
}

func (m Progress) Init() tea.Cmd { return spin() }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.finished = true
			return m, tea.Quit
		}
	case RunDoneMsg:
		m.done++
		if msg.Err != nil {
			m.skipped++
		}
		m.recent = append(m.recent, msg)
		if len(m.recent) > recentLines {
			m.recent = m.recent[len(m.recent)-recentLines:]
		}
	case BatchDoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case spinMsg:
		m.frame++
		if !m.finished {
			return m, spin()
		}
	case tea.WindowSizeMsg:
		m.width = max(10, min(60, msg.Width-30))
	}
	return m, nil
}

func (m Progress) Done() int    { return m.done }
func (m Progress) Skipped() int { return m.skipped }

func (m Progress) fraction() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}

func (m Progress) View() string {
	var b strings.Builder

	status := StatusRunning.Render(AnimatedSpinner(m.frame) + " running")
	if m.finished {
		status = StatusRunning.Render("✓ done")
		if m.err != nil {
			status = StatusFailed.Render("✗ " + m.err.Error())
		}
	}
	b.WriteString(HeaderStyle.Render("chaosnet") + "\n")
	b.WriteString(fmt.Sprintf("%s  %s %d/%d", status, ProgressBar(m.fraction(), m.width), m.done, m.total))
	if m.skipped > 0 {
		b.WriteString(StatusSkipped.Render(fmt.Sprintf("  %d skipped", m.skipped)))
	}
	b.WriteString("\n\n")

	for _, r := range m.recent {
		label := MetricLabel.Render(fmt.Sprintf("sigma=%-7g run=%-3d", r.Coupling, r.RunIndex))
		if r.Err != nil {
			b.WriteString(label + " " + StatusSkipped.Render("skipped") + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf("%s lambda=%s tau=%s %s\n", label,
			MetricValue.Render(formatValue(r.Lyapunov)),
			MetricValue.Render(formatValue(r.Tau)),
			Subtle.Render(r.Elapsed.Round(time.Millisecond).String())))
	}

	if !m.finished {
		b.WriteString("\n" + KeyHint.Render("q to detach; runs continue in the background until exit"))
	}
	return b.String()
}
