package cmd

import (
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type stageMsg struct {
	stage Stage
}

type finishedMsg struct{}

var (
	stageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Margin(0, 2)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Margin(0, 2)
)

// stageModel shows a spinner next to the running pipeline stage and the
// elapsed time of the stages already finished
type stageModel struct {
	spinner    spinner.Model
	current    Stage
	started    time.Time
	completed  []string
	done       bool
	clockStart func() time.Time
}

func newStageModel() stageModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return stageModel{
		spinner:    s,
		clockStart: time.Now,
	}
}

func (m stageModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m stageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case stageMsg:
		m.finishCurrent()
		m.current = msg.stage
		m.started = m.clockStart()
		return m, nil
	case finishedMsg:
		m.finishCurrent()
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *stageModel) finishCurrent() {
	if m.current == "" {
		return
	}
	elapsed := m.clockStart().Sub(m.started).Round(time.Millisecond)
	m.completed = append(m.completed, "✓ "+string(m.current)+" ("+elapsed.String()+")")
	m.current = ""
}

func (m stageModel) View() string {
	lines := make([]string, 0, len(m.completed)+1)
	for _, line := range m.completed {
		lines = append(lines, completedStyle.Render(line))
	}
	if !m.done && m.current != "" {
		lines = append(lines, stageStyle.Render(m.spinner.View()+" "+string(m.current)+"..."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

// progressView runs the stage spinner in its own goroutine. Keyboard input
// is not read, so Ctrl-C reaches the signal context created in main.
type progressView struct {
	program *tea.Program
	done    chan struct{}
}

func startProgressView(out io.Writer) *progressView {
	program := tea.NewProgram(newStageModel(),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	view := &progressView{
		program: program,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(view.done)
		if _, err := program.Run(); err != nil && logger != nil {
			logger.Debug("Progress view stopped: " + err.Error())
		}
	}()
	return view
}

// Stage moves the spinner to a new stage
func (v *progressView) Stage(s Stage) {
	v.program.Send(stageMsg{stage: s})
}

// Stop finishes the last stage and waits for the view to exit
func (v *progressView) Stop() {
	v.program.Send(finishedMsg{})
	<-v.done
}
