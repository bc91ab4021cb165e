package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hpa-bench/internal/loadtest"
)

// Mensagem com novo snapshot das estatísticas
type snapshotMsg loadtest.Snapshot

// Mensagem de término do teste
type doneMsg struct {
	report *loadtest.Report
	err    error
}

// Mensagem do relógio da tela
type clockMsg time.Time

// LiveModel tela ao vivo do teste de carga
type LiveModel struct {
	title    string
	started  time.Time
	now      time.Time
	snapshot loadtest.Snapshot
	cancel   context.CancelFunc
	stopping bool
	done     bool
	report   *loadtest.Report
	err      error
	width    int
}

// NewLiveModel cria a tela. cancel é chamado quando o usuário pede para parar.
func NewLiveModel(title string, cancel context.CancelFunc) LiveModel {
	now := time.Now()
	return LiveModel{
		title:   title,
		started: now,
		now:     now,
		cancel:  cancel,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

// Init inicia o relógio
func (m LiveModel) Init() tea.Cmd {
	return tick()
}

// Update trata teclas, snapshots e término
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.done {
				return m, tea.Quit
			}
			if !m.stopping {
				m.stopping = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case clockMsg:
		m.now = time.Time(msg)
		if m.done {
			return m, nil
		}
		return m, tick()

	case snapshotMsg:
		m.snapshot = loadtest.Snapshot(msg)
		return m, nil

	case doneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		if msg.report != nil {
			m.snapshot = msg.report.Snapshot
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renderiza a tela
func (m LiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🚀 " + m.title))
	b.WriteString("\n")

	status := "running"
	switch {
	case m.done:
		status = "finished"
	case m.stopping:
		status = "stopping"
	}

	b.WriteString(labelStyle.Render("Status: "))
	b.WriteString(valueStyle.Render(status))
	b.WriteString(labelStyle.Render("  Users: "))
	b.WriteString(valueStyle.Render(fmt.Sprint(m.snapshot.Users)))
	b.WriteString(labelStyle.Render("  Elapsed: "))
	b.WriteString(valueStyle.Render(m.now.Sub(m.started).Round(time.Second).String()))
	b.WriteString(labelStyle.Render("  RPS: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%.1f", m.snapshot.Total.CurrentRPS)))
	b.WriteString("\n\n")

	b.WriteString(RenderStats(m.snapshot))
	b.WriteString("\n")
	b.WriteString(RenderFailures(m.snapshot, 5))

	if m.err != nil {
		b.WriteString(failStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q/ctrl+c: stop test"))
	b.WriteString("\n")

	return b.String()
}

// Report resultado final (nil enquanto o teste roda)
func (m LiveModel) Report() *loadtest.Report {
	return m.report
}

// RunLive executa o runner exibindo a tela ao vivo
func RunLive(ctx context.Context, title string, runner *loadtest.Runner) (*loadtest.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewLiveModel(title, cancel), tea.WithAltScreen())

	prev := runner.OnTick
	runner.OnTick = func(s loadtest.Snapshot) {
		if prev != nil {
			prev(s)
		}
		p.Send(snapshotMsg(s))
	}

	result := make(chan doneMsg, 1)
	go func() {
		report, err := runner.Run(ctx)
		msg := doneMsg{report: report, err: err}
		result <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return nil, fmt.Errorf("failed to run live view: %w", err)
	}

	// a tela pode ter fechado antes do runner terminar
	cancel()
	msg := <-result
	return msg.report, msg.err
}
