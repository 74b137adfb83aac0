package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultInterval is the polling period.
const DefaultInterval = 250 * time.Millisecond

// barWidth is the width of the light level bar.
const barWidth = 30

//nolint:gochecknoglobals // Styles are immutable.
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fff"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Width(12)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f55"))
	stateStyles = map[string]lipgloss.Style{
		"idle":           lipgloss.NewStyle().Foreground(lipgloss.Color("#888")),
		"ambient_active": lipgloss.NewStyle().Foreground(lipgloss.Color("#5f5")),
		"command_active": lipgloss.NewStyle().Foreground(lipgloss.Color("#fc5")).Bold(true),
	}
)

// Source fetches what the monitor displays.
type Source interface {
	Status(ctx context.Context) (*structpb.Struct, error)
	Sensor(ctx context.Context) (*structpb.Struct, error)
}

// tickMsg triggers a poll.
type tickMsg time.Time

// pollMsg carries one poll result.
type pollMsg struct {
	status *structpb.Struct
	sensor *structpb.Struct
	err    error
}

// Model is the bubbletea model of the monitor.
type Model struct {
	ctx      context.Context //nolint:containedctx // Polls run inside tea commands.
	source   Source
	interval time.Duration
	address  string

	status *structpb.Struct
	sensor *structpb.Struct
	err    error
	polls  int
}

// NewModel returns a model polling source every interval.
func NewModel(ctx context.Context, source Source, address string, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return Model{
		ctx:      ctx,
		source:   source,
		interval: interval,
		address:  address,
	}
}

func (m Model) Init() tea.Cmd {
	return m.poll()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		return m, m.poll()
	case pollMsg:
		m.polls++
		m.err = msg.err

		if msg.status != nil {
			m.status = msg.status
		}

		if msg.sensor != nil {
			m.sensor = msg.sensor
		}

		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Light Orchestra") + dimStyle.Render("  "+m.address) + "\n\n")

	if m.status == nil {
		b.WriteString(dimStyle.Render("waiting for server...") + "\n")
	} else {
		fields := m.status.GetFields()
		state := fields["state"].GetStringValue()

		style, ok := stateStyles[state]
		if !ok {
			style = dimStyle
		}

		row(&b, "state", style.Render(state))
		row(&b, "note", fmt.Sprintf(
			"%s  %.2f Hz  step %d  duty %.2f",
			fields["note"].GetStringValue(),
			fields["frequency_hz"].GetNumberValue(),
			int(fields["step"].GetNumberValue()),
			fields["duty"].GetNumberValue(),
		))

		command := "-"
		if id := int64(fields["command_id"].GetNumberValue()); id > 0 {
			command = fmt.Sprintf("#%d %s", id, fields["command_kind"].GetStringValue())
		}

		row(&b, "command", command)

		suppressed := "no"
		if fields["suppressed"].GetBoolValue() {
			suppressed = "until " + fields["suppress_until"].GetStringValue()
		}

		row(&b, "suppressed", suppressed)
	}

	if m.sensor != nil {
		fields := m.sensor.GetFields()
		norm := fields["norm"].GetNumberValue()

		row(&b, "light", fmt.Sprintf("%s %d (%.2f)", Bar(norm, barWidth), int(fields["raw"].GetNumberValue()), norm))
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("q to quit") + "\n")

	return b.String()
}

// poll fetches status and sensor in a tea command.
func (m Model) poll() tea.Cmd {
	return func() tea.Msg {
		status, err := m.source.Status(m.ctx)
		if err != nil {
			return pollMsg{err: err}
		}

		sensor, err := m.source.Sensor(m.ctx)
		if err != nil {
			// The status alone is still worth showing.
			return pollMsg{status: status, err: err}
		}

		return pollMsg{status: status, sensor: sensor}
	}
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + value + "\n")
}

// Bar renders fraction in [0, 1] as a fixed-width bar.
func Bar(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction*float64(width) + 0.5)

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Run starts the monitor and blocks until the user quits or ctx ends.
func Run(ctx context.Context, source Source, address string, interval time.Duration) error {
	program := tea.NewProgram(NewModel(ctx, source, address, interval), tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}

	return err
}
