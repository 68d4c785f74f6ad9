package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytq/internal/formatter"
	"github.com/desertthunder/ytq/internal/models"
)

const (
	defaultBarWidth = 30
	maxBarWidth     = 60
)

// Controller is the part of the orchestrator the monitor drives.
type Controller interface {
	Start(req models.JobRequest) (string, error)
	RequestPause(id string) error
	RequestResume(id string) error
	RequestStop(id string) error
	Jobs() []models.Job
	Job(id string) (models.Job, error)
}

// jobRow is what the monitor knows about one job.
type jobRow struct {
	id     string
	source string
	title  string
	status models.Status
	last   models.Event
}

func (r *jobRow) name() string {
	switch {
	case r.title != "":
		return r.title
	case r.source != "":
		return r.source
	default:
		return r.id
	}
}

// Model represents the job monitor state.
type Model struct {
	jobs     Controller
	events   <-chan models.Event
	order    []string
	rows     map[string]*jobRow
	selected int
	adding   bool
	input    textinput.Model
	bar      progress.Model
	width    int
	err      error
	closed   bool
	help     help.Model
	keys     keyMap
}

// NewModel creates a monitor over jobs, fed by events. Jobs already running are listed immediately.
func NewModel(jobs Controller, events <-chan models.Event) *Model {
	input := textinput.New()
	input.Placeholder = "playlist URL [items, e.g. 1,3,5-7]"
	input.Prompt = "source: "
	input.CharLimit = 2048

	m := &Model{
		jobs:   jobs,
		events: events,
		rows:   make(map[string]*jobRow),
		input:  input,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultBarWidth)),
		help:   help.New(),
		keys:   newKeyMap(),
	}

	for _, j := range jobs.Jobs() {
		row := m.row(j.ID)
		row.source = j.SourceLocator
		row.title = j.Title
		row.status = j.Status
	}
	return m
}

// Init starts listening for status events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(maxBarWidth, msg.Width/3))
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.handleInputKeys(msg)
		}
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStatusEvent:
		m.apply(msg.data.(models.Event))
		return m, m.waitForEvent()

	case MsgEventsClosed:
		m.closed = true
		return m, nil

	case MsgJobStarted:
		started := msg.data.(jobStarted)
		if started.err != nil {
			m.err = started.err
			return m, nil
		}
		m.err = nil
		row := m.row(started.id)
		if row.source == "" {
			row.source = started.source
		}
		if row.status == "" {
			row.status = models.StatusStarted
		}
		m.selected = len(m.order) - 1
		return m, nil

	case MsgControlFailed:
		m.err = msg.data.(error)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.stopActive()
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.down):
		if m.selected < len(m.order)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.add):
		m.adding = true
		m.input.Reset()
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.pause):
		return m, m.control(m.jobs.RequestPause)
	case key.Matches(msg, m.keys.resume):
		return m, m.control(m.jobs.RequestResume)
	case key.Matches(msg, m.keys.stop):
		return m, m.control(m.jobs.RequestStop)
	}
	return m, nil
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.adding = false
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.submit):
		value := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		return m, m.startJob(value)
	case msg.Type == tea.KeyCtrlC:
		m.stopActive()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply folds a status event into its row.
func (m *Model) apply(ev models.Event) {
	row := m.row(ev.JobID)
	row.status = ev.Status
	if ev.Status == models.StatusDownloading || ev.Status == models.StatusProcessing || ev.IsTerminal() {
		row.last = ev
	}
	if row.title == "" && !ev.IsTerminal() {
		if job, err := m.jobs.Job(ev.JobID); err == nil {
			row.title = job.Title
			if row.source == "" {
				row.source = job.SourceLocator
			}
		}
	}
}

func (m *Model) row(id string) *jobRow {
	if row, ok := m.rows[id]; ok {
		return row
	}
	row := &jobRow{id: id, last: models.NewStatusEvent(id, "", "", time.Time{})}
	m.rows[id] = row
	m.order = append(m.order, id)
	return row
}

func (m *Model) current() *jobRow {
	if m.selected < 0 || m.selected >= len(m.order) {
		return nil
	}
	return m.rows[m.order[m.selected]]
}

// stopActive requests a stop for every job that has not reached a terminal status.
func (m *Model) stopActive() {
	for _, id := range m.order {
		if m.rows[id].status.IsTerminal() {
			continue
		}
		_ = m.jobs.RequestStop(id)
	}
}

func (m *Model) control(action func(id string) error) tea.Cmd {
	row := m.current()
	if row == nil || row.status.IsTerminal() {
		return nil
	}
	id := row.id
	return func() tea.Msg {
		if err := action(id); err != nil {
			return controlFailedMsg(err)
		}
		return nil
	}
}

// startJob parses "<source> [items]" and starts a job.
func (m *Model) startJob(value string) tea.Cmd {
	return func() tea.Msg {
		source, items, _ := strings.Cut(value, " ")
		selection, err := models.ParseItemSelection(items)
		if err != nil {
			return jobStartedMsg("", source, err)
		}
		id, err := m.jobs.Start(models.JobRequest{SourceLocator: source, ItemSelection: selection})
		return jobStartedMsg(id, source, err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		if events == nil {
			return eventsClosedMsg()
		}
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return statusEventMsg(ev)
	}
}

// View renders the job table, the input line and help.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("ytq downloads"))
	b.WriteString("\n")

	if len(m.order) == 0 {
		b.WriteString(styles.help.Render("No jobs yet. Press a to add a playlist."))
		b.WriteString("\n")
	}

	for i, id := range m.order {
		b.WriteString(m.renderRow(m.rows[id], i == m.selected))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.adding {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView(m.keys.inputHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

func (m *Model) renderRow(row *jobRow, selected bool) string {
	cursor := "  "
	name := row.name()
	if selected {
		cursor = "> "
		name = styles.selected.Render(name)
	}

	status := styles.Status(row.status).Render(fmt.Sprintf("%-11s", row.status))
	line := fmt.Sprintf("%s%s %s", cursor, status, name)

	ev := row.last
	switch {
	case row.status == models.StatusError && ev.Detail != "":
		line += "\n    " + styles.err.Render(ev.Detail)
	case row.status == models.StatusDownloading, row.status == models.StatusPaused, row.status == models.StatusProcessing:
		item := ev.ItemName
		if ev.ItemCount > 0 {
			item = fmt.Sprintf("%d/%d %s", ev.ItemIndex, ev.ItemCount, item)
		}
		line += fmt.Sprintf("\n    %s %s  %s  ETA %s  %s",
			m.bar.ViewAs(ev.Percent),
			formatter.FormatPercent(ev.Percent),
			formatter.FormatSpeed(ev.Speed),
			formatter.FormatETA(ev.ETA),
			item,
		)
	}
	return line
}
