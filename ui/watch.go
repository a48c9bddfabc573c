package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

const maxWatchEvents = 6

type watchKeyMap struct {
	Connect    key.Binding
	Disconnect key.Binding
	Refresh    key.Binding
	Quit       key.Binding
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Disconnect, k.Refresh, k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var watchKeys = watchKeyMap{
	Connect:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
	Disconnect: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type (
	healthMsg      vpn.ConnectionHealth
	resultMsg      vpn.Result
	reconnectedMsg vpn.Result // from the monitor, not a key press
	eventMsg       string
	checkedMsg     struct {
		active bool
		err    error
	}
)

// WatchModel is the bubbletea model behind the watch command.
type WatchModel struct {
	ctx     context.Context
	ctrl    Controller
	events  chan tea.Msg
	spinner spinner.Model
	help    help.Model

	status common.ConnectionStatus
	health vpn.ConnectionHealth
	busy   bool
	last   *vpn.Result
	log    []string
	now    func() time.Time
}

// NewWatchModel creates the watch view. Monitor callbacks are routed into
// the model by AttachMonitor.
func NewWatchModel(ctx context.Context, ctrl Controller) *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyles[common.StatusConnecting]

	return &WatchModel{
		ctx:     ctx,
		ctrl:    ctrl,
		events:  make(chan tea.Msg, 16),
		spinner: s,
		help:    help.New(),
		status:  common.StatusUnknown,
		now:     time.Now,
	}
}

// AttachMonitor routes monitor callbacks into the model.
func (m *WatchModel) AttachMonitor(mon *vpn.Monitor) {
	mon.SetOnHealthChange(func(_, _ vpn.HealthState, h vpn.ConnectionHealth) {
		m.post(healthMsg(h))
	})
	mon.SetOnReconnecting(func(attempt int) {
		m.post(eventMsg(fmt.Sprintf("reconnecting (attempt %d)", attempt)))
	})
	mon.SetOnReconnected(func(res vpn.Result) {
		m.post(reconnectedMsg(res))
	})
	mon.SetOnReconnectFailed(func(err error) {
		m.post(eventMsg("reconnect failed: " + err.Error()))
	})
}

// post delivers msg without blocking the monitor loop.
func (m *WatchModel) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		common.LogDebug("watch: dropping event %T", msg)
	}
}

func (m *WatchModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

func (m *WatchModel) check() tea.Cmd {
	return func() tea.Msg {
		active, err := m.ctrl.IsActive(m.ctx)
		return checkedMsg{active: active, err: err}
	}
}

func (m *WatchModel) run(op func(context.Context) vpn.Result) tea.Cmd {
	return func() tea.Msg {
		return resultMsg(op(m.ctx))
	}
}

// Init implements tea.Model.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent(), m.check())
}

// Update implements tea.Model.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case checkedMsg:
		if msg.err != nil {
			m.status = common.StatusError
			m.record("probe failed: " + msg.err.Error())
		} else if !m.busy {
			m.status = common.StatusFromActive(msg.active)
		}
		return m, nil

	case healthMsg:
		m.health = vpn.ConnectionHealth(msg)
		if !m.busy {
			m.status = common.StatusFromActive(m.health.Active)
		}
		m.record("health " + m.health.State.String())
		return m, m.waitForEvent()

	case eventMsg:
		m.record(string(msg))
		return m, m.waitForEvent()

	case resultMsg:
		res := vpn.Result(msg)
		m.busy = false
		m.last = &res
		m.record(res.String())
		switch {
		case !res.Succeeded:
			m.status = common.StatusError
		case res.Op == vpn.OpConnect:
			m.status = common.StatusConnected
		default:
			m.status = common.StatusDisconnected
		}
		return m, nil

	case reconnectedMsg:
		res := vpn.Result(msg)
		m.last = &res
		m.record("reconnected: " + res.String())
		if !m.busy {
			m.status = common.StatusConnected
		}
		return m, m.waitForEvent()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, watchKeys.Quit):
		return m, tea.Quit
	case m.busy:
		return m, nil
	case key.Matches(msg, watchKeys.Connect):
		m.busy = true
		m.status = common.StatusConnecting
		return m, m.run(m.ctrl.TryConnect)
	case key.Matches(msg, watchKeys.Disconnect):
		m.busy = true
		m.status = common.StatusDisconnecting
		return m, m.run(m.ctrl.TryDisconnect)
	case key.Matches(msg, watchKeys.Refresh):
		return m, m.check()
	}
	return m, nil
}

func (m *WatchModel) record(line string) {
	m.log = append(m.log, m.now().Format("15:04:05")+"  "+line)
	if len(m.log) > maxWatchEvents {
		m.log = m.log[len(m.log)-maxWatchEvents:]
	}
}

// Status returns the status currently shown.
func (m *WatchModel) Status() common.ConnectionStatus {
	return m.status
}

// View implements tea.Model.
func (m *WatchModel) View() string {
	p := m.ctrl.Profile()

	badge := StatusBadge(m.status)
	if m.busy {
		badge = m.spinner.View() + " " + badge
	}

	rows := []string{
		Field("Entry", p.Name()),
		Field("Server", p.ServerAddress()),
		Field("Protocol", p.Protocol()),
		Field("Status", badge),
	}
	if !m.health.LastCheck.IsZero() {
		rows = append(rows, Field("Health", m.health.State))
		rows = append(rows, Field("Last check", m.health.LastCheck.Format("15:04:05")))
	}
	if m.last != nil && m.last.Cause != nil {
		rows = append(rows, Field("Last error", ErrorStyle.Render(m.last.Cause.Error())))
	}

	var b strings.Builder
	b.WriteString(Panel(common.AppName, rows...))
	b.WriteString("\n")
	for _, line := range m.log {
		b.WriteString(HelpStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(watchKeys))
	b.WriteString("\n")
	return b.String()
}

// RunWatch shows the interactive watch view until the user quits or ctx
// is cancelled. mon may be nil.
func RunWatch(ctx context.Context, ctrl Controller, mon *vpn.Monitor) error {
	model := NewWatchModel(ctx, ctrl)
	if mon != nil {
		model.AttachMonitor(mon)
		mon.Start(ctx)
		defer mon.Stop()
	}

	_, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var _ tea.Model = (*WatchModel)(nil)
