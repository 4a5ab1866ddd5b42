package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/netlens/pkg/explorer"
	"github.com/matzehuels/netlens/pkg/filter"
	"github.com/matzehuels/netlens/pkg/notify"
)

// maxToasts is how many notifications the explorer view keeps on screen.
const maxToasts = 4

var (
	tuiKeyStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	tuiHelpStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Messages
// =============================================================================

type detectedMsg struct{ err error }

// layoutMsg is sent by tuiLayout when the filter engine nudges the layout.
type layoutMsg struct{ op string }

// fileChangedMsg is sent by the file watcher.
type fileChangedMsg struct{ path string }

type reloadedMsg struct {
	exp *explorer.Explorer
	err error
}

// =============================================================================
// Layout
// =============================================================================

// tuiLayout forwards layout nudges to the running program. The terminal view
// has no force simulation, so a nudge only refreshes the screen and is
// counted in the status line.
type tuiLayout struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ filter.Layout = (*tuiLayout)(nil)

func (l *tuiLayout) setSend(send func(tea.Msg)) {
	l.mu.Lock()
	l.send = send
	l.mu.Unlock()
}

func (l *tuiLayout) emit(op string) {
	l.mu.Lock()
	send := l.send
	l.mu.Unlock()
	if send != nil {
		send(layoutMsg{op: op})
	}
}

func (l *tuiLayout) ReheatSimulation() { l.emit("reheat") }

func (l *tuiLayout) ZoomToFit(time.Duration, int) { l.emit("fit") }

// =============================================================================
// ExploreModel
// =============================================================================

// exploreConfig holds what the explorer view needs besides the explorer.
type exploreConfig struct {
	path    string
	timeout time.Duration
	// reopen loads the input again after it changed on disk.
	reopen func(context.Context) (*explorer.Explorer, error)
}

// ExploreModel is the bubbletea model of `netlens explore`.
type ExploreModel struct {
	ctx    context.Context
	exp    *explorer.Explorer
	notes  *notify.Recorder
	layout *tuiLayout
	cfg    exploreConfig

	toasts    []notify.Message
	cursor    int
	offset    int
	height    int
	metric    int // index into filter.Metrics, -1 for none
	detecting bool
	relayouts int
}

func newExploreModel(ctx context.Context, exp *explorer.Explorer, notes *notify.Recorder, layout *tuiLayout, cfg exploreConfig) ExploreModel {
	m := ExploreModel{
		ctx:    ctx,
		exp:    exp,
		notes:  notes,
		layout: layout,
		cfg:    cfg,
		height: 8,
		metric: -1,
	}
	m.drain()
	return m
}

func (m ExploreModel) Init() tea.Cmd {
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.height = max(msg.Height-22, 3)

	case detectedMsg:
		m.detecting = false
		m.clampCursor()

	case layoutMsg:
		if msg.op == "fit" {
			m.relayouts++
		}

	case fileChangedMsg:
		if m.cfg.reopen != nil {
			return m, m.reload()
		}

	case reloadedMsg:
		if msg.err != nil {
			m.notes.Error(fmt.Sprintf("Reload failed: %v", msg.err))
		} else {
			m.exp = msg.exp
			m.metric = -1
			m.cursor, m.offset = 0, 0
			m.notes.Success(fmt.Sprintf("Reloaded %s", filepath.Base(m.cfg.path)))
		}
	}
	m.drain()
	return m, nil
}

func (m ExploreModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "s":
		_ = m.exp.Toggle(filter.NameStrong, nil)
	case "h":
		_ = m.exp.Toggle(filter.NameHighlight, nil)
	case "a":
		_ = m.exp.Toggle(filter.NameActivity, nil)
	case "r":
		_ = m.exp.Toggle(filter.NameRestore, nil)
	case "c":
		// failures are already notified
		_ = m.exp.Toggle(filter.NameCommunities, m.layout)
	case "m":
		m.metric++
		if m.metric >= len(filter.Metrics) {
			m.metric = -1
			m.exp.SelectMetric("")
		} else {
			m.exp.SelectMetric(filter.Metrics[m.metric].Label)
		}
	case "d":
		if !m.detecting {
			m.detecting = true
			cmd = m.detect()
		}
	case "x":
		m.exp.Reset()
		m.metric = -1
		m.cursor, m.offset = 0, 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
		}
	case "down", "j":
		if m.cursor < len(m.exp.Communities())-1 {
			m.cursor++
			if m.cursor >= m.offset+m.height {
				m.offset = m.cursor - m.height + 1
			}
		}
	}
	m.drain()
	return m, cmd
}

func (m ExploreModel) detect() tea.Cmd {
	exp, parent, timeout := m.exp, m.ctx, m.cfg.timeout
	return func() tea.Msg {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parent, timeout)
		} else {
			ctx, cancel = context.WithCancel(parent)
		}
		defer cancel()
		return detectedMsg{err: exp.DetectCommunities(ctx)}
	}
}

func (m ExploreModel) reload() tea.Cmd {
	reopen, ctx := m.cfg.reopen, m.ctx
	return func() tea.Msg {
		exp, err := reopen(ctx)
		return reloadedMsg{exp: exp, err: err}
	}
}

// drain moves new notifications into the toast list.
func (m *ExploreModel) drain() {
	m.toasts = append(m.toasts, m.notes.Drain()...)
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

func (m *ExploreModel) clampCursor() {
	n := len(m.exp.Communities())
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

func (m ExploreModel) View() string {
	var b strings.Builder
	snap := m.exp.Snapshot()
	sum := snap.Summary

	b.WriteString(StyleTitle.Render("netlens explore"))
	b.WriteString(StyleDim.Render(" · " + m.cfg.path))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d nodes · %d links · reciprocity %s · density %.4f · %d communities",
		sum.NumNodes, sum.NumEdges, sum.FormatReciprocity(), sum.Density, sum.Communities)))
	b.WriteString("\n\n")

	metric := snap.Metric
	if metric == "" {
		metric = "none (degree)"
	}
	rows := []struct {
		key, label string
		on         bool
		extra      string
	}{
		{"s", "strong connections", snap.State.StrongConnections, ""},
		{"h", "highlight central nodes", snap.State.HighlightCentral, "metric: " + metric},
		{"a", "activity", snap.State.Activity, ""},
		{"r", "restored", snap.State.Restored, ""},
		{"c", "intra-community links", snap.State.IntraCommunity, ""},
	}
	for _, r := range rows {
		line := fmt.Sprintf(" %s %s %s", flagMark(r.on), tuiKeyStyle.Render("["+r.key+"]"), r.label)
		if r.extra != "" {
			line += "  " + StyleDim.Render(r.extra)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	comms := m.exp.Communities()
	switch {
	case m.detecting:
		b.WriteString(StyleDim.Render("Detecting communities..."))
	case len(comms) == 0:
		b.WriteString(StyleDim.Render("No communities detected. Press d to detect."))
	default:
		end := min(m.offset+m.height, len(comms))
		b.WriteString(communityTable(comms[m.offset:end], m.cursor-m.offset))
		b.WriteString("\n")
		b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(comms))))
	}
	b.WriteString("\n\n")

	for _, t := range m.toasts {
		icon := styleIconSuccess.Render(iconSuccess)
		if t.Level == notify.LevelError {
			icon = styleIconError.Render(iconError)
		}
		b.WriteString(icon + " " + t.Text + "\n")
	}
	if m.relayouts > 0 {
		b.WriteString(StyleDim.Render(fmt.Sprintf("layout refit %d×", m.relayouts)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(tuiHelpStyle.Render("s h a r c toggle · m metric · d detect · x reset · ↑/↓ scroll · q quit"))
	return b.String()
}
