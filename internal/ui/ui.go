package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/tasks"
)

// progressBuffer sizes the update channel. The engine drops updates when it is full.
const progressBuffer = 64

// RunFunc runs one pass, reporting to progress. It must not close progress.
type RunFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*models.SyncSummary, error)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	SyncView
	ResultView
)

// Options describes the pass shown in the confirmation view.
type Options struct {
	PriorCollectionID string
	DryRun            bool
	Confirm           bool // Ask before starting the pass
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	run     RunFunc
	opts    Options
	view    ViewState
	width   int
	height  int
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	logList list.Model

	pass *pass

	reached map[tasks.Phase]tasks.ProgressUpdate
	current tasks.ProgressUpdate
	updates []tasks.ProgressUpdate
	summary *models.SyncSummary
	err     error
	passes  int
}

// NewModel creates a new TUI model that drives run.
func NewModel(ctx context.Context, run RunFunc, opts Options) *Model {
	ctx, cancel := context.WithCancel(ctx)
	view := SyncView
	if opts.Confirm {
		view = ConfirmView
	}

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		opts:    opts,
		view:    view,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		help:    help.New(),
		keys:    newKeyMap(),
		reached: make(map[tasks.Phase]tasks.ProgressUpdate),
	}
}

// Summary returns the summary of the last finished pass, if any.
func (m *Model) Summary() *models.SyncSummary { return m.summary }

// Err returns the error of the last finished pass, if any.
func (m *Model) Err() error { return m.err }

// Passes reports how many passes have finished.
func (m *Model) Passes() int { return m.passes }

// State reports the current view.
func (m *Model) State() ViewState { return m.view }

// Init starts the pass unless confirmation is required.
func (m *Model) Init() tea.Cmd {
	if m.view == ConfirmView {
		return nil
	}
	return tea.Batch(m.spinner.Tick, m.startSync())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == ResultView {
			m.logList.SetSize(max(msg.Width-4, 0), max(msg.Height-14, 0))
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}

		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.current = update
			m.updates = append(m.updates, update)
			if update.Phase != tasks.WritingItems {
				m.reached[update.Phase] = update
			}
			return m, m.waitForProgress()

		case MsgSyncComplete:
			m.finish(msg.data.(syncResult))
			return m, nil
		}
	}

	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, tea.Batch(m.spinner.Tick, m.startSync())
	case key.Matches(msg, m.keys.no):
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.restart) {
		m.reset()
		m.view = SyncView
		return m, tea.Batch(m.spinner.Tick, m.startSync())
	}

	var cmd tea.Cmd
	m.logList, cmd = m.logList.Update(msg)
	return m, cmd
}

func (m *Model) reset() {
	m.reached = make(map[tasks.Phase]tasks.ProgressUpdate)
	m.current = tasks.ProgressUpdate{}
	m.updates = nil
	m.summary = nil
	m.err = nil
}

func (m *Model) buildLogList() {
	items := make([]list.Item, len(m.updates))
	for i, u := range m.updates {
		items[i] = logItem{update: u}
	}

	m.logList = list.New(items, list.NewDefaultDelegate(), max(m.width-4, 0), max(m.height-14, 0))
	m.logList.Title = "Pass log"
	m.logList.SetShowHelp(false)
	m.logList.SetFilteringEnabled(false)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Mirror liked songs?")

	target := "new playlist"
	if m.opts.PriorCollectionID != "" {
		target = m.opts.PriorCollectionID
	}
	mode := "rewrite playlist"
	if m.opts.DryRun {
		mode = "dry run (nothing is written)"
	}
	info := fmt.Sprintf("Playlist: %s\nMode: %s\n", target, mode)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Liked Songs")

	var b strings.Builder
	pending := false
	for _, phase := range m.phases() {
		if update, ok := m.reached[phase]; ok {
			b.WriteString(styles.ok.Render("✓ ") + update.Message + "\n")
			continue
		}

		if !pending {
			pending = true
			line := phaseLabel(phase)
			if m.current.Phase == tasks.WritingItems && phase == tasks.ItemsWritten {
				line = m.current.Message
			}
			b.WriteString(m.spinner.View() + " " + line + "\n")
			continue
		}
		b.WriteString(styles.help.Render("  "+phaseLabel(phase)) + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderResult() string {
	var header string
	switch {
	case m.err != nil:
		header = styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err))
	case m.summary != nil && m.summary.DryRun:
		header = styles.ok.Render("✓ Dry run complete, nothing written")
	default:
		header = styles.ok.Render("✓ Mirror up to date")
	}

	var info string
	if s := m.summary; s != nil {
		info = fmt.Sprintf("\nPlaylist: %s", s.CollectionName)
		if s.CollectionID != "" {
			info += fmt.Sprintf(" (ID: %s)", s.CollectionID)
		}
		info += fmt.Sprintf("\nLiked: %d  Candidates: %d  Skipped: %d", s.LikedCount, s.CandidateCount, s.SkippedCount)
		if !s.DryRun {
			info += fmt.Sprintf("  Written: %d", s.WrittenCount)
		}
		if s.RejectedCount > 0 {
			info += "\n" + styles.warn.Render(fmt.Sprintf("%d songs were rejected as unavailable", s.RejectedCount))
		}
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s\n%s", header, info, m.logList.View(), helpView)
}

// phases returns the states the current pass is expected to reach.
func (m *Model) phases() []tasks.Phase {
	if !m.opts.DryRun {
		return tasks.Phases
	}

	phases := make([]tasks.Phase, 0, len(tasks.Phases))
	for _, p := range tasks.Phases {
		if p == tasks.CollectionCleared || p == tasks.ItemsWritten {
			continue
		}
		phases = append(phases, p)
	}
	return phases
}

func phaseLabel(p tasks.Phase) string {
	switch p {
	case tasks.Start:
		return "Start"
	case tasks.TokenRefreshed:
		return "Refresh access token"
	case tasks.IdentityResolved:
		return "Resolve account"
	case tasks.CollectionResolved:
		return "Resolve mirror playlist"
	case tasks.ListingFetched:
		return "Fetch liked songs"
	case tasks.CandidatesSelected:
		return "Select songs"
	case tasks.CollectionCleared:
		return "Clear playlist"
	case tasks.ItemsWritten:
		return "Write songs"
	case tasks.Done:
		return "Finish"
	default:
		return p.String()
	}
}
