package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg   = Msg{}
	_ list.Item = logItem{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgSyncComplete
)

type syncResult struct {
	summary *models.SyncSummary
	err     error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(summary *models.SyncSummary, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncResult{summary, err}}
}

// logItem wraps a received [tasks.ProgressUpdate] to implement [list.Item].
type logItem struct {
	update tasks.ProgressUpdate
}

func (i logItem) FilterValue() string { return i.update.Message }
func (i logItem) Title() string       { return i.update.Message }
func (i logItem) Description() string {
	if i.update.Total > 0 {
		return fmt.Sprintf("%s • %d/%d", i.update.Phase, i.update.Step, i.update.Total)
	}
	return i.update.Phase.String()
}
