package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/likesync/internal/tasks"
)

// pass tracks one running pass. done is closed once result is set.
type pass struct {
	updates chan tasks.ProgressUpdate
	done    chan struct{}
	result  syncResult
}

// startSync launches the pass in a goroutine and returns the command that reads its first update.
func (m *Model) startSync() tea.Cmd {
	p := &pass{
		updates: make(chan tasks.ProgressUpdate, progressBuffer),
		done:    make(chan struct{}),
	}
	m.pass = p

	run, ctx := m.run, m.ctx
	go func() {
		summary, err := run(ctx, p.updates)
		close(p.updates)
		p.result = syncResult{summary: summary, err: err}
		close(p.done)
	}()

	return m.waitForProgress()
}

// waitForProgress blocks on the next update. Once the channel is drained it reports completion.
func (m *Model) waitForProgress() tea.Cmd {
	p := m.pass
	return func() tea.Msg {
		if p == nil {
			return syncCompleteMsg(nil, nil)
		}
		if update, ok := <-p.updates; ok {
			return progressUpdateMsg(update)
		}
		<-p.done
		return syncCompleteMsg(p.result.summary, p.result.err)
	}
}

// Wait cancels a pass that is still running once the program has exited and blocks until it returns,
// recording its result. It reports whether any pass finished.
func (m *Model) Wait() bool {
	if p := m.pass; p != nil {
		m.cancel()
		<-p.done
		m.finish(p.result)
	}
	return m.passes > 0
}

func (m *Model) finish(result syncResult) {
	m.summary = result.summary
	m.err = result.err
	m.passes++
	m.view = ResultView
	m.pass = nil
	m.buildLogList()
}
