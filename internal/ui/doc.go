// Package ui implements the interactive sync view using bubbletea's Elm architecture.
//
// The [Model] moves through three views:
//  1. [ConfirmView] : Show the stored playlist and mode, wait for y/n (only with [Options.Confirm])
//  2. [SyncView] : Checklist of pass states with a spinner on the one in flight
//  3. [ResultView] : Summary or failure, followed by a scrollable log of every update
//
// The pass runs in a goroutine through a [RunFunc]. Progress updates flow through a buffered channel
// and arrive as [Msg] values, so the engine never blocks on rendering.
//
// Pressing r in the result view runs another pass; q or ctrl+c cancels the pass context and quits.
package ui
