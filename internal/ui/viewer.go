package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"rtp/internal/command"
	"rtp/internal/domain"
	"rtp/internal/storage"
)

const maxStackFrames = 10

// Viewer displays test results in an interactive TUI
type Viewer interface {
	View(results *domain.TestResultsOutput) error
}

// ErrorViewer browses the failures of the last run. Resolved marks are
// written back to storage as they are toggled.
type ErrorViewer struct {
	storage storage.Storage
	builder *command.Builder
}

// NewErrorViewer creates a new ErrorViewer
func NewErrorViewer(st storage.Storage, builder *command.Builder) *ErrorViewer {
	return &ErrorViewer{storage: st, builder: builder}
}

// View runs the viewer until the user quits
func (ev *ErrorViewer) View(results *domain.TestResultsOutput) error {
	if len(results.Details) == 0 {
		color.Green("✓ No test failures found!")
		return nil
	}

	app := tview.NewApplication()

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)
	list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)

	for i, failure := range results.Details {
		list.AddItem(listItemText(i, failure), "", 0, nil)
	}

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	detailsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	headerView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true)

	rightSide := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(statsView, 3, 0, false).
		AddItem(tview.NewFlex().
			AddItem(detailsView, 0, 1, false).
			AddItem(tview.NewBox(), 2, 0, false), 0, 1, false)

	body := tview.NewFlex().
		AddItem(list, 0, 1, true).
		AddItem(rightSide, 0, 2, false)

	updateHeader := func() {
		headerView.SetText(headerText(results.Details))
	}
	updateDetails := func() {
		index := list.GetCurrentItem()
		if index < 0 || index >= len(results.Details) {
			return
		}
		failure := results.Details[index]
		statsView.SetText(formatFailureStats(failure))
		detailsView.SetText(ev.formatFailureDetails(failure)).ScrollToBeginning()
	}

	list.SetChangedFunc(func(int, string, string, rune) {
		updateDetails()
	})
	list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyRight:
			app.SetFocus(detailsView)
			return nil
		case tcell.KeyCtrlC, tcell.KeyEsc:
			app.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				app.Stop()
				return nil
			case 'r', 'R':
				index := list.GetCurrentItem()
				if index < 0 || index >= len(results.Details) {
					return nil
				}
				results.Details[index].Resolved = !results.Details[index].Resolved
				list.SetItemText(index, listItemText(index, results.Details[index]), "")
				updateHeader()
				if err := ev.storage.SaveOutput(results); err != nil {
					log.Error().Err(err).Msg("Failed to save resolved state")
				}
				return nil
			}
		}
		return event
	})
	detailsView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyLeft, tcell.KeyEsc:
			app.SetFocus(list)
			return nil
		case tcell.KeyCtrlC:
			app.Stop()
			return nil
		}
		return event
	})

	updateHeader()
	updateDetails()

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(headerView, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(body, 0, 1, true)

	if err := app.SetRoot(layout, true).SetFocus(list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func headerText(failures []domain.TestFailure) string {
	unresolved := 0
	for _, f := range failures {
		if !f.Resolved {
			unresolved++
		}
	}
	return fmt.Sprintf(" Test Failures (%d total, %d unresolved) | ↑↓ navigate, [yellow]R[white] resolve, → details, ← back, q quit ", len(failures), unresolved)
}

func listItemText(index int, failure domain.TestFailure) string {
	name := failure.TestName
	if name == "" {
		name = fmt.Sprintf("Test %d", index+1)
	}
	if failure.Class != "" {
		name = failure.Class + "#" + name
	}
	if failure.Resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s[white]", index+1, tview.Escape(name))
	}
	return fmt.Sprintf("[yellow]%d.[white] %s", index+1, tview.Escape(name))
}

// formatFailureStats formats the header line above the details pane
func formatFailureStats(failure domain.TestFailure) string {
	path := failure.FilePath
	if path == "" {
		path = "unknown path"
	}
	return fmt.Sprintf("[cyan]%s:[white] [yellow]%s[white]\n", failure.Kind, tview.Escape(path))
}

// formatFailureDetails formats a failure using tview color tags
func (ev *ErrorViewer) formatFailureDetails(failure domain.TestFailure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[red]✗ %s#%s[white]\n\n", tview.Escape(failure.Class), tview.Escape(failure.TestName))
	if failure.File != "" && failure.Line > 0 {
		fmt.Fprintf(&b, "[yellow]Location:[white] %s:%d\n\n", tview.Escape(failure.File), failure.Line)
	}
	if failure.Message != "" {
		fmt.Fprintf(&b, "[yellow]Message:[white]\n%s\n\n", tview.Escape(failure.Message))
	}
	if failure.ErrorDetails != "" {
		fmt.Fprintf(&b, "[yellow]Details:[white]\n%s\n\n", tview.Escape(failure.ErrorDetails))
	}

	if len(failure.StackTrace) > 0 {
		b.WriteString("[yellow]Backtrace:[white]\n")
		for i, frame := range failure.StackTrace {
			if i == maxStackFrames {
				fmt.Fprintf(&b, "  [gray]... and %d more lines[white]\n", len(failure.StackTrace)-maxStackFrames)
				break
			}
			fmt.Fprintf(&b, "  %s\n", tview.Escape(frame))
		}
		b.WriteString("\n")
	}

	if ev.builder != nil && failure.TestName != "" && failure.FilePath != "" {
		target := domain.Target{Scope: domain.ScopeMethod, File: failure.FilePath, Class: failure.Class, Method: failure.TestName}
		if cmd, err := ev.builder.Build(target); err == nil {
			fmt.Fprintf(&b, "[yellow]Rerun:[white]\n  %s\n", tview.Escape(cmd.String()))
		}
	}

	return b.String()
}
