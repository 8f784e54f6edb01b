package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"voicetype/internal/domain"
)

var (
	colorRed    = lipgloss.Color("#FF0000")
	colorYellow = lipgloss.Color("#FFFF00")
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGray   = lipgloss.Color("#666666")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Width(10)

	recordingStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	processingStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	idleStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	timestampStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)

const historyTextWidth = 60

func renderStatus(status domain.Status, enhanceStyle string, rows []domain.HistoryRecord, historyPath string, now time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("voicetype") + "  " + stateLabel(status.State) + "\n")

	if status.Active {
		started := "unknown"
		if !status.StartedAt.IsZero() {
			started = fmt.Sprintf("%s (%s ago)", status.StartedAt.Local().Format(time.TimeOnly), now.Sub(status.StartedAt).Truncate(time.Second))
		}
		b.WriteString(labelStyle.Render("session") + status.SessionID + "\n")
		b.WriteString(labelStyle.Render("started") + started + "\n")

		recorder := "none"
		if status.RecorderPID > 0 {
			liveness := "gone"
			if status.RecorderLive {
				liveness = "alive"
			}
			recorder = fmt.Sprintf("pid %d (%s)", status.RecorderPID, liveness)
		}
		b.WriteString(labelStyle.Render("recorder") + recorder + "\n")
	}

	enhance := "off"
	if enhanceStyle != "" {
		enhance = enhanceStyle
	}
	b.WriteString(labelStyle.Render("enhance") + enhance + "\n")
	b.WriteString(labelStyle.Render("history") + historyPath + "\n")
	for _, row := range rows {
		b.WriteString("  " +
			timestampStyle.Render(row.At.Format("2006-01-02 15:04")) + "  " +
			row.Style + "  " +
			row.Model + "  " +
			truncate(row.Text, historyTextWidth) + "\n")
	}
	return b.String()
}

func stateLabel(state domain.SessionState) string {
	switch state {
	case domain.SessionStateRecording:
		return recordingStyle.Render("● recording")
	case domain.SessionStateProcessing:
		return processingStyle.Render("● processing")
	default:
		return idleStyle.Render("○ " + string(state))
	}
}

func truncate(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-1]) + "…"
}
