package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

const recentRows = 10

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	nearStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	farStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errStyle   = boxStyle.BorderForeground(lipgloss.Color("9"))
)

type renderer struct {
	width int
	all   bool
}

func (r renderer) render(s types.StatusSnapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("DeAuth workstation"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("epoch", fmt.Sprint(s.Epoch))
	row("threshold", fmt.Sprintf("%.2f m", s.ThresholdMeters))
	row("timeout", fmt.Sprintf("%.0f s", s.TimeoutSeconds))
	row("measurements", fmt.Sprint(s.TotalMeasurements))

	if s.TotalMeasurements == 0 {
		row("most recent", "no measurements in this epoch")
		return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
	}

	row("most recent", r.distance(*s.MostRecent, s.ThresholdMeters))
	row("average", fmt.Sprintf("%.2f m", *s.Average))
	if s.LastTime != nil {
		ago := time.Since(time.UnixMilli(*s.LastTime)).Round(100 * time.Millisecond)
		row("last sample", fmt.Sprintf("%s ago", ago))
	}
	if st := s.Statistics; st != nil {
		row("min / med / max", fmt.Sprintf("%.2f / %.2f / %.2f m", st.Min, st.Median, st.Max))
	}

	b.WriteString("\n")
	ms := s.MeasurementsWithTime
	if !r.all && len(ms) > recentRows {
		ms = ms[len(ms)-recentRows:]
	}
	for _, m := range ms {
		gap := "      "
		if m.TimeSincePrevious != nil {
			gap = fmt.Sprintf("+%4.1fs", *m.TimeSincePrevious)
		}
		ts := time.UnixMilli(m.Timestamp).Format("15:04:05.000")
		b.WriteString(fmt.Sprintf("%s %s %s %s\n", ts, gap, r.distance(m.Distance, s.ThresholdMeters), r.bar(m.Distance, s.ThresholdMeters)))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (r renderer) distance(d, threshold float64) string {
	text := fmt.Sprintf("%5.2f m", d)
	if d >= threshold {
		return farStyle.Render(text)
	}
	return nearStyle.Render(text)
}

// bar scales d against the threshold, using the space left on the line.
func (r renderer) bar(d, threshold float64) string {
	avail := r.width - 40
	if avail < 10 || threshold <= 0 {
		return ""
	}
	n := int(d / threshold * float64(avail) / 1.5)
	if n > avail {
		n = avail
	}
	if n < 0 {
		n = 0
	}
	style := nearStyle
	if d >= threshold {
		style = farStyle
	}
	return style.Render(strings.Repeat("█", n))
}

func (r renderer) errorBox(err error, addr string) string {
	return errStyle.Render(fmt.Sprintf("cannot reach daemon at %s\n%v\n\nis deauth-workstation running?", addr, err))
}
