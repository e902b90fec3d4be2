package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	mib = 1 << 20
	gib = 1 << 30
)

func formatPercent(p float64) string { return fmt.Sprintf("%.1f%%", p) }

func formatCelsius(c float64) string { return fmt.Sprintf("%.1f°C", c) }

func formatMB(used, total uint64) string {
	return fmt.Sprintf("%d/%dMB", used/mib, total/mib)
}

func formatGB(used, total uint64) string {
	return fmt.Sprintf("%.1fG/%.1fG", float64(used)/gib, float64(total)/gib)
}

func formatHz(hz float64) string { return humanize.SIWithDigits(hz, 2, "Hz") }

// formatUptime renders "3d 4h 12m", "4h 12m" or "12m 5s".
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	seconds := (d - minutes*time.Minute) / time.Second

	parts := make([]string, 0, 3)
	switch {
	case days > 0:
		parts = append(parts, fmt.Sprintf("%dd", days), fmt.Sprintf("%dh", hours), fmt.Sprintf("%dm", minutes))
	case hours > 0:
		parts = append(parts, fmt.Sprintf("%dh", hours), fmt.Sprintf("%dm", minutes))
	default:
		parts = append(parts, fmt.Sprintf("%dm", minutes), fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

func percentOf(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
