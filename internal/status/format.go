package status

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meowstack/agentflow/internal/model"
)

// FormatOptions controls output formatting.
type FormatOptions struct {
	NoColor bool
	Quiet   bool
}

// FormatExecution formats a single execution with full details.
func FormatExecution(summary *ExecutionSummary, opts FormatOptions) string {
	var b strings.Builder

	b.WriteString(formatHeader(summary, opts))
	b.WriteString("\n\n")
	b.WriteString(formatProgress(summary, opts))
	b.WriteString("\n\n")

	if len(summary.RunningSteps) > 0 {
		b.WriteString(formatRunningSteps(summary))
		b.WriteString("\n\n")
	}

	if len(summary.Errors) > 0 {
		b.WriteString(formatErrors(summary, opts))
		b.WriteString("\n")
	}

	return b.String()
}

func formatHeader(summary *ExecutionSummary, opts FormatOptions) string {
	var b strings.Builder

	statusIcon := getStatusIcon(summary.Status)
	statusColor := getStatusColor(summary.Status, opts.NoColor)

	b.WriteString(fmt.Sprintf("Execution: %s\n", summary.ExecutionID))
	b.WriteString(fmt.Sprintf("Workflow:  %s\n", summary.WorkflowID))
	b.WriteString(fmt.Sprintf("Status:    %s%s %s%s\n",
		statusColor, statusIcon, summary.Status, resetColor(opts.NoColor)))
	b.WriteString(fmt.Sprintf("Started:   %s", formatTime(summary.StartedAt)))

	if summary.EndedAt != nil {
		b.WriteString(fmt.Sprintf("\nEnded:     %s", formatTime(*summary.EndedAt)))
		duration := summary.EndedAt.Sub(summary.StartedAt)
		b.WriteString(fmt.Sprintf(" (took %s)", formatDuration(duration)))
	} else {
		elapsed := time.Since(summary.StartedAt)
		b.WriteString(fmt.Sprintf(" (%s ago)", formatDuration(elapsed)))
	}

	if len(summary.Variables) > 0 && !opts.Quiet {
		keys := make([]string, 0, len(summary.Variables))
		for k := range summary.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n\nVariables:")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s = %v", k, summary.Variables[k]))
		}
	}

	return b.String()
}

func formatProgress(summary *ExecutionSummary, opts FormatOptions) string {
	var b strings.Builder

	stats := summary.StepStats
	completed := stats.Completed + stats.Failed + stats.Skipped
	total := stats.Total

	var percentage int
	if total > 0 {
		percentage = (completed * 100) / total
	}

	barWidth := 25
	filled := (percentage * barWidth) / 100
	empty := barWidth - filled
	progressBar := strings.Repeat("█", filled) + strings.Repeat("░", empty)

	b.WriteString(fmt.Sprintf("Progress: %s %d%% (%d/%d steps)\n", progressBar, percentage, completed, total))
	b.WriteString("\nSteps:    ")

	var parts []string
	if stats.Completed > 0 {
		parts = append(parts, fmt.Sprintf("%s✓ %d completed%s", getColor("green", opts.NoColor), stats.Completed, resetColor(opts.NoColor)))
	}
	if stats.Running > 0 {
		parts = append(parts, fmt.Sprintf("%s● %d running%s", getColor("yellow", opts.NoColor), stats.Running, resetColor(opts.NoColor)))
	}
	if stats.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%s○ %d pending%s", getColor("gray", opts.NoColor), stats.Pending, resetColor(opts.NoColor)))
	}
	if stats.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%s✗ %d failed%s", getColor("red", opts.NoColor), stats.Failed, resetColor(opts.NoColor)))
	}
	if stats.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%s⊘ %d skipped%s", getColor("gray", opts.NoColor), stats.Skipped, resetColor(opts.NoColor)))
	}

	b.WriteString(strings.Join(parts, ", "))
	return b.String()
}

func formatRunningSteps(summary *ExecutionSummary) string {
	var b strings.Builder
	b.WriteString("Running Steps:\n")

	steps := make([]RunningStep, len(summary.RunningSteps))
	copy(steps, summary.RunningSteps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].StartedAt.Before(steps[j].StartedAt) })

	for _, step := range steps {
		b.WriteString(fmt.Sprintf("  - %s (attempt %d, %s)\n", step.ID, step.Attempt, formatDuration(step.Duration)))
	}
	return b.String()
}

func formatErrors(summary *ExecutionSummary, opts FormatOptions) string {
	var b strings.Builder
	errColor := getColor("red", opts.NoColor)
	reset := resetColor(opts.NoColor)

	b.WriteString(fmt.Sprintf("%sErrors:%s\n", errColor, reset))
	for _, err := range summary.Errors {
		b.WriteString(fmt.Sprintf("  %s✗%s %s\n", errColor, reset, err))
	}
	return b.String()
}

func getStatusIcon(status model.ExecutionStatus) string {
	switch status {
	case model.ExecutionRunning:
		return "●"
	case model.ExecutionCompleted:
		return "✓"
	case model.ExecutionFailed:
		return "✗"
	case model.ExecutionCancelled:
		return "■"
	case model.ExecutionPending:
		return "○"
	default:
		return "?"
	}
}

func getStatusColor(status model.ExecutionStatus, noColor bool) string {
	if noColor {
		return ""
	}
	switch status {
	case model.ExecutionRunning:
		return "\033[33m"
	case model.ExecutionCompleted:
		return "\033[32m"
	case model.ExecutionFailed:
		return "\033[31m"
	case model.ExecutionCancelled:
		return "\033[90m"
	case model.ExecutionPending:
		return "\033[90m"
	default:
		return ""
	}
}

func getColor(name string, noColor bool) string {
	if noColor {
		return ""
	}
	switch name {
	case "red":
		return "\033[31m"
	case "green":
		return "\033[32m"
	case "yellow":
		return "\033[33m"
	case "gray":
		return "\033[90m"
	default:
		return ""
	}
}

func resetColor(noColor bool) string {
	if noColor {
		return ""
	}
	return "\033[0m"
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
