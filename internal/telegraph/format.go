package telegraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// urgencySeverity maps an urgency onto a display severity.
func urgencySeverity(u nudge.Urgency) string {
	switch u {
	case nudge.UrgencyImmediate:
		return "error"
	case nudge.UrgencyHigh:
		return "warning"
	default:
		return "info"
	}
}

// FormatIntervention renders iv for a chat channel. Instructions become a
// numbered list under the body.
func FormatIntervention(iv *nudge.Intervention) FormattedEvent {
	var body strings.Builder
	body.WriteString(iv.Body)
	for i, step := range iv.Instructions {
		if i == 0 && body.Len() > 0 {
			body.WriteString("\n")
		}
		fmt.Fprintf(&body, "\n%d. %s", i+1, step)
	}

	fields := []Field{
		{Name: "Category", Value: string(iv.Category), Short: true},
		{Name: "Urgency", Value: string(iv.Urgency), Short: true},
	}
	if iv.Duration > 0 {
		fields = append(fields, Field{Name: "Duration", Value: iv.Duration.Round(time.Second).String(), Short: true})
	}

	severity := urgencySeverity(iv.Urgency)
	return FormattedEvent{
		Title:    iv.Title,
		Body:     body.String(),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

// FormatDigest renders a follow-up digest report.
func FormatDigest(r DigestReport) FormattedEvent {
	var lines []string
	lines = append(lines, fmt.Sprintf("**Delivered**: %d (%d completed, %d dismissed, %d unanswered)",
		r.Delivered, r.Completed, r.Dismissed, r.Unanswered))
	if r.Crisis > 0 {
		lines = append(lines, fmt.Sprintf("**Crisis support**: %d delivered", r.Crisis))
	}
	if len(r.FollowUps) > 0 {
		lines = append(lines, fmt.Sprintf("**Follow-up required**: %d", len(r.FollowUps)))
		for _, f := range r.FollowUps {
			lines = append(lines, fmt.Sprintf("- %s at %s (%s)", f.UserRef, f.DeliveredAt.UTC().Format("Jan 2 15:04"), responseLabel(f.Response)))
		}
	}

	fields := make([]Field, 0, len(r.Categories))
	for _, c := range r.Categories {
		fields = append(fields, Field{
			Name:  string(c.Category),
			Value: fmt.Sprintf("%d delivered, %d completed", c.Delivered, c.Completed),
			Short: true,
		})
	}

	severity := "info"
	if len(r.FollowUps) > 0 {
		severity = "warning"
	}
	return FormattedEvent{
		Title: fmt.Sprintf("Nudge digest %s to %s",
			r.PeriodStart.UTC().Format("Jan 2 15:04"), r.PeriodEnd.UTC().Format("Jan 2 15:04")),
		Body:     strings.Join(lines, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

func responseLabel(r nudge.Response) string {
	if r == nudge.ResponseNone {
		return "no response"
	}
	return string(r)
}
