package telegraph

import (
	"strings"
	"testing"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

func TestFormatIntervention(t *testing.T) {
	iv := &nudge.Intervention{
		ID:           "iv-1",
		Category:     nudge.CategoryStressReduction,
		Urgency:      nudge.UrgencyHigh,
		Title:        "Box breathing",
		Body:         "Slow your breath.",
		Instructions: []string{"In for four", "Hold for four"},
		Duration:     3 * time.Minute,
	}
	got := FormatIntervention(iv)

	if got.Title != "Box breathing" {
		t.Errorf("Title = %q", got.Title)
	}
	wantBody := "Slow your breath.\n\n1. In for four\n2. Hold for four"
	if got.Body != wantBody {
		t.Errorf("Body = %q, want %q", got.Body, wantBody)
	}
	if got.Severity != "warning" || got.Color != ColorWarning {
		t.Errorf("severity/color = %s/%s", got.Severity, got.Color)
	}
	if len(got.Fields) != 3 || got.Fields[2].Value != "3m0s" {
		t.Errorf("Fields = %+v", got.Fields)
	}
}

func TestFormatIntervention_CrisisIsError(t *testing.T) {
	got := FormatIntervention(&nudge.Intervention{Urgency: nudge.UrgencyImmediate, Title: "Reach out"})
	if got.Severity != "error" || got.Color != ColorError {
		t.Errorf("severity/color = %s/%s", got.Severity, got.Color)
	}
	if len(got.Fields) != 2 {
		t.Errorf("zero duration should be omitted: %+v", got.Fields)
	}
}

func TestSeverityColor(t *testing.T) {
	tests := map[string]string{
		"success": ColorSuccess,
		"info":    ColorInfo,
		"warning": ColorWarning,
		"error":   ColorError,
		"":        ColorInfo,
	}
	for in, want := range tests {
		if got := severityColor(in); got != want {
			t.Errorf("severityColor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDigest(t *testing.T) {
	since := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r := DigestReport{
		PeriodStart: since,
		PeriodEnd:   since.Add(24 * time.Hour),
		Delivered:   4,
		Completed:   2,
		Dismissed:   1,
		Unanswered:  1,
		Crisis:      1,
		FollowUps:   []FollowUp{{UserRef: "hash:abc", DeliveredAt: since.Add(time.Hour)}},
		Categories:  []CategoryDigest{{Category: nudge.CategoryMindfulness, Delivered: 3, Completed: 2}},
	}
	got := FormatDigest(r)
	if got.Severity != "warning" {
		t.Errorf("Severity = %q, want warning with follow-ups", got.Severity)
	}
	for _, want := range []string{"**Delivered**: 4", "**Crisis support**: 1", "hash:abc at Mar 1 09:00 (no response)"} {
		if !strings.Contains(got.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, got.Body)
		}
	}
	if len(got.Fields) != 1 || got.Fields[0].Value != "3 delivered, 2 completed" {
		t.Errorf("Fields = %+v", got.Fields)
	}
}
