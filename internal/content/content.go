// Package content turns an intervention category into user-facing text.
package content

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// Content is a personalized, ready-to-deliver template.
type Content struct {
	Title        string
	Body         string
	Instructions []string
	Duration     time.Duration
}

// Generator looks up templates and personalizes them. It never fails: unknown
// locales fall back to DefaultLocale and unknown categories fall back to the
// stress-reduction template.
type Generator struct {
	// pick chooses a greeting index in [0, n). Replaced in tests.
	pick func(n int) int
}

// NewGenerator returns a Generator that picks greetings at random.
func NewGenerator() *Generator {
	return &Generator{pick: rand.IntN}
}

// Lookup returns the raw template for a category and locale.
func Lookup(c nudge.Category, locale string) Template {
	byCat := catalog[resolveLocale(locale)]
	if tpl, ok := byCat[c]; ok {
		return tpl
	}
	return byCat[nudge.CategoryStressReduction]
}

// Generate builds personalized content. Everything except the greeting is
// deterministic for a given category and locale.
func (g *Generator) Generate(c nudge.Category, locale string, tone nudge.Tone, localNow time.Time) Content {
	tpl := Lookup(c, locale)
	r := strings.NewReplacer(
		"{{technique}}", tpl.Technique,
		"{{duration}}", humanDuration(tpl.Duration),
	)

	steps := make([]string, len(tpl.Instructions))
	for i, s := range tpl.Instructions {
		steps[i] = r.Replace(s)
	}

	body := r.Replace(tpl.Body)
	if greeting := g.greeting(locale, tone, localNow); greeting != "" {
		body = greeting + " " + body
	}

	return Content{
		Title:        r.Replace(tpl.Title),
		Body:         body,
		Instructions: steps,
		Duration:     tpl.Duration,
	}
}

func (g *Generator) greeting(locale string, tone nudge.Tone, t time.Time) string {
	byKey := greetings[resolveLocale(locale)]
	options := byKey[string(tone)]
	if len(options) == 0 {
		options = byKey[partOfDay(t)]
	}
	if len(options) == 0 {
		return ""
	}
	pick := g.pick
	if pick == nil {
		pick = rand.IntN
	}
	return options[pick(len(options))]
}

// resolveLocale maps "en-US" and "en_GB" to "en", and anything unknown to
// DefaultLocale.
func resolveLocale(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if _, ok := catalog[l]; ok {
		return l
	}
	if i := strings.IndexAny(l, "-_"); i > 0 {
		if _, ok := catalog[l[:i]]; ok {
			return l[:i]
		}
	}
	return DefaultLocale
}

// Locales lists the locales with their own catalog.
func Locales() []string {
	out := make([]string, 0, len(catalog))
	for l := range catalog {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func partOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 22:
		return "evening"
	default:
		return "night"
	}
}

func humanDuration(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	switch {
	case m <= 0:
		return "a moment"
	case m == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", m)
	}
}
