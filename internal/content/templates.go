package content

import (
	"time"

	"github.com/zulandar/nudgeyard/internal/nudge"
)

// Template is the fixed content for one category. Body and instructions may
// reference {{technique}} and {{duration}}.
type Template struct {
	Title        string
	Body         string
	Instructions []string
	Duration     time.Duration
	Technique    string
}

// DefaultLocale is used when a locale has no catalog of its own.
const DefaultLocale = "en"

var catalog = map[string]map[nudge.Category]Template{
	"en": {
		nudge.CategoryCrisisSupport: {
			Title:     "You don't have to go through this alone",
			Body:      "Let's take this one step at a time. Reaching out now is a strong move.",
			Technique: "grounding and reaching out",
			Instructions: []string{
				"Sit somewhere safe and put both feet on the floor.",
				"Take three slow breaths, longer out than in.",
				"Open your support contacts and call or message someone you trust.",
				"If you are in danger, call your local emergency number now.",
			},
			Duration: 5 * time.Minute,
		},
		nudge.CategoryStressReduction: {
			Title:     "A short breathing break",
			Body:      "Try {{technique}} for {{duration}} to bring your stress down a notch.",
			Technique: "box breathing",
			Instructions: []string{
				"Breathe in through your nose for 4 seconds.",
				"Hold for 4 seconds.",
				"Breathe out slowly for 4 seconds.",
				"Hold for 4 seconds, then repeat.",
			},
			Duration: 3 * time.Minute,
		},
		nudge.CategoryMoodRegulation: {
			Title:     "Name it to tame it",
			Body:      "Spend {{duration}} on {{technique}} to give your feelings some room.",
			Technique: "emotion labelling",
			Instructions: []string{
				"Notice what you are feeling right now.",
				"Give the feeling a name, as precisely as you can.",
				"Rate its intensity from 1 to 10.",
				"Ask what this feeling needs from you today.",
			},
			Duration: 4 * time.Minute,
		},
		nudge.CategoryEnergyBoost: {
			Title:     "Quick energy reset",
			Body:      "A {{duration}} {{technique}} can lift your energy.",
			Technique: "movement break",
			Instructions: []string{
				"Stand up and roll your shoulders back.",
				"Walk around or stretch for a couple of minutes.",
				"Drink a glass of water.",
			},
			Duration: 5 * time.Minute,
		},
		nudge.CategorySocialConnection: {
			Title:     "Reach out to someone",
			Body:      "Connection helps. Try {{technique}} in the next {{duration}}.",
			Technique: "a quick check-in message",
			Instructions: []string{
				"Think of one person you haven't talked to in a while.",
				"Send them a short message asking how they are.",
			},
			Duration: 5 * time.Minute,
		},
		nudge.CategoryMindfulness: {
			Title:     "Come back to the present",
			Body:      "Take {{duration}} for {{technique}}.",
			Technique: "5-4-3-2-1 grounding",
			Instructions: []string{
				"Name 5 things you can see.",
				"Name 4 things you can touch.",
				"Name 3 things you can hear.",
				"Name 2 things you can smell.",
				"Name 1 thing you can taste.",
			},
			Duration: 4 * time.Minute,
		},
		nudge.CategoryCBTTechnique: {
			Title:     "Check the thought",
			Body:      "Use {{technique}} for {{duration}} to look at a difficult thought.",
			Technique: "thought record",
			Instructions: []string{
				"Write down the thought that is bothering you.",
				"List the evidence for it and against it.",
				"Write a more balanced version of the thought.",
			},
			Duration: 10 * time.Minute,
		},
		nudge.CategoryBehavioralActivation: {
			Title:     "One small step",
			Body:      "Pick one small, doable activity. {{technique}} takes about {{duration}}.",
			Technique: "Activity scheduling",
			Instructions: []string{
				"Choose one small task you have been putting off.",
				"Do just the first two minutes of it.",
				"Notice how you feel afterwards.",
			},
			Duration: 10 * time.Minute,
		},
		nudge.CategoryRoutineSupport: {
			Title:     "Back to your rhythm",
			Body:      "Your routine looks off today. {{technique}} takes {{duration}}.",
			Technique: "Anchor planning",
			Instructions: []string{
				"Pick one anchor for the rest of today: a meal, a walk or a bedtime.",
				"Set a reminder for it.",
			},
			Duration: 3 * time.Minute,
		},
		nudge.CategorySleepHygiene: {
			Title:     "Winding down",
			Body:      "It's late. Give yourself {{duration}} of {{technique}} before sleep.",
			Technique: "screen-free wind-down",
			Instructions: []string{
				"Dim the lights and put your phone face down.",
				"Breathe slowly for a few minutes.",
				"Let tomorrow's tasks wait until tomorrow.",
			},
			Duration: 10 * time.Minute,
		},
	},
}

// greetings are keyed by locale, then by tone or part of day.
var greetings = map[string]map[string][]string{
	"en": {
		string(nudge.ToneCalmDirect): {"We're here with you.", "You're not alone right now."},
		"morning":                    {"Good morning.", "Morning!"},
		"afternoon":                  {"Good afternoon.", "Hi there."},
		"evening":                    {"Good evening.", "Hey, evening check-in."},
		"night":                      {"Hi, still up?", "Hey there."},
	},
}
