package social

import (
	"fmt"
	"strings"
	"time"
)

// Post is a categorized social-media post returned by the monitoring backend.
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	Reposts   int       `json:"reposts"`
	Replies   int       `json:"replies"`
	Platform  string    `json:"platform"`
	URL       string    `json:"url"`
	Analysis  Analysis  `json:"analysis"`
}

// Analysis is the AI classification attached to a post.
type Analysis struct {
	Sentiment               string   `json:"sentiment"`
	Urgency                 string   `json:"urgency"`
	Keywords                []string `json:"keywords"`
	NeedsImmediateAttention bool     `json:"needs_immediate_attention"`
	RelevanceScore          float64  `json:"relevance_score"`
}

var defaultKeywords = []string{"emergency", "disaster", "help"}

var titleRules = []struct {
	match    string
	keywords []string
}{
	{match: "earthquake", keywords: []string{"earthquake", "seismic", "quake", "emergency", "rescue"}},
	{match: "flood", keywords: []string{"flood", "flooding", "water", "emergency", "rescue"}},
	{match: "fire", keywords: []string{"fire", "blaze", "emergency", "rescue", "evacuation"}},
	{match: "storm", keywords: []string{"storm", "weather", "emergency", "shelter"}},
	{match: "hurricane", keywords: []string{"hurricane", "storm", "weather", "emergency", "evacuation"}},
}

var commonKeywords = []string{
	"flood", "earthquake", "fire", "storm", "hurricane", "tornado",
	"emergency", "disaster", "rescue", "help", "urgent", "critical",
	"evacuation", "shelter", "medical", "supplies", "damage",
}

// DefaultKeywords returns the search terms used when nothing more specific is known.
func DefaultKeywords() []string {
	return append([]string(nil), defaultKeywords...)
}

// KeywordsForTitle derives the search terms for a disaster from its title.
// The first matching hazard wins; otherwise the title words are used with the defaults appended.
func KeywordsForTitle(title string) []string {
	lowered := strings.ToLower(title)
	for _, rule := range titleRules {
		if strings.Contains(lowered, rule.match) {
			return append([]string(nil), rule.keywords...)
		}
	}
	words := strings.Fields(lowered)
	return append(words, defaultKeywords...)
}

// ExtractKeywords returns the common hazard keywords found in text.
func ExtractKeywords(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	var extracted []string
	for _, keyword := range commonKeywords {
		for _, word := range words {
			if strings.Contains(word, keyword) {
				extracted = append(extracted, keyword)
				break
			}
		}
	}
	if len(extracted) == 0 {
		return DefaultKeywords()
	}
	return extracted
}

// Fallback returns the demo posts shown when the monitoring backend cannot be reached.
func Fallback(disasterID string, now time.Time) []Post {
	now = now.UTC()
	return []Post{
		{
			ID:        "mock_1",
			Text:      fmt.Sprintf("Emergency situation developing for disaster %s. Need assistance with supplies. #disaster #help", disasterID),
			Author:    "@citizen_reporter",
			CreatedAt: now.Add(-time.Hour),
			Likes:     15,
			Reposts:   3,
			Replies:   7,
			Platform:  "mock",
			URL:       "#",
			Analysis: Analysis{
				Sentiment:               "negative",
				Urgency:                 "high",
				Keywords:                []string{"emergency", "assistance", "supplies"},
				NeedsImmediateAttention: true,
				RelevanceScore:          0.85,
			},
		},
		{
			ID:        "mock_2",
			Text:      fmt.Sprintf("Shelter available for disaster %s victims. Can accommodate 50 people. Contact us! #shelter #relief", disasterID),
			Author:    "@local_volunteer",
			CreatedAt: now.Add(-2 * time.Hour),
			Likes:     42,
			Reposts:   18,
			Replies:   12,
			Platform:  "mock",
			URL:       "#",
			Analysis: Analysis{
				Sentiment:               "positive",
				Urgency:                 "medium",
				Keywords:                []string{"shelter", "relief", "victims"},
				NeedsImmediateAttention: false,
				RelevanceScore:          0.75,
			},
		},
		{
			ID:        "mock_3",
			Text:      fmt.Sprintf("Emergency services responding to disaster %s. Please stay clear of affected areas. #emergency #safety", disasterID),
			Author:    "@emergency_services",
			CreatedAt: now.Add(-30 * time.Minute),
			Likes:     89,
			Reposts:   45,
			Replies:   23,
			Platform:  "mock",
			URL:       "#",
			Analysis: Analysis{
				Sentiment:               "neutral",
				Urgency:                 "high",
				Keywords:                []string{"emergency", "services", "safety"},
				NeedsImmediateAttention: true,
				RelevanceScore:          0.9,
			},
		},
		{
			ID:        "mock_4",
			Text:      fmt.Sprintf("Medical supplies urgently needed for disaster %s response. Blood donations welcome. #medical #donate", disasterID),
			Author:    "@medical_center",
			CreatedAt: now.Add(-90 * time.Minute),
			Likes:     156,
			Reposts:   89,
			Replies:   34,
			Platform:  "mock",
			URL:       "#",
			Analysis: Analysis{
				Sentiment:               "negative",
				Urgency:                 "critical",
				Keywords:                []string{"medical", "supplies", "donate"},
				NeedsImmediateAttention: true,
				RelevanceScore:          0.95,
			},
		},
	}
}
