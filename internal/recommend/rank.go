// Copyright 2024 Atom Onboarding Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recommend

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Ranking weights
const (
	weightBase      = 0.40
	weightNews      = 0.15
	weightPersonnel = 0.15
	weightEvents    = 0.15
	weightLocation  = 0.05
	weightKeywords  = 0.10

	defaultBaseScore  = 50.0
	maxNewsScore      = 20.0
	maxPersonnelScore = 15.0
	maxEventsScore    = 15.0
	maxKeywordScore   = 10.0
	locationScore     = 10.0

	unparsableDateScore = 5.0
	priorityMultiplier  = 1.5
	eventWindowDays     = 90
	newsWindowDays      = 365
)

// DefaultPriorityNewsSources are outlets whose articles weigh more
var DefaultPriorityNewsSources = []string{
	"techcrunch.com", "crunchbase.com", "pitchbook.com", "venturebeat.com", "forbes.com",
	"businessinsider.com", "cnbc.com", "reuters.com", "bloomberg.com", "wsj.com",
}

// DefaultPriorityEventSources are event platforms whose listings weigh more
var DefaultPriorityEventSources = []string{
	"eventbrite.com", "luma.events", "meetup.com", "conference.com", "summit.com",
}

var (
	dateLayouts = []string{"2006-01-02", time.RFC3339, "January 2, 2006", "Jan 2, 2006"}

	cLevelPattern   = regexp.MustCompile(`\b(ceo|cto|cfo|coo|cmo|cio|chief)\b`)
	seniorPattern   = regexp.MustCompile(`\b(vp|svp|evp|vice president|director)\b`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
)

// Ranker scores records with a weighted composite of the model's fit score
// and evidence found in the record itself.
type Ranker struct {
	now            func() time.Time
	priorityNews   []string
	priorityEvents []string
}

// NewRanker creates a ranker using the wall clock and default priority lists
func NewRanker() *Ranker {
	return &Ranker{
		now:            time.Now,
		priorityNews:   DefaultPriorityNewsSources,
		priorityEvents: DefaultPriorityEventSources,
	}
}

// WithClock returns a copy of the ranker that reads time from now
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	cp := *r
	cp.now = now
	return &cp
}

// Rank annotates every record with its Ranking and sorts the slice in place
// by final score descending, ties broken by name ascending.
func (r *Ranker) Rank(records []Recommendation, keywords []string, zipCode string) []Recommendation {
	now := r.now()
	for i := range records {
		rec := &records[i]

		f := Factors{
			BaseScore:      baseScore(rec),
			NewsScore:      round2(r.newsScore(rec.Articles, now)),
			PersonnelScore: round2(personnelScore(rec.Leads)),
			EventsScore:    round2(r.eventsScore(rec.Events, now)),
			KeywordScore:   round2(keywordScore(rec.Description, keywords)),
		}
		if strings.TrimSpace(zipCode) != "" && strings.TrimSpace(rec.Location) != "" {
			f.LocationScore = locationScore
		}

		final := f.BaseScore*weightBase +
			f.NewsScore*weightNews +
			f.PersonnelScore*weightPersonnel +
			f.EventsScore*weightEvents +
			f.LocationScore*weightLocation +
			f.KeywordScore*weightKeywords

		rec.Ranking = &Ranking{FinalScore: round2(final), Factors: f}
	}

	sort.SliceStable(records, func(i, j int) bool {
		si, sj := records[i].Ranking.FinalScore, records[j].Ranking.FinalScore
		if si != sj {
			return si > sj
		}
		return records[i].Name < records[j].Name
	})
	return records
}

func baseScore(rec *Recommendation) float64 {
	if rec.FitScore == nil || rec.FitScore.OverallScore == nil {
		return defaultBaseScore
	}
	return *rec.FitScore.OverallScore
}

func (r *Ranker) newsScore(articles []Article, now time.Time) float64 {
	score := 0.0
	for _, a := range articles {
		multiplier := 1.0
		if matchesSource(a.Source, a.URL, r.priorityNews) {
			multiplier = priorityMultiplier
		}

		if strings.TrimSpace(a.Date) == "" {
			continue
		}
		published, ok := parseDate(a.Date)
		if !ok {
			score += unparsableDateScore * multiplier
			continue
		}
		// future-dated articles count as published today
		days := math.Max(0, daysBetween(published, now))
		score += math.Max(0, newsWindowDays-days) / newsWindowDays * 10 * multiplier
	}
	return math.Min(maxNewsScore, score)
}

func personnelScore(leads []Lead) float64 {
	score := 0.0
	for _, l := range leads {
		title := strings.ToLower(l.Title)
		switch {
		case cLevelPattern.MatchString(title):
			score += 3
		case seniorPattern.MatchString(title):
			score += 2
		default:
			score++
		}
		if strings.TrimSpace(l.RecentQuote) != "" {
			score += 2
		}
	}
	return math.Min(maxPersonnelScore, score)
}

func (r *Ranker) eventsScore(events []Event, now time.Time) float64 {
	score := 0.0
	for _, e := range events {
		multiplier := 1.0
		if matchesURL(e.URL, r.priorityEvents) {
			multiplier = priorityMultiplier
		}

		if strings.TrimSpace(e.Date) == "" {
			continue
		}
		date, ok := parseDate(e.Date)
		if !ok {
			score += unparsableDateScore * multiplier
			continue
		}
		daysUntil := daysBetween(now, date)
		if daysUntil >= 0 && daysUntil <= eventWindowDays {
			score += (eventWindowDays - daysUntil) / eventWindowDays * 10 * multiplier
		}
	}
	return math.Min(maxEventsScore, score)
}

func keywordScore(description string, keywords []string) float64 {
	desc := strings.ToLower(description)
	matches := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(desc, kw) {
			matches++
		}
	}
	return math.Min(maxKeywordScore, float64(matches*2))
}

// matchesSource checks the outlet name and the article URL. Names are
// compared without their TLD so "Business Insider" matches
// businessinsider.com.
func matchesSource(source, url string, priority []string) bool {
	name := nonAlphanumeric.ReplaceAllString(strings.ToLower(source), "")
	for _, domain := range priority {
		if name != "" && strings.Contains(name, nonAlphanumeric.ReplaceAllString(stripTLD(domain), "")) {
			return true
		}
	}
	return matchesURL(url, priority)
}

func matchesURL(url string, priority []string) bool {
	lower := strings.ToLower(url)
	if lower == "" {
		return false
	}
	for _, domain := range priority {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

func stripTLD(domain string) string {
	if i := strings.LastIndexByte(domain, '.'); i > 0 {
		return domain[:i]
	}
	return domain
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// daysBetween returns whole days from a to b, floored
func daysBetween(a, b time.Time) float64 {
	return math.Floor(b.Sub(a).Hours() / 24)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
