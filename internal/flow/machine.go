package flow

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultKeywords is returned whenever no keyword has been derived yet
var DefaultKeywords = []string{"B2B", "Lead Generation", "Marketing", "Sales"}

var (
	affirmativeTokens = map[string]bool{
		"yes": true, "y": true, "yeah": true, "yep": true, "sure": true,
		"ok": true, "okay": true, "true": true, "absolutely": true,
	}
	wordPattern = regexp.MustCompile(`[a-z0-9']+`)
)

// Answer is one entry of the append-only answer log
type Answer struct {
	Step       Step      `json:"step"`
	Answer     string    `json:"answer"`
	RecordedAt time.Time `json:"recorded_at"`
}

// KeywordSynthesizer derives keywords from the context known so far
type KeywordSynthesizer interface {
	Synthesize(ctx context.Context, c Context) ([]string, error)
}

// Machine holds the onboarding state of one session. It is not safe for
// concurrent use; the owner serializes access.
type Machine struct {
	synthesizer KeywordSynthesizer
	logger      *zap.Logger
	now         func() time.Time

	product         string
	market          string
	companySize     string
	zipCode         string
	linkedInConsent bool

	// folded keyword -> first-seen spelling
	keywords map[string]string
	answers  []Answer
}

// NewMachine creates an empty state machine. synthesizer may be nil, in
// which case keywords only ever come from DefaultKeywords.
func NewMachine(synthesizer KeywordSynthesizer, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		synthesizer: synthesizer,
		logger:      logger,
		now:         time.Now,
		keywords:    make(map[string]string),
	}
}

// StoreAnswer records answer for step, updates the typed field the step
// owns and re-runs keyword synthesis for context-bearing steps. Keyword
// failures are logged and never prevent the answer from being stored. It
// returns false only when step is not part of the flow.
func (m *Machine) StoreAnswer(ctx context.Context, step Step, answer string) bool {
	if _, ok := ParseStep(string(step)); !ok {
		m.logger.Warn("Ignoring answer for unknown step", zap.String("step", string(step)))
		return false
	}

	m.answers = append(m.answers, Answer{Step: step, Answer: answer, RecordedAt: m.now()})
	trimmed := strings.TrimSpace(answer)

	switch step {
	case StepProduct:
		m.product = trimmed
	case StepMarket:
		m.market = trimmed
	case StepCompanySize:
		m.companySize = trimmed
	case StepLinkedIn:
		m.linkedInConsent = isAffirmative(trimmed)
	case StepLocation:
		if !containsWord(trimmed, "skip") {
			m.zipCode = trimmed
		}
	}

	m.logger.Debug("Stored onboarding answer",
		zap.String("step", string(step)),
		zap.Int("answer_count", len(m.answers)))

	if step.synthesizes() {
		m.refreshKeywords(ctx)
	}

	return true
}

func (m *Machine) refreshKeywords(ctx context.Context) {
	if m.synthesizer == nil {
		return
	}

	before := len(m.keywords)
	found, err := m.synthesizer.Synthesize(ctx, m.BuildContext())
	if err != nil {
		m.logger.Warn("Keyword synthesis failed, keeping existing keywords",
			zap.Error(err),
			zap.Int("keyword_count", before))
		return
	}

	m.mergeKeywords(found)
	m.logger.Debug("Keywords updated",
		zap.Int("previous_count", before),
		zap.Int("keyword_count", len(m.keywords)))
}

// mergeKeywords unions found into the keyword set. Identity is
// case-insensitive; the first spelling seen is kept.
func (m *Machine) mergeKeywords(found []string) {
	for _, kw := range found {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		folded := strings.ToLower(kw)
		if _, exists := m.keywords[folded]; !exists {
			m.keywords[folded] = kw
		}
	}
}

// BuildContext derives the sparse prompt context from the typed fields and
// the most recent differentiation answer.
func (m *Machine) BuildContext() Context {
	c := Context{
		Product:         m.product,
		Market:          m.market,
		CompanySize:     m.companySize,
		LinkedInConsent: m.linkedInConsent,
		ZipCode:         m.zipCode,
	}
	for i := len(m.answers) - 1; i >= 0; i-- {
		if m.answers[i].Step == StepDifferentiation {
			c.Differentiation = strings.TrimSpace(m.answers[i].Answer)
			break
		}
	}
	return c
}

// CleanKeywords returns the keyword set trimmed, deduplicated and sorted.
// The result is never empty.
func (m *Machine) CleanKeywords() []string {
	values := make([]string, 0, len(m.keywords))
	for _, kw := range m.keywords {
		values = append(values, kw)
	}
	return CleanKeywords(values)
}

// CleanKeywords trims, deduplicates and sorts keywords, falling back to
// DefaultKeywords when nothing is left.
func CleanKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		cleaned = append(cleaned, kw)
	}
	if len(cleaned) == 0 {
		return append([]string(nil), DefaultKeywords...)
	}
	sort.Strings(cleaned)
	return cleaned
}

// Reset clears every field and the answer log
func (m *Machine) Reset() {
	m.product = ""
	m.market = ""
	m.companySize = ""
	m.zipCode = ""
	m.linkedInConsent = false
	m.keywords = make(map[string]string)
	m.answers = nil
}

// Product returns the stored product answer
func (m *Machine) Product() string { return m.product }

// Market returns the stored market answer
func (m *Machine) Market() string { return m.market }

// CompanySize returns the stored company size answer
func (m *Machine) CompanySize() string { return m.companySize }

// Location returns the stored zip code, empty when not provided
func (m *Machine) Location() string { return m.zipCode }

// LinkedInConsent reports whether the user agreed to LinkedIn enrichment
func (m *Machine) LinkedInConsent() bool { return m.linkedInConsent }

// Keywords returns the cleaned keyword list
func (m *Machine) Keywords() []string { return m.CleanKeywords() }

// Answers returns a copy of the answer log
func (m *Machine) Answers() []Answer {
	out := make([]Answer, len(m.answers))
	copy(out, m.answers)
	return out
}

func isAffirmative(answer string) bool {
	for _, word := range wordPattern.FindAllString(strings.ToLower(answer), -1) {
		if affirmativeTokens[word] {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if w == word {
			return true
		}
	}
	return false
}
