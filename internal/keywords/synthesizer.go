// Package keywords turns onboarding context into search keywords, through
// the LLM gateway when a provider is configured and a deterministic word
// extractor otherwise.
package keywords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/your-org/atom-onboarding/internal/flow"
	"github.com/your-org/atom-onboarding/internal/llm"
	"go.uber.org/zap"
)

// MaxKeywords caps a single synthesis result
const MaxKeywords = 15

// DefaultKeywords is used when a response cannot be parsed at all
var DefaultKeywords = []string{"B2B", "Sales", "Marketing", "Lead Generation"}

var (
	fallbackStripper = strings.NewReplacer("[", "", "]", "", `"`, "", "'", "")
	tokenPattern     = regexp.MustCompile(`\b\w+\b`)

	stopWords = map[string]bool{
		"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "in": true,
		"on": true, "at": true, "to": true, "for": true, "with": true, "by": true, "about": true,
		"as": true, "of": true, "is": true, "are": true, "was": true, "were": true, "be": true,
		"been": true, "being": true, "have": true, "has": true, "had": true, "do": true,
		"does": true, "did": true, "will": true, "would": true, "shall": true, "should": true,
		"can": true, "could": true, "may": true, "might": true, "must": true, "that": true,
		"which": true, "who": true, "whom": true, "this": true, "these": true, "those": true,
		"am": true, "doing": true, "i": true, "you": true, "he": true, "she": true, "it": true,
		"we": true, "they": true, "me": true, "him": true, "her": true, "us": true, "them": true,
		"our": true, "your": true, "their": true,
	}

	commonBusinessKeywords = []string{
		"B2B", "enterprise", "software", "technology", "solution", "platform", "service",
		"analytics", "automation", "AI", "cloud", "data", "security", "integration", "management",
	}
)

// Synthesizer produces keyword sets for the flow state machine
type Synthesizer struct {
	gateway llm.Generator
	logger  *zap.Logger
	timeout time.Duration
}

// NewSynthesizer creates a synthesizer; a nil or unconfigured gateway
// selects the deterministic extractor.
func NewSynthesizer(gateway llm.Generator, timeout time.Duration, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Synthesizer{gateway: gateway, logger: logger, timeout: timeout}
}

// Synthesize returns at most MaxKeywords keywords for c. A gateway failure
// is returned as an error; the caller treats it as "no new keywords".
func (s *Synthesizer) Synthesize(ctx context.Context, c flow.Context) ([]string, error) {
	if c.Text() == "" {
		return nil, nil
	}

	if s.gateway == nil || !s.gateway.Configured() {
		keywords := ExtractBasic(c.Text())
		s.logger.Debug("Extracted keywords without LLM", zap.Int("count", len(keywords)))
		return keywords, nil
	}

	text, err := s.gateway.Generate(ctx, BuildPrompt(c), s.timeout,
		llm.WithTemperature(0.2),
		llm.WithTopP(0.8),
		llm.WithTopK(40),
		llm.WithMaxOutputTokens(1024))
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return ExtractBasic(c.Text()), nil
		}
		return nil, fmt.Errorf("failed to generate keywords: %w", err)
	}

	keywords := ParseResponse(text)
	s.logger.Info("Generated keywords",
		zap.Int("count", len(keywords)),
		zap.Strings("keywords", keywords))
	return keywords, nil
}

// BuildPrompt embeds the known context and demands a bare JSON array
func BuildPrompt(c flow.Context) string {
	var b strings.Builder
	b.WriteString("You are a B2B sales assistant helping identify target keywords for prospecting.\n\n")
	b.WriteString("Based on the following information about a company's offering:\n")
	if c.Product != "" {
		fmt.Fprintf(&b, "- Product/Service: %s\n", c.Product)
	}
	if c.Market != "" {
		fmt.Fprintf(&b, "- Target Market/Industry: %s\n", c.Market)
	}
	if c.Differentiation != "" {
		fmt.Fprintf(&b, "- Unique Value Proposition: %s\n", c.Differentiation)
	}
	if c.CompanySize != "" {
		fmt.Fprintf(&b, "- Target Company Size: %s\n", c.CompanySize)
	}
	fmt.Fprintf(&b, "\nGenerate %d highly relevant keywords or short phrases that describe the offering and its ideal customers.\n", MaxKeywords)
	b.WriteString("Return ONLY a JSON array of strings with no additional text or explanation.\n")
	b.WriteString(`Example: ["keyword1", "keyword2", "keyword3"]`)
	return b.String()
}

// ParseResponse applies the parsing policy in order: strip a code fence,
// accept a JSON array made only of strings, fall back to comma splitting,
// and finally return DefaultKeywords.
func ParseResponse(text string) []string {
	body := llm.StripCodeFence(text)

	var raw []interface{}
	if err := json.Unmarshal([]byte(body), &raw); err == nil {
		keywords := make([]string, 0, len(raw))
		allStrings := true
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				allStrings = false
				break
			}
			if s = strings.TrimSpace(s); s != "" {
				keywords = append(keywords, s)
			}
		}
		if allStrings && len(keywords) > 0 {
			return capKeywords(keywords)
		}
	}

	var keywords []string
	for _, part := range strings.Split(fallbackStripper.Replace(body), ",") {
		if part = strings.TrimSpace(part); part != "" {
			keywords = append(keywords, part)
		}
	}
	if len(keywords) > 0 {
		return capKeywords(keywords)
	}

	return append([]string(nil), DefaultKeywords...)
}

func capKeywords(keywords []string) []string {
	if len(keywords) > MaxKeywords {
		return keywords[:MaxKeywords]
	}
	return keywords
}

// ExtractBasic ranks non-stop-words of text by frequency, ties broken by
// first appearance, and pads short results with common business terms.
func ExtractBasic(text string) []string {
	counts := make(map[string]int)
	var order []string
	for _, word := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) <= 2 || stopWords[word] {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	keywords := capKeywords(order)
	if len(keywords) < 5 {
		need := 10 - len(keywords)
		for _, kw := range commonBusinessKeywords {
			if need == 0 {
				break
			}
			if counts[strings.ToLower(kw)] > 0 {
				continue
			}
			keywords = append(keywords, kw)
			need--
		}
	}
	return keywords
}
