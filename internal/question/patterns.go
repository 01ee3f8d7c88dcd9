package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/your-org/atom-onboarding/internal/flow"
)

// DefaultSuggestedMessage is returned when no targeting pattern matches
const DefaultSuggestedMessage = "Tell me more about your product and target customers"

// TargetingPattern maps product keywords to outreach message templates
type TargetingPattern struct {
	Keywords         []string `json:"keywords"`
	Industries       []string `json:"industries"`
	MessageTemplates []string `json:"message_templates"`
}

// Patterns is the content of the optional pattern file
type Patterns struct {
	TargetingPatterns []TargetingPattern `json:"targeting_patterns"`
}

// DefaultPatterns is used when no pattern file is present
func DefaultPatterns() *Patterns {
	return &Patterns{
		TargetingPatterns: []TargetingPattern{
			{
				Keywords:   []string{"AI", "artificial intelligence"},
				Industries: []string{"SaaS", "Tech"},
				MessageTemplates: []string{
					"How are you currently handling {pain_point}?",
					"Many {industry} companies use our solution for {benefit}",
				},
			},
		},
	}
}

// LoadPatterns reads the pattern file at path. A missing file is not an
// error and yields DefaultPatterns; a malformed one is.
func LoadPatterns(path string) (*Patterns, error) {
	if path == "" {
		return DefaultPatterns(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPatterns(), nil
		}
		return nil, fmt.Errorf("failed to read patterns file: %w", err)
	}

	var patterns Patterns
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("failed to parse patterns file: %w", err)
	}
	return &patterns, nil
}

// BestMatch returns the first pattern with a keyword contained in product,
// compared case-insensitively.
func (p *Patterns) BestMatch(product string) (TargetingPattern, bool) {
	if p == nil || strings.TrimSpace(product) == "" {
		return TargetingPattern{}, false
	}
	lower := strings.ToLower(product)
	for _, pattern := range p.TargetingPatterns {
		for _, kw := range pattern.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return pattern, true
			}
		}
	}
	return TargetingPattern{}, false
}

// SuggestedMessage returns the first template of the best matching pattern
func (p *Patterns) SuggestedMessage(product string) string {
	if pattern, ok := p.BestMatch(product); ok && len(pattern.MessageTemplates) > 0 {
		return pattern.MessageTemplates[0]
	}
	return DefaultSuggestedMessage
}

// buildTemplates returns the fixed question for each step
func buildTemplates() map[flow.Step]string {
	return map[flow.Step]string{
		flow.StepProduct:         "What product or service does your company offer? Please provide a brief description.",
		flow.StepMarket:          "What market or industry sector are you targeting with your product or service?",
		flow.StepDifferentiation: "What makes your product unique compared to competitors?",
		flow.StepCompanySize:     "What size of companies are you primarily targeting? (e.g., Small, Medium, Enterprise)",
		flow.StepLinkedIn:        "Would you like to connect your LinkedIn account to enhance your company recommendations? This will help us find more relevant matches based on your professional network.",
		flow.StepLocation:        "What zip code are you in? This will help us find relevant local events. (You can skip this question if you prefer.)",
		flow.StepComplete:        "Awesome! I've gathered everything I need. Let's find some great companies for you.",
	}
}

// buildNextStepNames names each step when suggesting to move on to it
func buildNextStepNames() map[flow.Step]string {
	return map[flow.Step]string{
		flow.StepProduct:         "your target market",
		flow.StepMarket:          "what makes your product unique",
		flow.StepDifferentiation: "your target company size",
		flow.StepCompanySize:     "LinkedIn integration",
		flow.StepLinkedIn:        "your location",
		flow.StepLocation:        "completing your setup",
	}
}

// buildImpatiencePatterns detects answers asking to skip ahead
func buildImpatiencePatterns() []*regexp.Regexp {
	indicators := []string{
		"next", "move on", "continue", "skip", "enough", "let's go",
		"proceed", "done", "finished", "complete", "that's it", "that's all",
	}

	patterns := make([]*regexp.Regexp, 0, len(indicators))
	for _, indicator := range indicators {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(indicator)+`\b`))
	}
	return patterns
}

var (
	speakerPrefix   = regexp.MustCompile(`^(AI:|Atom:|Assistant:)\s*`)
	asidePattern    = regexp.MustCompile(`\[.*?\]|\(.*?\)`)
	questionPattern = regexp.MustCompile(`(?i)\b(what|how|why|when|where|which|can|could|would|will|do|does|is|are)\b`)
)

// cleanResponse reduces a model reply to a single question line. The reply
// is returned trimmed when no line looks like a question.
func cleanResponse(response string) string {
	response = speakerPrefix.ReplaceAllString(strings.TrimSpace(response), "")
	response = asidePattern.ReplaceAllString(response, "")

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "?") || questionPattern.MatchString(line) {
			return line
		}
	}
	return strings.TrimSpace(response)
}

const promptFooter = "Keep it short and engaging. This is for Atom.ai, a tool that helps founders find potential customers."

// buildQuestionPrompt asks for a conversational question for step, naming
// only the context that is actually known.
func buildQuestionPrompt(step flow.Step, c flow.Context) string {
	var b strings.Builder
	known := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	switch step {
	case flow.StepProduct:
		b.WriteString("Generate a friendly, conversational question asking what product or service the user sells.\n")
	case flow.StepMarket:
		known("The user sells", c.Product)
		b.WriteString("\nGenerate a friendly, conversational question asking what industry or market sector they target.\n")
		b.WriteString("Reference their product/service in your question.\n")
	case flow.StepDifferentiation:
		known("The user sells", c.Product)
		known("They target the industry", c.Market)
		b.WriteString("\nGenerate a friendly, conversational question asking what makes their product unique compared to competitors.\n")
		b.WriteString("Reference their product/service in your question.\n")
	case flow.StepCompanySize:
		known("The user sells", c.Product)
		known("They target the industry", c.Market)
		known("Their differentiator", c.Differentiation)
		b.WriteString("\nGenerate a friendly, conversational question asking what size of companies they typically target (e.g., SMB, Mid-Market, Enterprise).\n")
		b.WriteString("Reference their product/service in your question.\n")
	case flow.StepLinkedIn:
		known("The user sells", c.Product)
		known("They target the industry", c.Market)
		known("Their differentiator", c.Differentiation)
		known("Their target company size", c.CompanySize)
		b.WriteString("\nGenerate a friendly, conversational question asking if they would like to connect their LinkedIn account to improve recommendations. Explain briefly why this would be helpful.\n")
	case flow.StepLocation:
		known("The user sells", c.Product)
		known("They target the industry", c.Market)
		known("Their differentiator", c.Differentiation)
		known("Their target company size", c.CompanySize)
		b.WriteString("\nGenerate a friendly, conversational question asking for their zip code to help find local events.\n")
		b.WriteString("Mention that this is optional and they can skip this step.\n")
	default:
		fmt.Fprintf(&b, "Generate a friendly, conversational question for the step: %s\n", step)
	}

	b.WriteString(promptFooter)
	return b.String()
}

func orNotProvided(v string) string {
	if v == "" {
		return "Not provided yet"
	}
	return v
}

// buildFollowUpPrompt asks for a one-sentence clarification of answer
func buildFollowUpPrompt(req FollowUpRequest) string {
	var b strings.Builder
	b.WriteString("You are a friendly B2B research assistant helping a user set up their company research preferences.\n\n")
	b.WriteString("Current context:\n")
	fmt.Fprintf(&b, "- Product/Service: %s\n", orNotProvided(req.Context.Product))
	fmt.Fprintf(&b, "- Target Market: %s\n", orNotProvided(req.Context.Market))
	fmt.Fprintf(&b, "- Company Size: %s\n\n", orNotProvided(req.Context.CompanySize))
	fmt.Fprintf(&b, "Current step: %s\n", req.Step)
	fmt.Fprintf(&b, "User's answer: %q\n", req.Answer)
	fmt.Fprintf(&b, "Follow-up count: %d\n\n", req.FollowUpCount+1)
	b.WriteString("Generate a brief, friendly follow-up question that helps clarify or expand on their answer.\n")
	b.WriteString("Keep it concise (1 sentence max). Do not use technical jargon.\n")
	b.WriteString("If this is the second follow-up (count = 1), make it a final clarification before moving on.\n")
	b.WriteString("Do not include any thinking process in your response.")
	return b.String()
}
