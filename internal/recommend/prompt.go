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
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ContextSource exposes the onboarding answers the engine needs
type ContextSource interface {
	Product() string
	Market() string
	CompanySize() string
	Location() string
	LinkedInConsent() bool
	Keywords() []string
}

// Profile is a snapshot of a ContextSource taken per request
type Profile struct {
	Product         string   `json:"product"`
	Market          string   `json:"market"`
	CompanySize     string   `json:"company_size"`
	ZipCode         string   `json:"zip_code"`
	LinkedInConsent bool     `json:"linkedin_consent"`
	Keywords        []string `json:"keywords"`
}

// ProfileFrom reads src; a nil source yields the empty profile
func ProfileFrom(src ContextSource) Profile {
	if src == nil {
		return Profile{}
	}
	return Profile{
		Product:         src.Product(),
		Market:          src.Market(),
		CompanySize:     src.CompanySize(),
		ZipCode:         src.Location(),
		LinkedInConsent: src.LinkedInConsent(),
		Keywords:        src.Keywords(),
	}
}

var (
	startupSizeTerms    = []string{"small", "startup", "early", "seed", "series a"}
	startupKeywordTerms = []string{"startup", "early stage", "seed", "series a", "emerging"}
	techTerms           = []string{"gemini", "flash", "2.0", "ai", "ml", "llm", "gpt", "claude", "anthropic", "openai"}
	techTermPatterns    = compileWordPatterns(techTerms)
)

func compileWordPatterns(terms []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(terms))
	for _, term := range terms {
		patterns[term] = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(term) + `($|[^\p{L}\p{N}_])`)
	}
	return patterns
}

// Focus captures which prompt amplifiers apply to a profile
type Focus struct {
	Startup bool
	// Technology is the phrase injected into the technology amplifier,
	// empty when it does not apply
	Technology string
}

// Detailed reports whether the request warrants the detailed model
func (f Focus) Detailed() bool {
	return f.Startup || f.Technology != ""
}

// DetectFocus evaluates the startup and technology trigger lists
func DetectFocus(p Profile) Focus {
	var f Focus
	joined := strings.ToLower(strings.Join(p.Keywords, " "))

	switch {
	case strings.Contains(strings.ToLower(p.Product), "startup"):
		f.Startup = true
	case containsAny(strings.ToLower(p.CompanySize), startupSizeTerms):
		f.Startup = true
	case containsAny(joined, startupKeywordTerms):
		f.Startup = true
	}

	if matchingTechTerms(p.Product) != nil {
		f.Technology = p.Product
	} else if terms := matchingTechTerms(joined); terms != nil {
		f.Technology = strings.Join(terms, ", ")
	}
	return f
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func matchingTechTerms(text string) []string {
	var found []string
	for _, term := range techTerms {
		if techTermPatterns[term].MatchString(text) {
			found = append(found, term)
		}
	}
	return found
}

func orNotSpecified(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Not specified"
	}
	return v
}

// BuildPrompt renders the recommendation request for p as of now
func BuildPrompt(p Profile, now time.Time) string {
	keywords := "No specific keywords provided"
	if len(p.Keywords) > 0 {
		keywords = strings.Join(p.Keywords, ", ")
	}
	linkedin := "LinkedIn data is not available."
	if p.LinkedInConsent {
		linkedin = "LinkedIn data is available for network-based recommendations."
	}
	product := orNotSpecified(p.Product)
	market := orNotSpecified(p.Market)

	var b strings.Builder
	b.WriteString("You are a financial analyst specializing in B2B company research. ")
	b.WriteString("Generate TARGET company recommendations for a B2B sales professional with the following profile:\n\n")
	fmt.Fprintf(&b, "PRODUCT/SERVICE: %s\n", product)
	fmt.Fprintf(&b, "TARGET MARKET/INDUSTRY: %s\n", market)
	fmt.Fprintf(&b, "TARGET COMPANY SIZE: %s\n", orNotSpecified(p.CompanySize))
	fmt.Fprintf(&b, "KEYWORDS: %s\n", keywords)
	fmt.Fprintf(&b, "LOCATION: %s\n", orNotSpecified(p.ZipCode))
	fmt.Fprintf(&b, "%s\n\n", linkedin)
	fmt.Fprintf(&b, "CURRENT DATE: %s\n", now.Format("2006-01-02"))

	focus := DetectFocus(p)
	if focus.Startup {
		b.WriteString("\nIMPORTANT: Focus specifically on EARLY-STAGE STARTUPS and EMERGING COMPANIES rather than established enterprises.")
	}
	if focus.Technology != "" {
		fmt.Fprintf(&b, "\nIMPORTANT: Focus on companies that are actively using or developing %s technology.", focus.Technology)
	}

	fmt.Fprintf(&b, "\n\nIMPORTANT CLARIFICATION: The user is selling %s to companies in the %s market. ", product, market)
	b.WriteString("I need you to recommend POTENTIAL CUSTOMER COMPANIES that the user could sell to, NOT competitors who offer similar products. ")
	fmt.Fprintf(&b, "Focus on companies that might NEED or BUY %s.\n\n", product)

	b.WriteString("IMPORTANT: Focus on REAL companies only. DO NOT make up or hallucinate information. ")
	b.WriteString("If you're uncertain about details, provide less information rather than inventing facts. ")
	b.WriteString("Only include information you are confident is accurate.\n\n")

	b.WriteString(`For each company, you MUST provide ALL of the following information:
1. Company name (must be a real company)
2. Website URL (must be a real website)
3. Industry (specific industry the company operates in)
4. Company size (employees or revenue)
5. Brief description (1-2 sentences about what they actually do)
6. Current year's investment areas and focus (list at least 3 specific areas)
7. Budget allocation information (how they're allocating resources)
8. 2-3 recent news articles with direct quotes from executives (include the source, date in YYYY-MM-DD format, and URL for each)
9. 3-5 key leads/decision makers with titles, emails, and LinkedIn profiles
10. Upcoming events where company representatives will be present (include date in YYYY-MM-DD format, location, and URL)

Format each recommendation as a JSON object with the following structure:
{
  "name": "Company Name",
  "website": "https://company-website.com",
  "industry": "Industry",
  "size": "Size (employees/revenue)",
  "description": "Brief description",
  "investment_areas": ["Area 1", "Area 2", "Area 3"],
  "budget_allocation": "Budget allocation details",
  "fit_score": {"product_fit": 0, "market_fit": 0, "size_fit": 0, "keyword_fit": 0, "overall_score": 0},
  "articles": [
    {"title": "Article Title", "source": "Source Name", "date": "YYYY-MM-DD", "url": "https://article-url.com", "quote": "Direct quote from executive"}
  ],
  "leads": [
    {"name": "Lead Name", "title": "Job Title", "email": "email@company.com", "linkedin": "https://linkedin.com/in/profile", "recent_quote": "Optional recent quote"}
  ],
  "events": [
    {"name": "Event Name", "date": "YYYY-MM-DD", "location": "Event Location", "url": "https://event-url.com", "description": "Why the event is relevant", "attending_companies": ["Company 1", "Company 2"]}
  ]
}

Return your response as a valid JSON array of company objects. Include at least 3 detailed company recommendations.
`)
	return b.String()
}
