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

// Package recommend turns a completed onboarding profile into a ranked list
// of target companies. Generation goes through the LLM gateway; every
// unrecoverable failure falls back to a fixed mock dataset.
package recommend

// Article is a news item about a recommended company
type Article struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Date   string `json:"date"`
	URL    string `json:"url"`
	Quote  string `json:"quote,omitempty"`
}

// Lead is a decision maker at a recommended company
type Lead struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Email       string `json:"email,omitempty"`
	LinkedIn    string `json:"linkedin,omitempty"`
	RecentQuote string `json:"recent_quote,omitempty"`
}

// Event is an upcoming event where company representatives are expected
type Event struct {
	Name               string   `json:"name"`
	Date               string   `json:"date"`
	Location           string   `json:"location,omitempty"`
	URL                string   `json:"url,omitempty"`
	Description        string   `json:"description,omitempty"`
	AttendingCompanies []string `json:"attending_companies,omitempty"`
}

// FitScore holds the model's own assessment. OverallScore is a pointer so
// an absent score can be told apart from zero.
type FitScore struct {
	ProductFit   float64  `json:"product_fit,omitempty"`
	MarketFit    float64  `json:"market_fit,omitempty"`
	SizeFit      float64  `json:"size_fit,omitempty"`
	KeywordFit   float64  `json:"keyword_fit,omitempty"`
	OverallScore *float64 `json:"overall_score,omitempty"`
}

// Factors itemizes every contribution to a final ranking score
type Factors struct {
	BaseScore      float64 `json:"base_score"`
	NewsScore      float64 `json:"news_score"`
	PersonnelScore float64 `json:"personnel_score"`
	EventsScore    float64 `json:"events_score"`
	LocationScore  float64 `json:"location_score"`
	KeywordScore   float64 `json:"keyword_score"`
}

// Ranking is attached to each record by the ranker
type Ranking struct {
	FinalScore float64 `json:"final_score"`
	Factors    Factors `json:"factors"`
}

// Recommendation is one target company
type Recommendation struct {
	Name             string    `json:"name"`
	Website          string    `json:"website,omitempty"`
	Industry         string    `json:"industry,omitempty"`
	Size             string    `json:"size,omitempty"`
	Description      string    `json:"description"`
	Location         string    `json:"location,omitempty"`
	InvestmentAreas  []string  `json:"investment_areas"`
	BudgetAllocation string    `json:"budget_allocation,omitempty"`
	Articles         []Article `json:"articles"`
	Leads            []Lead    `json:"leads"`
	Events           []Event   `json:"events"`
	FitScore         *FitScore `json:"fit_score,omitempty"`
	Ranking          *Ranking  `json:"ranking,omitempty"`
}

// Source tells callers where a result came from
type Source string

const (
	// SourceLLM means the records were generated by the configured provider
	SourceLLM Source = "llm"
	// SourceMock means the fixed dataset was served
	SourceMock Source = "mock"
)

// Result is the outcome of one generation request. FallbackReason is set
// whenever Source is SourceMock.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Source          Source           `json:"source"`
	FallbackReason  string           `json:"fallback_reason,omitempty"`
}
