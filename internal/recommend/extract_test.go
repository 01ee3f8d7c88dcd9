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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		strategy  Strategy
		names     []string
		dropped   int
		wantError bool
	}{
		{
			name:     "array wrapped in prose and fence",
			text:     "Sure! Here are the companies:\n```json\n[{\"name\":\"Acme\",\"description\":\"Widgets\"},{\"name\":\"Globex\",\"description\":\"Energy\"}]\n```\nLet me know.",
			strategy: StrategyArray,
			names:    []string{"Acme", "Globex"},
		},
		{
			name:     "single object",
			text:     `Result: {"name":"Initech","description":"Software","articles":[]}`,
			strategy: StrategyObject,
			names:    []string{"Initech"},
		},
		{
			name:     "fenced block when outer spans are broken",
			text:     "Notes {draft} ```json\n[{\"name\":\"Umbrella\",\"description\":\"Pharma\"}]\n``` trailing ]}",
			strategy: StrategyCodeBlock,
			names:    []string{"Umbrella"},
		},
		{
			name:     "elements that are not objects are dropped",
			text:     `[{"name":"Acme","description":"Widgets"}, "oops", 5]`,
			strategy: StrategyArray,
			names:    []string{"Acme"},
			dropped:  2,
		},
		{
			name:      "plain prose",
			text:      "I could not find any companies matching that profile.",
			wantError: true,
		},
		{
			name:      "truncated json",
			text:      `[{"name":"Acme","description":"Wid`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := Extract(tt.text)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrNoStructuredData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, ex.Strategy)
			assert.Equal(t, tt.dropped, ex.Dropped)

			var names []string
			for _, r := range ex.Records {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestExtractDecodesNestedFields(t *testing.T) {
	text := `[{
		"name": "Acme",
		"description": "Widgets",
		"fit_score": {"overall_score": 82},
		"articles": [{"title": "Acme raises", "source": "Forbes", "date": "2025-05-01", "url": "https://forbes.com/acme"}],
		"leads": [{"name": "Ann", "title": "CEO", "recent_quote": "We are growing"}],
		"events": [{"name": "Expo", "date": "2025-06-10", "attending_companies": ["Acme"]}]
	}]`

	ex, err := Extract(text)
	require.NoError(t, err)
	require.Len(t, ex.Records, 1)

	rec := ex.Records[0]
	require.NotNil(t, rec.FitScore)
	require.NotNil(t, rec.FitScore.OverallScore)
	assert.Equal(t, 82.0, *rec.FitScore.OverallScore)
	assert.Equal(t, "We are growing", rec.Leads[0].RecentQuote)
	assert.Equal(t, []string{"Acme"}, rec.Events[0].AttendingCompanies)
}

func TestExtractCoercesMistypedFields(t *testing.T) {
	text := `[
		{"name":"Acme Retail","description":"Retail chain","size":5000,"fit_score":{"overall_score":"88"},"events":"TBD"},
		{"name":"Beta Stores","description":"Grocery","budget_allocation":{"rd":"40%","ops":12},"investment_areas":"AI",
		 "leads":[{"name":"Bo","title":"VP Sales"}, "nobody"],"articles":{"title":"not a list"}}
	]`

	ex, err := Extract(text)
	require.NoError(t, err)
	assert.Equal(t, 0, ex.Dropped)
	require.Len(t, ex.Records, 2)

	acme := ex.Records[0]
	assert.Equal(t, "5000", acme.Size)
	require.NotNil(t, acme.FitScore)
	require.NotNil(t, acme.FitScore.OverallScore)
	assert.Equal(t, 88.0, *acme.FitScore.OverallScore)
	assert.Empty(t, acme.Events)

	beta := ex.Records[1]
	assert.Equal(t, "ops: 12, rd: 40%", beta.BudgetAllocation)
	assert.Equal(t, []string{"AI"}, beta.InvestmentAreas)
	require.Len(t, beta.Leads, 1)
	assert.Equal(t, "VP Sales", beta.Leads[0].Title)
	assert.Empty(t, beta.Articles)
}

func TestExtractUnparsableScoreLeavesOverallUnset(t *testing.T) {
	ex, err := Extract(`[{"name":"Acme","description":"Widgets","fit_score":{"overall_score":"high","product_fit":"7.5"}}]`)
	require.NoError(t, err)
	require.Len(t, ex.Records, 1)

	score := ex.Records[0].FitScore
	require.NotNil(t, score)
	assert.Nil(t, score.OverallScore)
	assert.Equal(t, 7.5, score.ProductFit)
}
