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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type rawFields map[string]json.RawMessage

// decodeRecord builds a record from one JSON object. Model output is loosely
// typed, so each field is coerced on its own: scalars become text, objects
// are flattened to "key: value" pairs and values that cannot be coerced are
// left empty. Only a non-object element is an error; missing required
// fields are left for Verify.
func decodeRecord(raw json.RawMessage) (Recommendation, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return Recommendation{}, err
	}

	rec := Recommendation{
		Name:             text(fields["name"]),
		Website:          text(fields["website"]),
		Industry:         text(fields["industry"]),
		Size:             text(fields["size"]),
		Description:      text(fields["description"]),
		Location:         text(fields["location"]),
		InvestmentAreas:  textList(fields["investment_areas"]),
		BudgetAllocation: text(fields["budget_allocation"]),
		FitScore:         fitScore(fields["fit_score"]),
	}

	for _, f := range objects(fields["articles"]) {
		rec.Articles = append(rec.Articles, Article{
			Title:  text(f["title"]),
			Source: text(f["source"]),
			Date:   text(f["date"]),
			URL:    text(f["url"]),
			Quote:  text(f["quote"]),
		})
	}
	for _, f := range objects(fields["leads"]) {
		rec.Leads = append(rec.Leads, Lead{
			Name:        text(f["name"]),
			Title:       text(f["title"]),
			Email:       text(f["email"]),
			LinkedIn:    text(f["linkedin"]),
			RecentQuote: text(f["recent_quote"]),
		})
	}
	for _, f := range objects(fields["events"]) {
		rec.Events = append(rec.Events, Event{
			Name:               text(f["name"]),
			Date:               text(f["date"]),
			Location:           text(f["location"]),
			URL:                text(f["url"]),
			Description:        text(f["description"]),
			AttendingCompanies: textList(f["attending_companies"]),
		})
	}
	return rec, nil
}

func decodeFields(raw json.RawMessage) (rawFields, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("recommendation is not a JSON object")
	}
	var fields rawFields
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// text renders any JSON value as display text
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case 'n':
		return ""
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{':
		var fields rawFields
		if err := json.Unmarshal(raw, &fields); err != nil {
			return ""
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if v := text(fields[k]); v != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", k, v))
			}
		}
		return strings.Join(parts, ", ")
	case '[':
		return strings.Join(textList(raw), ", ")
	default:
		// numbers and booleans keep their literal spelling
		return string(raw)
	}
}

// textList accepts an array of values or a single value
func textList(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] != '[' {
		if s := text(raw); s != "" {
			return []string{s}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := text(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// objects returns the object elements of an array, skipping anything else
func objects(raw json.RawMessage) []rawFields {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]rawFields, 0, len(items))
	for _, item := range items {
		if f, err := decodeFields(item); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func fitScore(raw json.RawMessage) *FitScore {
	fields, err := decodeFields(raw)
	if err != nil {
		return nil
	}
	score := &FitScore{}
	score.ProductFit, _ = number(fields["product_fit"])
	score.MarketFit, _ = number(fields["market_fit"])
	score.SizeFit, _ = number(fields["size_fit"])
	score.KeywordFit, _ = number(fields["keyword_fit"])
	if overall, ok := number(fields["overall_score"]); ok {
		score.OverallScore = &overall
	}
	return score
}

// number accepts JSON numbers and numeric strings such as "88" or "88%"
func number(raw json.RawMessage) (float64, bool) {
	s := text(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
