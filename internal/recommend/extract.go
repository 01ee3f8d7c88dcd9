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
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoStructuredData is returned when no extraction strategy succeeds
var ErrNoStructuredData = errors.New("no structured recommendation data in response")

// Strategy names the extraction stage that produced a result
type Strategy string

const (
	StrategyArray     Strategy = "array"
	StrategyObject    Strategy = "object"
	StrategyCodeBlock Strategy = "code_block"
)

var jsonBlockPattern = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// Extraction is the structured data recovered from a response. Dropped
// counts array elements that are not JSON objects.
type Extraction struct {
	Records  []Recommendation
	Strategy Strategy
	Dropped  int
}

// Extract recovers recommendation records from free text. Strategies run in
// order and the first that parses wins: the outermost [...] span, the
// outermost {...} span, then each fenced json block.
func Extract(text string) (Extraction, error) {
	if span, ok := outerSpan(text, '[', ']'); ok {
		if ex, err := decodeArray(span); err == nil {
			ex.Strategy = StrategyArray
			return ex, nil
		}
	}

	if span, ok := outerSpan(text, '{', '}'); ok {
		if ex, err := decodeObject(span); err == nil {
			ex.Strategy = StrategyObject
			return ex, nil
		}
	}

	for _, match := range jsonBlockPattern.FindAllStringSubmatch(text, -1) {
		block := strings.TrimSpace(match[1])
		var ex Extraction
		var err error
		if strings.HasPrefix(block, "[") {
			ex, err = decodeArray(block)
		} else {
			ex, err = decodeObject(block)
		}
		if err == nil {
			ex.Strategy = StrategyCodeBlock
			return ex, nil
		}
	}

	return Extraction{}, ErrNoStructuredData
}

func outerSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decodeArray(span string) (Extraction, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return Extraction{}, err
	}
	// an empty array is usually a nested field, not the answer
	if len(raw) == 0 {
		return Extraction{}, errors.New("empty recommendation array")
	}

	ex := Extraction{Records: make([]Recommendation, 0, len(raw))}
	for _, item := range raw {
		rec, err := decodeRecord(item)
		if err != nil {
			ex.Dropped++
			continue
		}
		ex.Records = append(ex.Records, rec)
	}
	return ex, nil
}

func decodeObject(span string) (Extraction, error) {
	rec, err := decodeRecord(json.RawMessage(span))
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{Records: []Recommendation{rec}}, nil
}
