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
	"errors"
	"strings"
)

var (
	// ErrMissingName rejects a record without a company name
	ErrMissingName = errors.New("recommendation is missing a name")
	// ErrMissingDescription rejects a record without a description
	ErrMissingDescription = errors.New("recommendation is missing a description")
)

// Verify checks the required fields of rec and normalizes the rest in
// place. The website repair is best effort and does not validate the URL.
func Verify(rec *Recommendation) error {
	if strings.TrimSpace(rec.Name) == "" {
		return ErrMissingName
	}
	if strings.TrimSpace(rec.Description) == "" {
		return ErrMissingDescription
	}

	rec.Website = repairWebsite(strings.TrimSpace(rec.Website))

	if rec.Articles == nil {
		rec.Articles = []Article{}
	}
	if rec.Events == nil {
		rec.Events = []Event{}
	}
	if rec.Leads == nil {
		rec.Leads = []Lead{}
	}
	if rec.InvestmentAreas == nil {
		rec.InvestmentAreas = []string{}
	}
	return nil
}

func repairWebsite(website string) string {
	if website == "" || strings.HasPrefix(website, "http://") || strings.HasPrefix(website, "https://") {
		return website
	}
	if !strings.HasPrefix(website, "www.") && !strings.HasPrefix(website, "http") {
		return "https://www." + website
	}
	return "https://" + website
}
