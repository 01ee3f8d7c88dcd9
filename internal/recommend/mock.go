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
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed mock_recommendations.json
var mockData []byte

// MockRecommendations returns a fresh copy of the fixed dataset
func MockRecommendations() ([]Recommendation, error) {
	var records []Recommendation
	if err := json.Unmarshal(mockData, &records); err != nil {
		return nil, fmt.Errorf("failed to decode mock recommendations: %w", err)
	}
	return records, nil
}
