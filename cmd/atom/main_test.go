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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/atom-onboarding/internal/onboarding"
	"github.com/your-org/atom-onboarding/internal/recommend"
	"go.uber.org/zap/zaptest"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "onboard", "recommend"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRecommendRequiresProduct(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"recommend", "--market", "retail"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--product")
}

func TestRunOnboarding(t *testing.T) {
	service := onboarding.NewService(onboarding.Config{}, nil, nil, nil, nil, zaptest.NewLogger(t))
	defer func() { _ = service.Close() }()

	in := strings.NewReader("B2B analytics tool\nretail\nReal-time shelf insights\nmid-market\nyes\n94103")
	var out bytes.Buffer

	require.NoError(t, runOnboarding(context.Background(), service, in, &out))

	text := out.String()
	assert.Contains(t, text, "What product or service does your company offer?")
	assert.Contains(t, text, "Keywords: ")
	assert.Contains(t, text, "Showing sample companies")
	assert.Contains(t, text, "\n3. ")

	count, err := service.Sessions().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "the terminal session is discarded at the end")
}

func TestRunOnboardingStopsAtEOF(t *testing.T) {
	service := onboarding.NewService(onboarding.Config{}, nil, nil, nil, nil, zaptest.NewLogger(t))
	defer func() { _ = service.Close() }()

	err := runOnboarding(context.Background(), service, strings.NewReader("CRM\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "market")
}

func TestRunRecommendWithoutProvider(t *testing.T) {
	flags := &profileFlags{product: "AI sales assistant", market: "SaaS", zip: "94103", linkedin: true}

	result := runRecommend(context.Background(), nil, time.Second, nil, flags, 2, zaptest.NewLogger(t))
	require.NotNil(t, result)
	assert.Equal(t, recommend.SourceMock, result.Source)
	assert.Len(t, result.Recommendations, 2)

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, result))

	var decoded recommend.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, result.Recommendations[0].Name, decoded.Recommendations[0].Name)
}
