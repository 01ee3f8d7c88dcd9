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

package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/atom-onboarding/internal/llm"
	"go.uber.org/zap/zaptest"
)

func mockGeminiServer(t *testing.T, status int, body string, paths *[]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if paths != nil {
			*paths = append(*paths, r.URL.Path)
		}
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestComplete(t *testing.T) {
	var paths []string
	server := mockGeminiServer(t, http.StatusOK, `{
		"candidates": [
			{"content": {"role": "model", "parts": [{"text": "[\"retail\", \"analytics\"]"}]}, "finishReason": "STOP"}
		]
	}`, &paths)
	defer server.Close()

	client, err := NewClient(context.Background(), Config{APIKey: "test-key", Endpoint: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, ProviderName, client.Name())

	text, err := client.Complete(context.Background(), llm.Request{Prompt: "keywords please", Temperature: 0.2, TopK: 40, MaxOutputTokens: 1024})
	require.NoError(t, err)
	assert.Equal(t, `["retail", "analytics"]`, text)

	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], DefaultModel)
}

func TestCompleteStatusError(t *testing.T) {
	server := mockGeminiServer(t, http.StatusInternalServerError,
		`{"error": {"code": 500, "message": "backend exploded", "status": "INTERNAL"}}`, nil)
	defer server.Close()

	client, err := NewClient(context.Background(), Config{APIKey: "test-key", Endpoint: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Prompt: "p"})
	require.Error(t, err)

	var failure *llm.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ProviderName, failure.Provider)
}

func TestCompleteNoCandidates(t *testing.T) {
	server := mockGeminiServer(t, http.StatusOK, `{"candidates": []}`, nil)
	defer server.Close()

	client, err := NewClient(context.Background(), Config{APIKey: "test-key", Endpoint: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Prompt: "p"})
	assert.True(t, llm.IsFailureKind(err, llm.KindEmptyResponse), "got %v", err)
}
