package keywords

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/atom-onboarding/internal/flow"
	"github.com/your-org/atom-onboarding/internal/llm"
	"go.uber.org/zap/zaptest"
)

type fakeGateway struct {
	configured bool
	text       string
	err        error
	prompts    []string
	timeouts   []time.Duration
}

func (f *fakeGateway) Configured() bool { return f.configured }

func (f *fakeGateway) Generate(_ context.Context, prompt string, timeout time.Duration, _ ...llm.Option) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.timeouts = append(f.timeouts, timeout)
	return f.text, f.err
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "json array",
			in:   `["retail analytics", "point of sale", "inventory"]`,
			want: []string{"retail analytics", "point of sale", "inventory"},
		},
		{
			name: "fenced json",
			in:   "```json\n[\"fintech\", \"payments\"]\n```",
			want: []string{"fintech", "payments"},
		},
		{
			name: "mixed element types fall back to splitting",
			in:   `["fintech", 42]`,
			want: []string{"fintech", "42"},
		},
		{
			name: "comma separated prose",
			in:   "fintech, 'payments', \"SMB\" ",
			want: []string{"fintech", "payments", "SMB"},
		},
		{
			name: "nothing usable",
			in:   "``` ```",
			want: DefaultKeywords,
		},
		{
			name: "empty",
			in:   "",
			want: DefaultKeywords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseResponse(tt.in))
		})
	}
}

func TestParseResponseCapsResult(t *testing.T) {
	items := make([]string, 20)
	for i := range items {
		items[i] = fmt.Sprintf("%q", fmt.Sprintf("kw%d", i))
	}
	got := ParseResponse("[" + strings.Join(items, ",") + "]")
	assert.Len(t, got, MaxKeywords)
	assert.Equal(t, "kw0", got[0])
}

func TestSynthesizeWithGateway(t *testing.T) {
	gateway := &fakeGateway{configured: true, text: "```json\n[\"retail\", \"analytics\"]\n```"}
	s := NewSynthesizer(gateway, 7*time.Second, zaptest.NewLogger(t))

	got, err := s.Synthesize(context.Background(), flow.Context{Product: "B2B analytics tool", Market: "retail"})
	require.NoError(t, err)
	assert.Equal(t, []string{"retail", "analytics"}, got)

	require.Len(t, gateway.prompts, 1)
	assert.Contains(t, gateway.prompts[0], "Product/Service: B2B analytics tool")
	assert.Contains(t, gateway.prompts[0], "Target Market/Industry: retail")
	assert.NotContains(t, gateway.prompts[0], "Target Company Size")
	assert.Equal(t, 7*time.Second, gateway.timeouts[0])
}

func TestSynthesizeGatewayFailure(t *testing.T) {
	gateway := &fakeGateway{configured: true, err: &llm.Failure{Kind: llm.KindTimeout, Provider: "stub", Err: errors.New("slow")}}
	s := NewSynthesizer(gateway, time.Second, zaptest.NewLogger(t))

	got, err := s.Synthesize(context.Background(), flow.Context{Product: "CRM"})
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, llm.IsFailureKind(err, llm.KindTimeout))
}

func TestSynthesizeWithoutProvider(t *testing.T) {
	gateway := &fakeGateway{configured: false}
	s := NewSynthesizer(gateway, time.Second, zaptest.NewLogger(t))

	got, err := s.Synthesize(context.Background(), flow.Context{
		Product: "Inventory forecasting software for grocery chains",
		Market:  "grocery retail",
	})
	require.NoError(t, err)
	assert.Empty(t, gateway.prompts, "unconfigured gateway must not be called")
	assert.Equal(t, "grocery", got[0], "most frequent word first")
	assert.Contains(t, got, "inventory")
	assert.NotContains(t, got, "for")
}

func TestSynthesizeEmptyContext(t *testing.T) {
	gateway := &fakeGateway{configured: true, text: `["x"]`}
	s := NewSynthesizer(gateway, time.Second, zaptest.NewLogger(t))

	got, err := s.Synthesize(context.Background(), flow.Context{LinkedInConsent: true})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, gateway.prompts)
}

func TestExtractBasicPadsShortResults(t *testing.T) {
	got := ExtractBasic("CRM for dentists")
	assert.Equal(t, []string{"crm", "dentists"}, got[:2])
	assert.Len(t, got, 10)
	assert.Contains(t, got, "B2B")
}

func TestSynthesizerFeedsMachine(t *testing.T) {
	gateway := &fakeGateway{configured: true, text: `["analytics", "retail"]`}
	m := flow.NewMachine(NewSynthesizer(gateway, time.Second, zaptest.NewLogger(t)), zaptest.NewLogger(t))

	m.StoreAnswer(context.Background(), flow.StepProduct, "B2B analytics tool")
	assert.Equal(t, []string{"analytics", "retail"}, m.CleanKeywords())
}
