package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedSynthesizer returns one batch per call and records the contexts it saw
type scriptedSynthesizer struct {
	batches  [][]string
	err      error
	contexts []Context
}

func (s *scriptedSynthesizer) Synthesize(_ context.Context, c Context) ([]string, error) {
	s.contexts = append(s.contexts, c)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func TestNextStep(t *testing.T) {
	step := StepProduct
	transitions := 0
	for step != StepComplete {
		next := NextStep(step)
		assert.Greater(t, indexOf(next), indexOf(step), "transition from %s must move forward", step)
		step = next
		transitions++
	}
	assert.Equal(t, 6, transitions)

	assert.Equal(t, StepComplete, NextStep(StepLocation))
	assert.Equal(t, StepComplete, NextStep(StepComplete))
	assert.Equal(t, StepProduct, NextStep(Step("bogus")))
	assert.Equal(t, StepProduct, NextStep(Step("")))
}

func indexOf(step Step) int {
	for i, s := range Steps {
		if s == step {
			return i
		}
	}
	return -1
}

func TestParseStep(t *testing.T) {
	step, ok := ParseStep("company_size")
	assert.True(t, ok)
	assert.Equal(t, StepCompanySize, step)

	_, ok = ParseStep("keywords")
	assert.False(t, ok)
}

func TestStoreAnswerTypedFields(t *testing.T) {
	m := NewMachine(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	require.True(t, m.StoreAnswer(ctx, StepProduct, "  B2B analytics tool "))
	require.True(t, m.StoreAnswer(ctx, StepMarket, "retail"))
	require.True(t, m.StoreAnswer(ctx, StepCompanySize, "mid-market"))
	require.True(t, m.StoreAnswer(ctx, StepLinkedIn, "yes"))
	require.True(t, m.StoreAnswer(ctx, StepLocation, "94103"))

	assert.Equal(t, "B2B analytics tool", m.Product())
	assert.Equal(t, "retail", m.Market())
	assert.Equal(t, "mid-market", m.CompanySize())
	assert.True(t, m.LinkedInConsent())
	assert.Equal(t, "94103", m.Location())
	assert.Equal(t, StepComplete, NextStep(StepLocation))
	assert.Len(t, m.Answers(), 5)
}

func TestStoreAnswerMostRecentWins(t *testing.T) {
	m := NewMachine(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	m.StoreAnswer(ctx, StepProduct, "CRM")
	m.StoreAnswer(ctx, StepProduct, "Payroll software")
	m.StoreAnswer(ctx, StepDifferentiation, "cheaper")
	m.StoreAnswer(ctx, StepDifferentiation, "faster onboarding")

	c := m.BuildContext()
	assert.Equal(t, "Payroll software", c.Product)
	assert.Equal(t, "faster onboarding", c.Differentiation)
	assert.Len(t, m.Answers(), 4, "answer log keeps every entry")
}

func TestStoreAnswerUnknownStep(t *testing.T) {
	m := NewMachine(nil, zaptest.NewLogger(t))

	assert.False(t, m.StoreAnswer(context.Background(), Step("keywords"), "anything"))
	assert.Empty(t, m.Answers())
}

func TestLinkedInConsent(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"yes", true},
		{"YES", true},
		{"Sure, go ahead", true},
		{"ok", true},
		{"y", true},
		{"no", false},
		{"maybe later", false},
		{"", false},
	}

	for _, tt := range tests {
		m := NewMachine(nil, zaptest.NewLogger(t))
		m.StoreAnswer(context.Background(), StepLinkedIn, tt.answer)
		assert.Equal(t, tt.want, m.LinkedInConsent(), "answer %q", tt.answer)
	}
}

func TestLocationSkip(t *testing.T) {
	m := NewMachine(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	m.StoreAnswer(ctx, StepLocation, "Skip")
	assert.Empty(t, m.Location())

	m.StoreAnswer(ctx, StepLocation, "I'd rather skip this one")
	assert.Empty(t, m.Location())

	m.StoreAnswer(ctx, StepLocation, "10001")
	assert.Equal(t, "10001", m.Location())
	assert.Len(t, m.Answers(), 3)
}

func TestBuildContextSparse(t *testing.T) {
	m := NewMachine(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	assert.Empty(t, m.BuildContext().Fields())

	m.StoreAnswer(ctx, StepProduct, "B2B analytics tool")
	m.StoreAnswer(ctx, StepLinkedIn, "no")

	fields := m.BuildContext().Fields()
	assert.Equal(t, map[string]interface{}{"product": "B2B analytics tool"}, fields)

	m.StoreAnswer(ctx, StepLinkedIn, "yes")
	m.StoreAnswer(ctx, StepLocation, "94103")
	fields = m.BuildContext().Fields()
	assert.Equal(t, true, fields["linkedin_consent"])
	assert.Equal(t, "94103", fields["zip_code"])
	assert.NotContains(t, fields, "market")
}

func TestResetClearsEverything(t *testing.T) {
	synth := &scriptedSynthesizer{batches: [][]string{{"analytics"}}}
	m := NewMachine(synth, zaptest.NewLogger(t))
	ctx := context.Background()

	m.StoreAnswer(ctx, StepProduct, "B2B analytics tool")
	m.StoreAnswer(ctx, StepLinkedIn, "yes")
	m.StoreAnswer(ctx, StepLocation, "94103")

	m.Reset()
	assert.Empty(t, m.BuildContext().Fields())
	assert.Empty(t, m.Answers())
	assert.Equal(t, DefaultKeywords, m.CleanKeywords())

	m.Reset()
	assert.True(t, m.BuildContext().IsEmpty())
}

func TestKeywordSynthesisTriggers(t *testing.T) {
	synth := &scriptedSynthesizer{}
	m := NewMachine(synth, zaptest.NewLogger(t))
	ctx := context.Background()

	m.StoreAnswer(ctx, StepProduct, "p")
	m.StoreAnswer(ctx, StepMarket, "m")
	m.StoreAnswer(ctx, StepDifferentiation, "d")
	m.StoreAnswer(ctx, StepCompanySize, "s")
	m.StoreAnswer(ctx, StepLinkedIn, "yes")
	m.StoreAnswer(ctx, StepLocation, "94103")

	require.Len(t, synth.contexts, 4, "linkedin and location must not trigger synthesis")
	last := synth.contexts[3]
	assert.Equal(t, "p", last.Product)
	assert.Equal(t, "d", last.Differentiation)
	assert.Equal(t, "s", last.CompanySize)
}

func TestKeywordUnionIsMonotonic(t *testing.T) {
	synth := &scriptedSynthesizer{batches: [][]string{
		{"analytics", "B2B"},
		{"retail", "Analytics", "point of sale"},
		{},
		{"mid-market"},
	}}
	m := NewMachine(synth, zaptest.NewLogger(t))
	ctx := context.Background()

	sizes := []int{}
	for _, step := range []Step{StepProduct, StepMarket, StepDifferentiation, StepCompanySize} {
		m.StoreAnswer(ctx, step, "answer")
		sizes = append(sizes, len(m.CleanKeywords()))
	}

	for i := 1; i < len(sizes); i++ {
		assert.GreaterOrEqual(t, sizes[i], sizes[i-1])
	}
	assert.Equal(t, []string{"B2B", "analytics", "mid-market", "point of sale", "retail"}, m.CleanKeywords())
}

func TestKeywordFailureDoesNotAbortStorage(t *testing.T) {
	synth := &scriptedSynthesizer{err: errors.New("gateway timeout")}
	m := NewMachine(synth, zaptest.NewLogger(t))

	assert.True(t, m.StoreAnswer(context.Background(), StepProduct, "CRM"))
	assert.Equal(t, "CRM", m.Product())
	assert.Equal(t, DefaultKeywords, m.CleanKeywords())
}

func TestCleanKeywords(t *testing.T) {
	cleaned := CleanKeywords([]string{" retail ", "analytics", "retail", "", "  ", "B2B"})
	assert.Equal(t, []string{"B2B", "analytics", "retail"}, cleaned)
	assert.Equal(t, cleaned, CleanKeywords(cleaned), "must be idempotent")

	assert.Equal(t, DefaultKeywords, CleanKeywords(nil))
	assert.Equal(t, DefaultKeywords, CleanKeywords(DefaultKeywords))
}
