package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdraft-ai-api/internal/domain/entity"
	"regdraft-ai-api/internal/domain/service"
	"regdraft-ai-api/internal/workflow/prompt"
)

func TestSummaryGenerator_Generate(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, service.GenerateRequest) (string, error) {
		return "# CardioPatch summary", nil
	}}
	sess := newTestSession()
	g := NewSummaryGenerator(gen, prompt.NewRegistry())

	res, err := g.Generate(context.Background(), sess, SummaryRequest{
		DeviceName:        "CardioPatch",
		DeviceDescription: "Wearable ECG patch",
		Model:             "gemini-3-pro-preview",
	})
	require.NoError(t, err)

	assert.Equal(t, PhaseCompleted, res.Status)
	assert.Equal(t, "# CardioPatch summary", res.Summary.Document)
	assert.Equal(t, "gemini-3-pro-preview", res.Summary.Model)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "You are a senior FDA Regulatory Affairs expert.", calls[0].SystemInstruction)
	assert.Contains(t, calls[0].Prompt, "Device Name: CardioPatch")
	assert.InDelta(t, 0.4, calls[0].EffectiveTemperature(), 1e-9)
	assert.Equal(t, 8000, calls[0].MaxOutputTokens)
	assert.Equal(t, entity.ProviderGemini, calls[0].Provider)

	assert.Equal(t, 50, sess.Ledger().Mana)
	assert.Equal(t, 50, sess.Ledger().Experience)

	require.Len(t, res.Logs, 2)
	assert.Equal(t, "Generating comprehensive device summary...", res.Logs[0].Msg)
	assert.Equal(t, entity.LogSuccess, res.Logs[1].Type)
	assert.Equal(t, "Device summary generated successfully.", res.Logs[1].Msg)
}

func TestSummaryGenerator_GeneratePreconditions(t *testing.T) {
	tests := []struct {
		name    string
		debit   int
		req     SummaryRequest
		wantMsg string
	}{
		{"missing name", 0, SummaryRequest{DeviceDescription: "d"}, "Device name and description required."},
		{"blank description", 0, SummaryRequest{DeviceName: "n", DeviceDescription: "   "}, "Device name and description required."},
		{"not enough mana", 60, SummaryRequest{DeviceName: "n", DeviceDescription: "d"}, "Need 50 Mana for deep summary."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			sess := newTestSession()
			sess.Debit(tt.debit)

			res, err := NewSummaryGenerator(gen, prompt.NewRegistry()).Generate(context.Background(), sess, tt.req)
			require.NoError(t, err)

			assert.Empty(t, gen.Calls())
			assert.Equal(t, PhaseAborted, res.Status)
			require.Len(t, res.Logs, 1)
			assert.Equal(t, entity.LogError, res.Logs[0].Type)
			assert.Equal(t, tt.wantMsg, res.Logs[0].Msg)
			assert.Equal(t, 100-tt.debit, sess.Ledger().Mana)
		})
	}
}

func TestSummaryGenerator_GenerateFailure(t *testing.T) {
	gen := &fakeGenerator{respond: failAt(0, "deadline exceeded")}
	sess := newTestSession()

	res, err := NewSummaryGenerator(gen, prompt.NewRegistry()).Generate(context.Background(), sess, SummaryRequest{
		DeviceName: "n", DeviceDescription: "d",
	})
	require.NoError(t, err)

	assert.Equal(t, PhaseAborted, res.Status)
	assert.Equal(t, "Generation failed: deadline exceeded", res.Reason)
	assert.Equal(t, 100, sess.Ledger().Mana)
	assert.Empty(t, res.Summary.Document)
}

func TestSummaryGenerator_GenerateUnknownModel(t *testing.T) {
	_, err := NewSummaryGenerator(&fakeGenerator{}, prompt.NewRegistry()).Generate(context.Background(), newTestSession(), SummaryRequest{
		DeviceName: "n", DeviceDescription: "d", Model: "made-up",
	})
	assert.ErrorIs(t, err, ErrModelNotAllowed)
}

func TestSummaryGenerator_RefineReplacesDocument(t *testing.T) {
	gen := &fakeGenerator{respond: func(n int, req service.GenerateRequest) (string, error) {
		if n == 0 {
			return "D", nil
		}
		return "D-prime", nil
	}}
	sess := newTestSession()
	g := NewSummaryGenerator(gen, prompt.NewRegistry())

	_, err := g.Generate(context.Background(), sess, SummaryRequest{DeviceName: "n", DeviceDescription: "d", Model: "gemini-2.5-flash"})
	require.NoError(t, err)

	res, err := g.Refine(context.Background(), sess, "Tighten the risk section")
	require.NoError(t, err)

	assert.Equal(t, PhaseCompleted, res.Status)
	assert.Equal(t, "D-prime", res.Summary.Document)
	assert.Empty(t, res.Summary.Instruction)

	calls := gen.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "You are an expert editor.", calls[1].SystemInstruction)
	assert.Equal(t, "gemini-2.5-flash", calls[1].Model)
	assert.InDelta(t, 0.3, calls[1].EffectiveTemperature(), 1e-9)
	assert.Equal(t, "Current Document:\nD\n\nUser Instruction: Tighten the risk section\n\n"+
		"Please rewrite the document or specific sections to address the user instruction. Return the full updated markdown.",
		calls[1].Prompt)

	assert.Equal(t, 50, sess.Ledger().Mana, "refine is not gated or charged")
	require.Len(t, res.Logs, 2)
	assert.Equal(t, "Refining summary...", res.Logs[0].Msg)
	assert.Equal(t, "Summary refined.", res.Logs[1].Msg)
}

func TestSummaryGenerator_RefineFailureKeepsDocument(t *testing.T) {
	gen := &fakeGenerator{respond: failAt(1, "quota exceeded")}
	sess := newTestSession()
	g := NewSummaryGenerator(gen, prompt.NewRegistry())

	_, err := g.Generate(context.Background(), sess, SummaryRequest{DeviceName: "n", DeviceDescription: "d"})
	require.NoError(t, err)
	original := sess.Summary().Document

	res, err := g.Refine(context.Background(), sess, "Add tables")
	require.NoError(t, err)

	assert.Equal(t, PhaseAborted, res.Status)
	assert.Equal(t, "Refinement failed: quota exceeded", res.Reason)
	assert.Equal(t, original, res.Summary.Document)
	assert.Equal(t, "Add tables", res.Summary.Instruction)
}

func TestSummaryGenerator_RefineWithoutDocument(t *testing.T) {
	gen := &fakeGenerator{}
	sess := newTestSession()

	res, err := NewSummaryGenerator(gen, prompt.NewRegistry()).Refine(context.Background(), sess, "anything")
	require.NoError(t, err)

	assert.Equal(t, PhaseIdle, res.Status)
	assert.Empty(t, gen.Calls())
	assert.Empty(t, res.Logs)
}

func TestSession_SetSummaryDocument(t *testing.T) {
	sess := newTestSession()
	st := sess.SetSummaryDocument("hand edited")
	assert.Equal(t, "hand edited", st.Document)
	assert.Equal(t, entity.DefaultModel, st.Model)
}
