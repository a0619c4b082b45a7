package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderForModel(t *testing.T) {
	tests := []struct {
		model string
		want  Provider
		ok    bool
	}{
		{"gemini-3-flash-preview", ProviderGemini, true},
		{"gpt-4o-mini", ProviderOpenAI, true},
		{"claude-3-5-sonnet-20241022", ProviderAnthropic, true},
		{"grok-beta", ProviderXAI, true},
		{"llama3", "", false},
	}
	for _, tt := range tests {
		got, ok := ProviderForModel(tt.model)
		assert.Equal(t, tt.ok, ok, tt.model)
		assert.Equal(t, tt.want, got, tt.model)
	}
}

func TestAgentStep_WithModel(t *testing.T) {
	step := DefaultAgents()[0]

	updated, err := step.WithModel("gemini-2.5-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", updated.Model)
	assert.Equal(t, DefaultModel, step.Model, "receiver is unchanged")

	_, err = step.WithModel("gpt-4o")
	assert.Error(t, err)
}

func TestModelCatalog_IsACopy(t *testing.T) {
	catalog := ModelCatalog()
	catalog[ProviderGemini][0] = "tampered"
	assert.NotEqual(t, "tampered", ProviderGemini.Models()[0])
	assert.False(t, Provider("mistral").IsValid())
}

func TestDefaultAgents(t *testing.T) {
	agents := DefaultAgents()
	require.Len(t, agents, 3)
	for _, a := range agents {
		assert.Equal(t, ProviderGemini, a.Provider)
		assert.True(t, a.Provider.Allows(a.Model))
		assert.Greater(t, a.MaxTokens, 0)
	}
}

func TestPreferences_Apply(t *testing.T) {
	dark := "dark"
	flower := "aurora_lily"
	p, err := DefaultPreferences().Apply(PreferencesPatch{ThemeMode: &dark, FlowerID: &flower})
	require.NoError(t, err)
	assert.Equal(t, Preferences{Language: "en", ThemeMode: "dark", FlowerID: "aurora_lily"}, p)

	unknown := "tulip"
	_, err = p.Apply(PreferencesPatch{FlowerID: &unknown})
	assert.Error(t, err)
}
