package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceState_Level(t *testing.T) {
	tests := []struct {
		experience int
		want       int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 3},
	}
	for _, tt := range tests {
		r := ResourceState{Experience: tt.experience}
		assert.Equal(t, tt.want, r.Level(), "experience=%d", tt.experience)
	}
}

func TestResourceState_DebitClamps(t *testing.T) {
	r := NewResourceState()

	assert.True(t, r.CanAfford(LightCost))
	r.Debit(HeavyCost)
	assert.Equal(t, 50, r.Mana)

	r.Debit(500)
	assert.Equal(t, 0, r.Mana)
	assert.False(t, r.CanAfford(LightCost))

	r.Debit(-30)
	assert.Equal(t, 0, r.Mana, "negative debits are ignored")
}

func TestResourceState_Experience(t *testing.T) {
	r := NewResourceState()
	r.CreditExperience(StepExperience)
	r.CreditExperience(SummaryExperience)
	r.CreditExperience(-10)
	assert.Equal(t, 60, r.Experience)
	assert.Equal(t, 1, r.Level())

	r.CreditExperience(40)
	assert.Equal(t, 2, r.Level())
}

func TestResourceState_HealthMirrorsStress(t *testing.T) {
	tests := []struct {
		stress int
		health int
	}{
		{0, 100},
		{35, 65},
		{100, 0},
	}
	for _, tt := range tests {
		r := ResourceState{Stress: tt.stress, Mana: 100}
		assert.Equal(t, tt.health, r.Health())
		assert.Equal(t, tt.health, r.View().Health)
	}
	assert.Equal(t, ResourceView{Stress: 0, Health: 100, Mana: 100, Experience: 0, Level: 1}, NewResourceState().View())
}
