package diagnosis

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/krishkalaria12/cropcare/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilesTable(t *testing.T) {
	profiles := Profiles()
	require.Len(t, profiles, 5)
	assert.Equal(t, HealthyName, profiles[0].Name)
	for _, p := range profiles {
		assert.True(t, IsKnownProfile(p.Name))
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 100.0)
		assert.NotEmpty(t, p.Symptoms)
		assert.NotEmpty(t, p.Treatment)
	}
	assert.False(t, IsKnownProfile("Root Rot"))

	profiles[0].Name = "mutated"
	assert.Equal(t, HealthyName, Profiles()[0].Name)
}

func TestMockClassifierCoversEveryProfile(t *testing.T) {
	c := NewMockClassifier(rand.NewPCG(1, 2))
	seen := map[string]int{}
	for i := 0; i < 1000; i++ {
		p, err := c.Classify(context.Background(), models.PlantImage{})
		require.NoError(t, err)
		seen[p.Name]++
	}
	assert.Len(t, seen, len(Profiles()))
	for name, n := range seen {
		assert.Greater(t, n, 100, name)
	}
}

func TestMockClassifierDeterministicWithSeed(t *testing.T) {
	a := NewMockClassifier(rand.NewPCG(7, 7))
	b := NewMockClassifier(rand.NewPCG(7, 7))
	for i := 0; i < 20; i++ {
		pa, _ := a.Classify(context.Background(), models.PlantImage{})
		pb, _ := b.Classify(context.Background(), models.PlantImage{})
		assert.Equal(t, pa, pb)
	}
}

func TestMockClassifierHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockClassifier(nil).Classify(ctx, models.PlantImage{})
	assert.ErrorIs(t, err, context.Canceled)
}
