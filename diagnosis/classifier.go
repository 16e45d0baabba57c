// Package diagnosis maps a stored plant image to a disease profile.
package diagnosis

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/krishkalaria12/cropcare/models"
)

const HealthyName = "Healthy Plant"

type Profile struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Symptoms   string  `json:"symptoms"`
	Treatment  string  `json:"treatment"`
}

// Classifier is the seam for a real inference backend.
type Classifier interface {
	Classify(ctx context.Context, image models.PlantImage) (Profile, error)
}

var mockProfiles = []Profile{
	{
		Name:       HealthyName,
		Confidence: 95,
		Symptoms:   "No visible signs of disease. Plant appears healthy with vibrant green coloration.",
		Treatment:  "Continue regular watering and fertilization. Monitor for any changes in appearance.",
	},
	{
		Name:       "Late Blight",
		Confidence: 87,
		Symptoms:   "Dark brown or black lesions on leaves, white moldy growth on undersides of leaves in humid conditions.",
		Treatment:  "Remove affected leaves immediately. Apply copper-based fungicide. Improve air circulation and avoid overhead watering.",
	},
	{
		Name:       "Powdery Mildew",
		Confidence: 92,
		Symptoms:   "White, powdery coating on leaves and stems. Leaves may yellow and drop prematurely.",
		Treatment:  "Spray with baking soda solution (1 tsp per quart water). Apply neem oil. Ensure good air circulation.",
	},
	{
		Name:       "Bacterial Spot",
		Confidence: 78,
		Symptoms:   "Small, dark spots on leaves with yellow halos. Spots may have a greasy appearance.",
		Treatment:  "Remove infected plant parts. Apply copper-based bactericide. Avoid overhead watering and ensure good drainage.",
	},
	{
		Name:       "Rust",
		Confidence: 65.8,
		Symptoms:   "Orange/brown spots on leaf undersides.",
		Treatment:  "Remove infected leaves, apply copper fungicide.",
	},
}

// Profiles returns a copy of the fixed profile table.
func Profiles() []Profile {
	out := make([]Profile, len(mockProfiles))
	copy(out, mockProfiles)
	return out
}

func IsKnownProfile(name string) bool {
	for _, p := range mockProfiles {
		if p.Name == name {
			return true
		}
	}
	return false
}

// MockClassifier ignores the image and picks a profile uniformly at random.
type MockClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockClassifier(src rand.Source) *MockClassifier {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &MockClassifier{rng: rand.New(src)}
}

func (m *MockClassifier) Classify(ctx context.Context, image models.PlantImage) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	m.mu.Lock()
	i := m.rng.IntN(len(mockProfiles))
	m.mu.Unlock()
	return mockProfiles[i], nil
}
