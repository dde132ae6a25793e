package fixture

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/kailas-cloud/matchcheck/internal/domain/document"
)

// Generator produces synthetic documents. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator drawing values from src.
// A nil src seeds a fresh PCG source.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{rng: rand.New(src)}
}

// NewID returns a random identifier.
func (g *Generator) NewID() uuid.UUID {
	return uuid.New()
}

// Generate builds the document for id. Name is id's canonical string form,
// Value is drawn independently.
func (g *Generator) Generate(id uuid.UUID) (document.Document, error) {
	return document.New(id.String(), int(g.rng.Int32()))
}
