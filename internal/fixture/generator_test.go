package fixture

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/matchcheck/internal/domain/document"
)

func TestGenerate_NameIsID(t *testing.T) {
	g := NewGenerator(nil)
	id := g.NewID()

	doc, err := g.Generate(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != id.String() || doc.Name() != id.String() {
		t.Errorf("doc = %q/%q, want %q", doc.ID(), doc.Name(), id)
	}
	if doc.Fields()[document.FieldValue] != strconv.Itoa(doc.Value()) {
		t.Errorf("value field = %q, want %d", doc.Fields()[document.FieldValue], doc.Value())
	}
}

func TestGenerate_SeededValues(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	a := NewGenerator(rand.NewPCG(7, 7))
	b := NewGenerator(rand.NewPCG(7, 7))
	for range 5 {
		da, err := a.Generate(id)
		if err != nil {
			t.Fatal(err)
		}
		other, err := b.Generate(id)
		if err != nil {
			t.Fatal(err)
		}
		if da.Value() != other.Value() {
			t.Fatalf("same seed produced %d and %d", da.Value(), other.Value())
		}
		if da.Value() < 0 {
			t.Errorf("value %d should be non-negative", da.Value())
		}
	}
}

func TestNewID_Unique(t *testing.T) {
	g := NewGenerator(nil)
	seen := make(map[uuid.UUID]bool)
	for range 100 {
		id := g.NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
