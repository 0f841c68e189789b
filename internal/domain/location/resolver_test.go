package location

import (
	"context"
	"fmt"
	"testing"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
)

type fakeLocationRepo struct {
	byKey      map[string]*Location
	byID       map[id.ID]*Location
	takenCodes map[string]bool
	inserts    int
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{
		byKey:      make(map[string]*Location),
		byID:       make(map[id.ID]*Location),
		takenCodes: make(map[string]bool),
	}
}

func key(area, name string) string { return area + "|" + name }

func (r *fakeLocationRepo) InsertIfAbsent(_ context.Context, loc *Location) (bool, error) {
	r.inserts++
	if _, exists := r.byKey[key(loc.Area, loc.Name)]; exists {
		return false, nil
	}
	if r.takenCodes[loc.Code] {
		return false, ErrCodeTaken
	}
	c := *loc
	r.byKey[key(loc.Area, loc.Name)] = &c
	r.byID[loc.ID] = &c
	r.takenCodes[loc.Code] = true
	return true, nil
}

func (r *fakeLocationRepo) GetByAreaAndName(_ context.Context, area, name string) (*Location, error) {
	loc, ok := r.byKey[key(area, name)]
	if !ok {
		return nil, apperror.NewNotFound("location", key(area, name))
	}
	c := *loc
	return &c, nil
}

func (r *fakeLocationRepo) GetByID(_ context.Context, locationID id.ID) (*Location, error) {
	loc, ok := r.byID[locationID]
	if !ok {
		return nil, apperror.NewNotFound("location", locationID.String())
	}
	c := *loc
	return &c, nil
}

func (r *fakeLocationRepo) List(_ context.Context) ([]Location, error) {
	var out []Location
	for _, loc := range r.byKey {
		out = append(out, *loc)
	}
	return out, nil
}

func TestResolveOrCreateGeneral_CreatesOnFirstUse(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLocationRepo()
	r := NewResolver(repo)

	locID, err := r.ResolveOrCreateGeneral(ctx, "Main Warehouse")
	if err != nil {
		t.Fatalf("ResolveOrCreateGeneral failed: %v", err)
	}

	loc, err := repo.GetByID(ctx, locID)
	if err != nil {
		t.Fatalf("created location not found: %v", err)
	}
	if loc.Area != "Main Warehouse" {
		t.Errorf("area = %q, want %q", loc.Area, "Main Warehouse")
	}
	if loc.Name != GeneralName {
		t.Errorf("name = %q, want %q", loc.Name, GeneralName)
	}
	if loc.Code != "MAINWAREHOUSE-GENERAL" {
		t.Errorf("code = %q, want %q", loc.Code, "MAINWAREHOUSE-GENERAL")
	}
	if !loc.IsGeneral() {
		t.Error("resolved location must be the area's General location")
	}
}

func TestResolveOrCreateGeneral_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLocationRepo()
	r := NewResolver(repo)

	first, err := r.ResolveOrCreateGeneral(ctx, "Depot")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	second, err := r.ResolveOrCreateGeneral(ctx, "Depot")
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if first != second {
		t.Errorf("resolve is not idempotent: %s != %s", first, second)
	}
	if len(repo.byKey) != 1 {
		t.Errorf("location count = %d, want 1", len(repo.byKey))
	}
}

func TestResolveOrCreateGeneral_CodeCollisionRetries(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLocationRepo()
	// An unrelated location already owns the derived code and its first
	// suffixed variant.
	repo.takenCodes["DEPOT-GENERAL"] = true
	repo.takenCodes["DEPOT-GENERAL-1"] = true
	r := NewResolver(repo)

	locID, err := r.ResolveOrCreateGeneral(ctx, "Depot")
	if err != nil {
		t.Fatalf("ResolveOrCreateGeneral failed: %v", err)
	}
	loc, err := repo.GetByID(ctx, locID)
	if err != nil {
		t.Fatalf("created location not found: %v", err)
	}
	if loc.Code != "DEPOT-GENERAL-2" {
		t.Errorf("code = %q, want %q", loc.Code, "DEPOT-GENERAL-2")
	}
}

func TestResolveOrCreateGeneral_Exhaustion(t *testing.T) {
	ctx := context.Background()
	repo := newFakeLocationRepo()
	repo.takenCodes["DEPOT-GENERAL"] = true
	for i := 1; i < maxCodeAttempts; i++ {
		repo.takenCodes[fmt.Sprintf("DEPOT-GENERAL-%d", i)] = true
	}
	r := NewResolver(repo)

	_, err := r.ResolveOrCreateGeneral(ctx, "Depot")
	if !apperror.IsCode(err, apperror.CodeLocationResolutionFailed) {
		t.Fatalf("error = %v, want code %s", err, apperror.CodeLocationResolutionFailed)
	}
}

func TestResolveOrCreateGeneral_EmptyArea(t *testing.T) {
	r := NewResolver(newFakeLocationRepo())

	for _, area := range []string{"", "   "} {
		if _, err := r.ResolveOrCreateGeneral(context.Background(), area); !apperror.IsCode(err, apperror.CodeValidation) {
			t.Errorf("area %q: error = %v, want validation error", area, err)
		}
	}
}

func TestDeriveGeneralCode(t *testing.T) {
	tests := []struct {
		area string
		want string
	}{
		{"Main Warehouse", "MAINWAREHOUSE-GENERAL"},
		{"depot", "DEPOT-GENERAL"},
		{"  Site 42  ", "SITE42-GENERAL"},
		{"A-B/C", "ABC-GENERAL"},
		{"___", "AREA-GENERAL"},
	}

	for _, tt := range tests {
		if got := DeriveGeneralCode(tt.area); got != tt.want {
			t.Errorf("DeriveGeneralCode(%q) = %q, want %q", tt.area, got, tt.want)
		}
	}
}
