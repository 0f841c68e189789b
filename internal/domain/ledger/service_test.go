package ledger

import (
	"context"
	"testing"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/product"
)

type fakeProductRepo struct {
	rows map[id.ID]*product.Product
}

func newFakeProductRepo(products ...*product.Product) *fakeProductRepo {
	r := &fakeProductRepo{rows: make(map[id.ID]*product.Product)}
	for _, p := range products {
		c := *p
		r.rows[p.ID] = &c
	}
	return r
}

func (r *fakeProductRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.rows[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	c := *p
	return &c, nil
}

func (r *fakeProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *fakeProductRepo) Create(_ context.Context, p *product.Product) error {
	c := *p
	r.rows[p.ID] = &c
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *product.Product) error {
	if _, ok := r.rows[p.ID]; !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	p.Version++
	c := *p
	r.rows[p.ID] = &c
	return nil
}

func (r *fakeProductRepo) SumStockAtLocation(_ context.Context, locationID id.ID, group product.StockGroup) (int, error) {
	total := 0
	for _, p := range r.rows {
		if id.PtrIsNil(p.LocationID) || *p.LocationID != locationID {
			continue
		}
		if sameGroup(product.GroupFor(p), group) {
			total += p.AvailableStock()
		}
	}
	return total, nil
}

func (r *fakeProductRepo) ListByLocation(_ context.Context, locationID id.ID) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.rows {
		if !id.PtrIsNil(p.LocationID) && *p.LocationID == locationID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func sameGroup(a, b product.StockGroup) bool {
	if a.SKU != nil || b.SKU != nil {
		return a.SKU != nil && b.SKU != nil && *a.SKU == *b.SKU
	}
	if a.Description != b.Description {
		return false
	}
	if id.PtrIsNil(a.KanbanID) != id.PtrIsNil(b.KanbanID) {
		return false
	}
	return id.PtrIsNil(a.KanbanID) || *a.KanbanID == *b.KanbanID
}

func (r *fakeProductRepo) totalStock() int {
	total := 0
	for _, p := range r.rows {
		total += p.AvailableStock()
	}
	return total
}

func storedProduct(stock int, locationID id.ID) *product.Product {
	p := product.NewProduct("widget", product.StatusStored)
	p.StockLevel = &stock
	p.LocationID = &locationID
	return p
}

func TestValidateMove(t *testing.T) {
	locID := id.New()
	personID := id.New()

	tests := []struct {
		name     string
		product  *product.Product
		quantity int
		dest     Destination
		wantCode string
	}{
		{
			name:     "ok",
			product:  storedProduct(10, id.New()),
			quantity: 5,
			dest:     Destination{LocationID: &locID},
		},
		{
			name:     "person only destination ok",
			product:  storedProduct(10, id.New()),
			quantity: 5,
			dest:     Destination{PersonID: &personID},
		},
		{
			name:     "empty destination",
			product:  storedProduct(10, id.New()),
			quantity: 5,
			dest:     Destination{},
			wantCode: apperror.CodeInvalidDestination,
		},
		{
			name:     "zero quantity",
			product:  storedProduct(10, id.New()),
			quantity: 0,
			dest:     Destination{LocationID: &locID},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "negative quantity",
			product:  storedProduct(10, id.New()),
			quantity: -3,
			dest:     Destination{LocationID: &locID},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "untracked product",
			product:  product.NewProduct("widget", product.StatusStored),
			quantity: 1,
			dest:     Destination{LocationID: &locID},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "insufficient stock",
			product:  storedProduct(3, id.New()),
			quantity: 4,
			dest:     Destination{LocationID: &locID},
			wantCode: apperror.CodeInsufficientStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMove(tt.product, tt.quantity, tt.dest)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateMove failed: %v", err)
				}
				return
			}
			if !apperror.IsCode(err, tt.wantCode) {
				t.Fatalf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestMoveStock_FullMoveRelocatesInPlace(t *testing.T) {
	ctx := context.Background()
	fromID, toID := id.New(), id.New()
	p := storedProduct(5, fromID)

	repo := newFakeProductRepo(p)
	svc := NewService(repo)

	res, err := svc.MoveStock(ctx, p, 5, Destination{LocationID: &toID})
	if err != nil {
		t.Fatalf("MoveStock failed: %v", err)
	}

	if res.Destination.ID != p.ID {
		t.Error("full move must relocate the same record, not split")
	}
	if len(repo.rows) != 1 {
		t.Errorf("row count = %d, want 1", len(repo.rows))
	}

	stored := repo.rows[p.ID]
	if id.PtrIsNil(stored.LocationID) || *stored.LocationID != toID {
		t.Errorf("location = %v, want %s", stored.LocationID, toID)
	}
	if stored.AvailableStock() != 5 {
		t.Errorf("stock = %d, want 5", stored.AvailableStock())
	}
	if res.DestinationTotal == nil || *res.DestinationTotal != 5 {
		t.Errorf("destination total = %v, want 5", res.DestinationTotal)
	}
}

func TestMoveStock_PartialMoveSplits(t *testing.T) {
	ctx := context.Background()
	fromID, toID := id.New(), id.New()
	p := storedProduct(10, fromID)
	sku := "SKU-1"
	p.SKU = &sku

	repo := newFakeProductRepo(p)
	svc := NewService(repo)

	res, err := svc.MoveStock(ctx, p, 3, Destination{LocationID: &toID})
	if err != nil {
		t.Fatalf("MoveStock failed: %v", err)
	}

	if res.Destination.ID == p.ID {
		t.Fatal("partial move must create a split record")
	}
	if len(repo.rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(repo.rows))
	}

	source := repo.rows[p.ID]
	if source.AvailableStock() != 7 {
		t.Errorf("source stock = %d, want 7", source.AvailableStock())
	}
	if id.PtrIsNil(source.LocationID) || *source.LocationID != fromID {
		t.Error("source must keep its location on a partial move")
	}

	child := repo.rows[res.Destination.ID]
	if child.AvailableStock() != 3 {
		t.Errorf("child stock = %d, want 3", child.AvailableStock())
	}
	if id.PtrIsNil(child.LocationID) || *child.LocationID != toID {
		t.Errorf("child location = %v, want %s", child.LocationID, toID)
	}
	if id.PtrIsNil(child.SourceProductID) || *child.SourceProductID != p.ID {
		t.Error("child must carry lineage to the source product")
	}
	if child.SKU == nil || *child.SKU != sku {
		t.Error("child must copy descriptive fields")
	}

	if repo.totalStock() != 10 {
		t.Errorf("total stock = %d, want 10 (conservation)", repo.totalStock())
	}
}

func TestMoveStock_DestinationTotalAggregatesGroup(t *testing.T) {
	ctx := context.Background()
	fromID, toID := id.New(), id.New()
	sku := "SKU-1"

	existing := storedProduct(4, toID)
	existing.SKU = &sku
	p := storedProduct(10, fromID)
	p.SKU = &sku
	unrelated := storedProduct(99, toID)

	repo := newFakeProductRepo(existing, p, unrelated)
	svc := NewService(repo)

	res, err := svc.MoveStock(ctx, p, 6, Destination{LocationID: &toID})
	if err != nil {
		t.Fatalf("MoveStock failed: %v", err)
	}
	if res.DestinationTotal == nil || *res.DestinationTotal != 10 {
		t.Errorf("destination total = %v, want 10 (4 existing + 6 moved)", res.DestinationTotal)
	}
}

func TestMoveStock_PersonDestinationSkipsTotal(t *testing.T) {
	ctx := context.Background()
	p := storedProduct(5, id.New())
	personID := id.New()

	repo := newFakeProductRepo(p)
	svc := NewService(repo)

	res, err := svc.MoveStock(ctx, p, 5, Destination{PersonID: &personID})
	if err != nil {
		t.Fatalf("MoveStock failed: %v", err)
	}
	if res.DestinationTotal != nil {
		t.Errorf("destination total = %v, want nil for person-only destination", res.DestinationTotal)
	}
	stored := repo.rows[p.ID]
	if id.PtrIsNil(stored.AssignedToPersonID) || *stored.AssignedToPersonID != personID {
		t.Error("product must be assigned to the person")
	}
}

func TestReceive(t *testing.T) {
	ctx := context.Background()
	locID := id.New()
	origin := storedProduct(0, id.New())

	repo := newFakeProductRepo(origin)
	svc := NewService(repo)

	dest, err := svc.Receive(ctx, origin, 7, locID)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	stored := repo.rows[dest.ID]
	if stored == nil {
		t.Fatal("destination row was not persisted")
	}
	if stored.AvailableStock() != 7 {
		t.Errorf("destination stock = %d, want 7", stored.AvailableStock())
	}
	if id.PtrIsNil(stored.SourceProductID) || *stored.SourceProductID != origin.ID {
		t.Error("destination must carry lineage to the origin")
	}

	if _, err := svc.Receive(ctx, origin, 0, locID); !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("Receive with zero quantity: error = %v, want validation error", err)
	}
}
