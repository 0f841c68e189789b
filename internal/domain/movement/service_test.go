package movement

import (
	"context"
	"testing"
	"time"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/appctx"
	"stocktrail/internal/core/id"
	"stocktrail/internal/core/token"
	"stocktrail/internal/domain/events"
	"stocktrail/internal/domain/ledger"
	"stocktrail/internal/domain/location"
	"stocktrail/internal/domain/product"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeProducts struct {
	rows map[id.ID]*product.Product
}

func newFakeProducts(products ...*product.Product) *fakeProducts {
	r := &fakeProducts{rows: make(map[id.ID]*product.Product)}
	for _, p := range products {
		c := *p
		r.rows[p.ID] = &c
	}
	return r
}

func (r *fakeProducts) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.rows[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	c := *p
	return &c, nil
}

func (r *fakeProducts) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *fakeProducts) Create(_ context.Context, p *product.Product) error {
	c := *p
	r.rows[p.ID] = &c
	return nil
}

func (r *fakeProducts) Update(_ context.Context, p *product.Product) error {
	if _, ok := r.rows[p.ID]; !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	p.Version++
	c := *p
	r.rows[p.ID] = &c
	return nil
}

func (r *fakeProducts) SumStockAtLocation(_ context.Context, locationID id.ID, _ product.StockGroup) (int, error) {
	total := 0
	for _, p := range r.rows {
		if !id.PtrIsNil(p.LocationID) && *p.LocationID == locationID {
			total += p.AvailableStock()
		}
	}
	return total, nil
}

func (r *fakeProducts) ListByLocation(_ context.Context, locationID id.ID) ([]product.Product, error) {
	var out []product.Product
	for _, p := range r.rows {
		if !id.PtrIsNil(p.LocationID) && *p.LocationID == locationID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeMovements struct {
	rows map[id.ID]*MovementLog
}

func newFakeMovements() *fakeMovements {
	return &fakeMovements{rows: make(map[id.ID]*MovementLog)}
}

func (r *fakeMovements) Create(_ context.Context, m *MovementLog) error {
	c := *m
	r.rows[m.ID] = &c
	return nil
}

func (r *fakeMovements) Update(_ context.Context, m *MovementLog) error {
	if _, ok := r.rows[m.ID]; !ok {
		return apperror.NewNotFound("movement", m.ID.String())
	}
	c := *m
	r.rows[m.ID] = &c
	return nil
}

func (r *fakeMovements) GetByID(_ context.Context, logID id.ID) (*MovementLog, error) {
	m, ok := r.rows[logID]
	if !ok {
		return nil, apperror.NewNotFound("movement", logID.String())
	}
	c := *m
	return &c, nil
}

func (r *fakeMovements) GetByToken(_ context.Context, tok string) (*MovementLog, error) {
	for _, m := range r.rows {
		if m.PublicToken != nil && *m.PublicToken == tok {
			c := *m
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("movement", tok)
}

func (r *fakeMovements) GetByTokenForUpdate(ctx context.Context, tok string) (*MovementLog, error) {
	return r.GetByToken(ctx, tok)
}

func (r *fakeMovements) List(_ context.Context, filter ListFilter) ([]MovementLog, error) {
	var out []MovementLog
	for _, m := range r.rows {
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMovements) ListExpiredPending(_ context.Context, now time.Time) ([]MovementLog, error) {
	var out []MovementLog
	for _, m := range r.rows {
		if m.Status == StatusPending && token.Expired(m.TokenExpiresAt, now) {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeLocations struct {
	rows map[id.ID]*location.Location
}

func newFakeLocations(locs ...*location.Location) *fakeLocations {
	r := &fakeLocations{rows: make(map[id.ID]*location.Location)}
	for _, l := range locs {
		c := *l
		r.rows[l.ID] = &c
	}
	return r
}

func (r *fakeLocations) InsertIfAbsent(_ context.Context, loc *location.Location) (bool, error) {
	for _, l := range r.rows {
		if l.Area == loc.Area && l.Name == loc.Name {
			return false, nil
		}
	}
	c := *loc
	r.rows[loc.ID] = &c
	return true, nil
}

func (r *fakeLocations) GetByAreaAndName(_ context.Context, area, name string) (*location.Location, error) {
	for _, l := range r.rows {
		if l.Area == area && l.Name == name {
			c := *l
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("location", area+"/"+name)
}

func (r *fakeLocations) GetByID(_ context.Context, locationID id.ID) (*location.Location, error) {
	l, ok := r.rows[locationID]
	if !ok {
		return nil, apperror.NewNotFound("location", locationID.String())
	}
	c := *l
	return &c, nil
}

func (r *fakeLocations) List(_ context.Context) ([]location.Location, error) {
	var out []location.Location
	for _, l := range r.rows {
		out = append(out, *l)
	}
	return out, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type noopCache struct{}

func (noopCache) Invalidate(context.Context, ...string) {}

type fixture struct {
	svc       *Service
	products  *fakeProducts
	movements *fakeMovements
	locations *fakeLocations
	publisher *recordingPublisher
}

func newFixture(products *fakeProducts, locations *fakeLocations) *fixture {
	movements := newFakeMovements()
	publisher := &recordingPublisher{}
	svc := NewService(
		movements,
		products,
		locations,
		location.NewResolver(locations),
		ledger.NewService(products),
		passthroughTx{},
		publisher,
		noopCache{},
	)
	return &fixture{svc: svc, products: products, movements: movements, locations: locations, publisher: publisher}
}

func userCtx(email string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: id.New().String(), Email: email})
}

func testProduct(stock int, locationID id.ID) *product.Product {
	p := product.NewProduct("widget", product.StatusStored)
	p.StockLevel = &stock
	p.LocationID = &locationID
	return p
}

func TestCreate_Immediate(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p := testProduct(10, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from, to))
	ctx := userCtx("mover@example.com")

	log, err := f.svc.Create(ctx, CreateInput{
		ProductID:    p.ID,
		ToLocationID: &to.ID,
		Quantity:     4,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if log.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", log.Status, StatusCompleted)
	}
	if log.PublicToken != nil {
		t.Error("immediate movement must not carry a token")
	}
	if log.FromStockLevel != 10 {
		t.Errorf("from stock level = %d, want 10", log.FromStockLevel)
	}
	if log.ToStockLevel == nil || *log.ToStockLevel != 4 {
		t.Errorf("to stock level = %v, want 4", log.ToStockLevel)
	}
	if log.MovedBy != "mover@example.com" {
		t.Errorf("moved by = %q, want caller identity", log.MovedBy)
	}
	if log.FromArea == nil || *log.FromArea != "A" {
		t.Errorf("from area = %v, want A", log.FromArea)
	}
	if log.ToArea == nil || *log.ToArea != "B" {
		t.Errorf("to area = %v, want B", log.ToArea)
	}

	if got := f.products.rows[p.ID].AvailableStock(); got != 6 {
		t.Errorf("source stock = %d, want 6", got)
	}

	types := f.publisher.types()
	if len(types) != 2 || types[0] != events.TypeProductMoved || types[1] != events.TypeStockChanged {
		t.Errorf("published events = %v", types)
	}
}

func TestCreate_Deferred(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p := testProduct(10, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from, to))

	log, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID:            p.ID,
		ToLocationID:         &to.ID,
		Quantity:             4,
		RequiresConfirmation: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if log.Status != StatusPending {
		t.Errorf("status = %s, want %s", log.Status, StatusPending)
	}
	if log.PublicToken == nil || !token.Valid(*log.PublicToken) {
		t.Fatalf("deferred movement must carry a valid token, got %v", log.PublicToken)
	}
	if log.TokenExpiresAt == nil {
		t.Fatal("deferred movement must carry an expiry")
	}
	ttl := time.Until(*log.TokenExpiresAt)
	if ttl < ConfirmationTTL-time.Minute || ttl > ConfirmationTTL {
		t.Errorf("token ttl = %s, want about %s", ttl, ConfirmationTTL)
	}

	// Stock stays put until confirmation.
	if got := f.products.rows[p.ID].AvailableStock(); got != 10 {
		t.Errorf("source stock = %d, want 10", got)
	}
	if len(f.publisher.events) != 0 {
		t.Errorf("deferred creation must not publish events, got %v", f.publisher.types())
	}
}

func TestCreate_AreaResolvesToGeneral(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	p := testProduct(5, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from))

	log, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID: p.ID,
		ToArea:    "Annex",
		Quantity:  5,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if id.PtrIsNil(log.ToLocationID) {
		t.Fatal("destination location was not resolved")
	}
	loc, err := f.locations.GetByID(context.Background(), *log.ToLocationID)
	if err != nil {
		t.Fatalf("resolved location not found: %v", err)
	}
	if loc.Area != "Annex" || loc.Name != location.GeneralName {
		t.Errorf("resolved to %s/%s, want Annex/%s", loc.Area, loc.Name, location.GeneralName)
	}
}

func TestCreate_SameLocationRejected(t *testing.T) {
	loc := location.NewLocation("A", "Shelf 1", "A-S1")
	p := testProduct(5, loc.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(loc))

	_, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID:    p.ID,
		ToLocationID: &loc.ID,
		Quantity:     2,
	})
	if !apperror.IsCode(err, apperror.CodeInvalidDestination) {
		t.Fatalf("error = %v, want code %s", err, apperror.CodeInvalidDestination)
	}
}

func TestCreate_InsufficientStock(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p := testProduct(3, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from, to))

	_, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID:    p.ID,
		ToLocationID: &to.ID,
		Quantity:     4,
	})
	if !apperror.IsCode(err, apperror.CodeInsufficientStock) {
		t.Fatalf("error = %v, want code %s", err, apperror.CodeInsufficientStock)
	}
	if len(f.movements.rows) != 0 {
		t.Error("failed movement must not leave a log behind")
	}
}

func TestConfirmByToken(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p := testProduct(10, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from, to))

	created, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID:            p.ID,
		ToLocationID:         &to.ID,
		Quantity:             4,
		RequiresConfirmation: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	log, err := f.svc.ConfirmByToken(context.Background(), *created.PublicToken, "receiver@example.com", "looks good")
	if err != nil {
		t.Fatalf("ConfirmByToken failed: %v", err)
	}

	if log.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", log.Status, StatusCompleted)
	}
	if log.ConfirmedBy == nil || *log.ConfirmedBy != "receiver@example.com" {
		t.Errorf("confirmed by = %v", log.ConfirmedBy)
	}
	if log.ToStockLevel == nil || *log.ToStockLevel != 4 {
		t.Errorf("to stock level = %v, want 4", log.ToStockLevel)
	}
	if got := f.products.rows[p.ID].AvailableStock(); got != 6 {
		t.Errorf("source stock = %d, want 6 after confirmation", got)
	}
}

func TestConfirmByToken_AlreadyConfirmed(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p := testProduct(10, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from, to))

	created, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID:            p.ID,
		ToLocationID:         &to.ID,
		Quantity:             4,
		RequiresConfirmation: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.ConfirmByToken(context.Background(), *created.PublicToken, "a@example.com", ""); err != nil {
		t.Fatalf("first confirmation failed: %v", err)
	}

	_, err = f.svc.ConfirmByToken(context.Background(), *created.PublicToken, "b@example.com", "")
	if !apperror.IsCode(err, apperror.CodeAlreadyConfirmed) {
		t.Fatalf("error = %v, want code %s", err, apperror.CodeAlreadyConfirmed)
	}
	// The second attempt must not move stock again.
	if got := f.products.rows[p.ID].AvailableStock(); got != 6 {
		t.Errorf("source stock = %d, want 6", got)
	}
}

func TestConfirmByToken_ExpiredFlipPersists(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p := testProduct(10, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from, to))

	created, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID:            p.ID,
		ToLocationID:         &to.ID,
		Quantity:             4,
		RequiresConfirmation: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	lapsed := time.Now().UTC().Add(-time.Hour)
	stored := f.movements.rows[created.ID]
	stored.TokenExpiresAt = &lapsed

	_, err = f.svc.ConfirmByToken(context.Background(), *created.PublicToken, "late@example.com", "")
	if !apperror.IsCode(err, apperror.CodeExpired) {
		t.Fatalf("error = %v, want code %s", err, apperror.CodeExpired)
	}

	// The rejection itself must be durable.
	if got := f.movements.rows[created.ID].Status; got != StatusExpired {
		t.Errorf("stored status = %s, want %s", got, StatusExpired)
	}
	if got := f.products.rows[p.ID].AvailableStock(); got != 10 {
		t.Errorf("source stock = %d, want 10 (never reserved)", got)
	}
}

func TestConfirmByToken_MalformedToken(t *testing.T) {
	f := newFixture(newFakeProducts(), newFakeLocations())

	_, err := f.svc.ConfirmByToken(context.Background(), "not-a-token", "x@example.com", "")
	if !apperror.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestCancel(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p := testProduct(10, from.ID)

	f := newFixture(newFakeProducts(p), newFakeLocations(from, to))

	created, err := f.svc.Create(userCtx("mover@example.com"), CreateInput{
		ProductID:            p.ID,
		ToLocationID:         &to.ID,
		Quantity:             4,
		RequiresConfirmation: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := f.svc.Cancel(context.Background(), created.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got := f.movements.rows[created.ID].Status; got != StatusCancelled {
		t.Errorf("status = %s, want %s", got, StatusCancelled)
	}

	// Only pending movements can be cancelled.
	err = f.svc.Cancel(context.Background(), created.ID)
	if !apperror.IsCode(err, apperror.CodeInvalidStateTransition) {
		t.Fatalf("error = %v, want code %s", err, apperror.CodeInvalidStateTransition)
	}
}

func TestExpireStale(t *testing.T) {
	from := location.NewLocation("A", "Shelf 1", "A-S1")
	to := location.NewLocation("B", "Shelf 2", "B-S2")
	p1 := testProduct(10, from.ID)
	p2 := testProduct(10, from.ID)

	f := newFixture(newFakeProducts(p1, p2), newFakeLocations(from, to))
	ctx := userCtx("mover@example.com")

	stale, err := f.svc.Create(ctx, CreateInput{ProductID: p1.ID, ToLocationID: &to.ID, Quantity: 2, RequiresConfirmation: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fresh, err := f.svc.Create(ctx, CreateInput{ProductID: p2.ID, ToLocationID: &to.ID, Quantity: 2, RequiresConfirmation: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	lapsed := time.Now().UTC().Add(-time.Hour)
	f.movements.rows[stale.ID].TokenExpiresAt = &lapsed

	count, err := f.svc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("ExpireStale failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expired count = %d, want 1", count)
	}
	if got := f.movements.rows[stale.ID].Status; got != StatusExpired {
		t.Errorf("stale status = %s, want %s", got, StatusExpired)
	}
	if got := f.movements.rows[fresh.ID].Status; got != StatusPending {
		t.Errorf("fresh status = %s, want %s", got, StatusPending)
	}
}
