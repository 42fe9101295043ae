package orders

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/internal/cart"
	"github.com/angelmondragon/marketplace-checkout/internal/checkout"
	"github.com/angelmondragon/marketplace-checkout/internal/loyalty"
	"github.com/angelmondragon/marketplace-checkout/pkg/db"
	"github.com/angelmondragon/marketplace-checkout/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/outbox"
)

var confirmNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type memorySessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]checkout.Session
	deleted  int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[uuid.UUID]checkout.Session{}}
}

func (m *memorySessions) Save(_ context.Context, s *checkout.Session, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memorySessions) Get(_ context.Context, id uuid.UUID) (*checkout.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessions) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted++
	return nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	retries  int
	created  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{outcomes: map[string]int{}}
}

func (f *fakeRecorder) ObserveConfirmation(outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[outcome]++
}

func (f *fakeRecorder) IncRetry() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
}

func (f *fakeRecorder) AddOrdersCreated(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created += n
}

type fixture struct {
	conn       *gorm.DB
	client     *db.Client
	repo       Repository
	sessions   *memorySessions
	loyalty    *loyalty.Repository
	outboxRepo *outbox.Repository
	recorder   *fakeRecorder
	logg       *logger.Logger
	clock      time.Time
	m          *Materializer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{
		conn:       conn,
		client:     db.NewFromConn(conn),
		repo:       NewRepository(conn),
		sessions:   newMemorySessions(),
		loyalty:    loyalty.NewRepository(conn),
		outboxRepo: outbox.NewRepository(conn),
		recorder:   newFakeRecorder(),
		logg:       logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}),
		clock:      confirmNow,
	}
	f.m = f.newMaterializer(t, f.repo, f.client, 3)
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) newMaterializer(t *testing.T, repo Repository, tx txRunner, attempts int) *Materializer {
	t.Helper()
	m, err := NewMaterializer(MaterializerParams{
		Repository: repo,
		Tx:         tx,
		Sessions:   f.sessions,
		Loyalty:    loyalty.NewTxLedger(f.loyalty),
		Outbox:     outbox.NewService(f.outboxRepo, f.logg),
		Metrics:    f.recorder,
		Logger:     f.logg,
		Options: MaterializerOptions{
			MaxAttempts:  attempts,
			Backoff:      time.Millisecond,
			DeliveryLead: 30 * time.Minute,
			Now:          f.now,
		},
	})
	require.NoError(t, err)
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m
}

// seedSession stores a two-vendor pickup session: A totals 1000 and B 2500,
// with 200 loyalty points split 57/143.
func (f *fixture) seedSession(t *testing.T, customerID uuid.UUID) *checkout.Session {
	t.Helper()
	vendorA, vendorB := uuid.New(), uuid.New()
	code := "SAVE5"
	session := &checkout.Session{
		ID:                uuid.New(),
		CustomerID:        customerID,
		Currency:          enums.CurrencyUSD,
		DeliveryMode:      enums.DeliveryModePickup,
		PromoCode:         &code,
		LoyaltyPointsUsed: 200,
		Drafts: []checkout.DraftOrder{
			{
				Position:   0,
				VendorID:   vendorA,
				VendorName: "Tacos",
				Lines: []cart.Line{
					{ProductID: uuid.New(), VendorID: vendorA, ProductName: "al pastor", UnitPriceCents: 400, Quantity: 2},
					{ProductID: uuid.New(), VendorID: vendorA, ProductName: "horchata", UnitPriceCents: 400, Quantity: 1},
				},
				Status:               enums.OrderStatusPending,
				SubtotalCents:        1200,
				PromoDiscountCents:   143,
				LoyaltyDiscountCents: 57,
				DiscountCents:        200,
				TotalCents:           1000,
				EstimatedPrepMinutes: 15,
			},
			{
				Position:             1,
				VendorID:             vendorB,
				VendorName:           "Ramen",
				Lines:                []cart.Line{{ProductID: uuid.New(), VendorID: vendorB, ProductName: "tonkotsu", UnitPriceCents: 3000, Quantity: 1}},
				Status:               enums.OrderStatusPending,
				SubtotalCents:        3000,
				PromoDiscountCents:   357,
				LoyaltyDiscountCents: 143,
				DiscountCents:        500,
				TotalCents:           2500,
				EstimatedPrepMinutes: 25,
			},
		},
		AggregateTotalCents: 3500,
		CreatedAt:           f.clock.Add(-5 * time.Minute),
		ExpiresAt:           f.clock.Add(25 * time.Minute),
	}
	require.NoError(t, f.sessions.Save(context.Background(), session, time.Hour))
	return session
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) balance(t *testing.T, customerID uuid.UUID) int {
	t.Helper()
	b, err := f.loyalty.Balance(context.Background(), customerID)
	require.NoError(t, err)
	return b
}

func orderIDs(out *SessionOrders) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(out.Orders))
	for _, o := range out.Orders {
		ids = append(ids, o.ID)
	}
	return ids
}
