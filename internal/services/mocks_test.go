package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
	mu     sync.Mutex
	events []models.Event
}

func (m *MockPublisher) Publish(ctx context.Context, ev models.Event) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockPublisher) Published() []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Event(nil), m.events...)
}

func (m *MockPublisher) OfType(t models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range m.Published() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newMockPublisher() *MockPublisher {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	return pub
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestStore() *store.MemoryStore {
	return store.NewMemoryStore(store.Options{TxTimeout: time.Second, LockWait: 200 * time.Millisecond})
}

// fundedAccount creates id and credits it with balance.
func fundedAccount(t *testing.T, st store.AccountStore, id, balance string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateAccount(ctx, &models.Account{ID: id, Username: id, ReferralCode: "REF" + id}))
	if b := dec(balance); b.IsPositive() {
		require.NoError(t, st.Update(ctx, id, func(tx store.Tx) error {
			_, err := tx.Adjust(b)
			return err
		}))
	}
}
