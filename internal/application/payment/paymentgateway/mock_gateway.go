package paymentgateway

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const mockOrderPrefix = "order_mock_"

// MockGateway never touches the network. Orders live in memory, ids are
// synthetic, and payment signatures always verify. Webhook signatures are
// checked only when a secret is configured.
type MockGateway struct {
	webhookSecret string

	mu     sync.RWMutex
	orders map[string]*Order
	calls  int
}

func NewMockGateway(webhookSecret string) *MockGateway {
	return &MockGateway{
		webhookSecret: webhookSecret,
		orders:        make(map[string]*Order),
	}
}

var _ PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string  { return "mock" }
func (m *MockGateway) KeyID() string { return "rzp_test_mock" }
func (m *MockGateway) IsMock() bool  { return true }

func (m *MockGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	notes := make(map[string]string, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	order := &Order{
		ID:       mockOrderPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    notes,
	}

	m.mu.Lock()
	m.orders[order.ID] = order
	m.calls++
	m.mu.Unlock()

	copied := *order
	return &copied, nil
}

func (m *MockGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *MockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return true
}

func (m *MockGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if m.webhookSecret == "" {
		return true
	}
	return VerifySignature(m.webhookSecret, rawBody, signature)
}

// PutOrder stores or replaces an order as the provider would report it.
func (m *MockGateway) PutOrder(order Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = &order
}

// CreateOrderCalls reports how many orders were created. Used by tests.
func (m *MockGateway) CreateOrderCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}
