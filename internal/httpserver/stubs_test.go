package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cutin/internal/cart"
	"cutin/internal/domain"
	authsvc "cutin/internal/service/auth"
	financesvc "cutin/internal/service/finance"
	merchantsvc "cutin/internal/service/merchant"
	ordersvc "cutin/internal/service/order"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	alice = &domain.User{ID: "cust-1", Email: "alice@example.com", Role: domain.RoleCustomer}
	joe   = &domain.User{ID: "merch-1", Email: "joe@example.com", Role: domain.RoleMerchant}
)

type stubAuth struct {
	tokens      map[string]*domain.User
	registerErr error
	loginErr    error
	pushTokens  map[string]string
	loggedOut   []string
}

func newStubAuth() *stubAuth {
	return &stubAuth{
		tokens:     map[string]*domain.User{"alice-token": alice, "joe-token": joe},
		pushTokens: map[string]string{},
	}
}

func (s *stubAuth) Register(_ context.Context, in authsvc.RegisterInput) (*domain.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &domain.User{ID: "new-user", Email: in.Email, Role: in.Role}, nil
}

func (s *stubAuth) Login(_ context.Context, email, _ string) (*domain.User, string, string, error) {
	if s.loginErr != nil {
		return nil, "", "", s.loginErr
	}
	return &domain.User{ID: "u", Email: email, Role: domain.RoleCustomer}, "access", "refresh", nil
}

func (s *stubAuth) LookupByToken(_ context.Context, token string) (*domain.User, error) {
	u, ok := s.tokens[token]
	if !ok {
		return nil, authsvc.ErrInvalidToken
	}
	return u, nil
}

func (s *stubAuth) Refresh(_ context.Context, refresh string) (string, string, error) {
	if refresh != "refresh" {
		return "", "", authsvc.ErrInvalidToken
	}
	return "access-2", "refresh-2", nil
}

func (s *stubAuth) Logout(_ context.Context, userID string) error {
	s.loggedOut = append(s.loggedOut, userID)
	return nil
}

func (s *stubAuth) SetPushToken(_ context.Context, userID, token string) error {
	s.pushTokens[userID] = token
	return nil
}

func (s *stubAuth) AccessTTLSeconds() int { return 3600 }

type stubMerchants struct {
	merchants map[string]domain.Merchant
	menu      []domain.MenuItem
	uploads   []merchantsvc.ImageKind
	err       error
}

func newStubMerchants() *stubMerchants {
	return &stubMerchants{merchants: map[string]domain.Merchant{
		joe.ID: {ID: joe.ID, ShopName: "Joe's Diner"},
	}}
}

func (s *stubMerchants) SaveProfile(_ context.Context, id string, in merchantsvc.ProfileInput) (*domain.Merchant, error) {
	m := s.merchants[id]
	m.ID = id
	if in.ShopName != "" {
		m.ShopName = in.ShopName
	}
	s.merchants[id] = m
	return &m, nil
}

func (s *stubMerchants) GetProfile(_ context.Context, id string) (*domain.Merchant, error) {
	m, ok := s.merchants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (s *stubMerchants) List(context.Context) ([]domain.Merchant, error) {
	out := make([]domain.Merchant, 0, len(s.merchants))
	for _, m := range s.merchants {
		out = append(out, m)
	}
	return out, nil
}

func (s *stubMerchants) Search(_ context.Context, term string) ([]domain.Merchant, error) {
	if term == "" {
		return []domain.Merchant{}, nil
	}
	return s.List(context.Background())
}

func (s *stubMerchants) AddMenuItem(_ context.Context, merchantID string, in merchantsvc.MenuItemInput) (*domain.MenuItem, error) {
	if in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	item := domain.MenuItem{ID: "item-1", MerchantID: merchantID, Name: in.Name, Price: in.Price, Available: true}
	s.menu = append(s.menu, item)
	return &item, nil
}

func (s *stubMerchants) Menu(context.Context, string) ([]domain.MenuItem, error) {
	return s.menu, s.err
}

func (s *stubMerchants) PublicMenu(ctx context.Context, id string) ([]domain.MenuItem, error) {
	if _, err := s.GetProfile(ctx, id); err != nil {
		return nil, err
	}
	return s.menu, nil
}

func (s *stubMerchants) UpdateMenuItem(_ context.Context, merchantID, itemID string, patch merchantsvc.MenuItemPatch) (*domain.MenuItem, error) {
	for i := range s.menu {
		if s.menu[i].ID != itemID || s.menu[i].MerchantID != merchantID {
			continue
		}
		if patch.Name != nil {
			s.menu[i].Name = *patch.Name
		}
		if patch.Available != nil {
			s.menu[i].Available = *patch.Available
		}
		item := s.menu[i]
		return &item, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubMerchants) SetAvailability(ctx context.Context, merchantID, itemID string, available bool) (*domain.MenuItem, error) {
	return s.UpdateMenuItem(ctx, merchantID, itemID, merchantsvc.MenuItemPatch{Available: &available})
}

func (s *stubMerchants) DeleteMenuItem(_ context.Context, merchantID, itemID string) error {
	for i := range s.menu {
		if s.menu[i].ID == itemID && s.menu[i].MerchantID == merchantID {
			s.menu = append(s.menu[:i], s.menu[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *stubMerchants) UploadImage(_ context.Context, merchantID string, kind merchantsvc.ImageKind, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrInvalidInput
	}
	s.uploads = append(s.uploads, kind)
	return "http://files/" + string(kind) + "/" + merchantID + ".jpg", nil
}

type stubOrders struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	nextErr error
}

func newStubOrders() *stubOrders {
	return &stubOrders{orders: map[string]*domain.Order{}}
}

func (s *stubOrders) Checkout(_ context.Context, buyer domain.User, src ordersvc.CartSource) (*domain.Order, error) {
	st, rev := src.Checkpoint()
	if len(st.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &domain.Order{
		ID:         "order-1",
		CustomerID: buyer.ID,
		MerchantID: *st.MerchantID,
		Items:      st.Items,
		Subtotal:   st.Total(),
		Total:      st.Total(),
		Status:     domain.OrderPending,
	}
	s.orders[o.ID] = o
	src.Consume(rev, o.MerchantID, st.Items)
	return o, nil
}

func (s *stubOrders) ListForCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	return s.filter(func(o *domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (s *stubOrders) ListForMerchant(_ context.Context, merchantID string) ([]domain.Order, error) {
	return s.filter(func(o *domain.Order) bool { return o.MerchantID == merchantID }), nil
}

func (s *stubOrders) filter(keep func(*domain.Order) bool) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	return out
}

func (s *stubOrders) Advance(_ context.Context, merchantID, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	next, ok := o.Status.Next()
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	o.Status = next
	out := *o
	return &out, nil
}

func (s *stubOrders) SetStatus(_ context.Context, merchantID, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	o.Status = status
	out := *o
	return &out, nil
}

type stubFinance struct {
	lastRange financesvc.Range
}

func (s *stubFinance) Summary(context.Context, string) (*financesvc.Summary, error) {
	return &financesvc.Summary{Today: decimal.NewFromInt(10), Items: []financesvc.ItemEarning{}}, nil
}

func (s *stubFinance) Dashboard(_ context.Context, _ string, r financesvc.Range) (*financesvc.Dashboard, error) {
	s.lastRange = r
	return &financesvc.Dashboard{Range: r, Revenue: decimal.Zero}, nil
}

type testServer struct {
	router    *gin.Engine
	auth      *stubAuth
	merchants *stubMerchants
	orders    *stubOrders
	finance   *stubFinance
	carts     *cart.Registry
}

func newTestServer(t *testing.T, mutate ...func(*Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		auth:      newStubAuth(),
		merchants: newStubMerchants(),
		orders:    newStubOrders(),
		finance:   &stubFinance{},
		carts:     cart.NewRegistry(cart.NewMemoryStorage(), "", nil, cart.WithDebounce(time.Hour)),
	}
	deps := Deps{
		Auth:      ts.auth,
		Merchants: ts.merchants,
		Orders:    ts.orders,
		Finance:   ts.finance,
		Carts:     ts.carts,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	router, err := buildRouter(zap.NewNop(), nil, deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	ts.router = router
	return ts
}

// do sends body as JSON with the given bearer token, when not empty.
func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			r = bytes.NewBufferString(v)
		default:
			raw, _ := json.Marshal(v)
			r = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, rec.Code, rec.Body.String())
	}
}
