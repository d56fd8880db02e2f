package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopswift/storefront/services/common/auth"
	apperrors "github.com/shopswift/storefront/services/common/errors"
	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/common/users"
	"github.com/shopswift/storefront/services/order-service/controllers"
	"github.com/shopswift/storefront/services/order-service/models"
	"github.com/shopswift/storefront/services/order-service/services"
)

type directory map[string]*users.User

func (d directory) FindByID(_ context.Context, id string) (*users.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

// stubOrders records which caller reached the service.
type stubOrders struct {
	services.OrderService
	lastActor identity.Identity
}

func (s *stubOrders) ListAll(_ context.Context, actor identity.Identity) ([]models.OrderView, error) {
	s.lastActor = actor
	return []models.OrderView{}, nil
}

func (s *stubOrders) ListMine(_ context.Context, actor identity.Identity) ([]models.Order, error) {
	s.lastActor = actor
	return []models.Order{{ID: "o-1", User: actor.ID}}, nil
}

func (s *stubOrders) MarkDelivered(_ context.Context, actor identity.Identity, id string) (*models.Order, error) {
	s.lastActor = actor
	return &models.Order{ID: id, IsDelivered: true}, nil
}

func (s *stubOrders) CountAll(context.Context) (*models.TotalOrdersResponse, error) {
	return &models.TotalOrdersResponse{TotalOrders: 3}, nil
}

type fixture struct {
	router *gin.Engine
	orders *stubOrders
	tokens *auth.TokenService
}

func newFixture(t *testing.T, protectAggregates bool) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenService("routes-secret")
	require.NoError(t, err)
	dir := directory{
		"u-1":   {ID: "u-1", Username: "carol", Email: "carol@example.com"},
		"admin": {ID: "admin", Username: "ada", Email: "ada@example.com", IsAdmin: true},
	}
	guard := identity.NewGuard(tokens, dir, zap.NewNop())
	orders := &stubOrders{}

	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(zap.NewNop()))
	RegisterOrderRoutes(r, controllers.NewOrderController(orders), guard, protectAggregates)
	return &fixture{router: r, orders: orders, tokens: tokens}
}

func (f *fixture) request(t *testing.T, method, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		token, _, err := f.tokens.Issue(userID)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestListAll_RequiresAdmin(t *testing.T) {
	f := newFixture(t, false)

	w := f.request(t, http.MethodGet, "/api/orders", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Not authorized"}`, w.Body.String())

	w = f.request(t, http.MethodGet, "/api/orders", "u-1")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Not authorized as an admin"}`, w.Body.String())
	assert.Empty(t, f.orders.lastActor.ID)

	w = f.request(t, http.MethodGet, "/api/orders", "admin")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.orders.lastActor.IsAdmin)
}

func TestMine_PassesCallerIdentity(t *testing.T) {
	f := newFixture(t, false)

	w := f.request(t, http.MethodGet, "/api/orders/mine", "u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, identity.Identity{ID: "u-1", Username: "carol", Email: "carol@example.com"}, f.orders.lastActor)
	assert.Contains(t, w.Body.String(), `"user":"u-1"`)
}

func TestUnknownUserIsUnauthenticated(t *testing.T) {
	f := newFixture(t, false)
	w := f.request(t, http.MethodGet, "/api/orders/mine", "deleted-user")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Not authorized"}`, w.Body.String())
}

func TestDeliver_RequiresAdmin(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, http.StatusForbidden, f.request(t, http.MethodPut, "/api/orders/o-1/deliver", "u-1").Code)
	assert.Equal(t, http.StatusOK, f.request(t, http.MethodPut, "/api/orders/o-1/deliver", "admin").Code)
}

func TestAggregates_PublicByDefault(t *testing.T) {
	f := newFixture(t, false)
	w := f.request(t, http.MethodGet, "/api/orders/total-orders", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"totalOrders":3}`, w.Body.String())
}

func TestAggregates_Protected(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, http.StatusUnauthorized, f.request(t, http.MethodGet, "/api/orders/total-orders", "").Code)
	assert.Equal(t, http.StatusForbidden, f.request(t, http.MethodGet, "/api/orders/total-orders", "u-1").Code)
	assert.Equal(t, http.StatusOK, f.request(t, http.MethodGet, "/api/orders/total-orders", "admin").Code)
}
