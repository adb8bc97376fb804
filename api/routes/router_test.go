package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mehadihasan/bazarly-backend/internal/addresses"
	authsvc "github.com/mehadihasan/bazarly-backend/internal/auth"
	"github.com/mehadihasan/bazarly-backend/internal/cart"
	"github.com/mehadihasan/bazarly-backend/internal/catalog"
	"github.com/mehadihasan/bazarly-backend/internal/orders"
	"github.com/mehadihasan/bazarly-backend/internal/payments"
	pkgauth "github.com/mehadihasan/bazarly-backend/pkg/auth"
	"github.com/mehadihasan/bazarly-backend/pkg/auth/session"
	"github.com/mehadihasan/bazarly-backend/pkg/config"
	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
	"github.com/mehadihasan/bazarly-backend/pkg/logger"
	"github.com/mehadihasan/bazarly-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, input authsvc.RegisterInput) (*authsvc.AuthResult, error) {
	return &authsvc.AuthResult{}, nil
}

func (stubAuthService) RegisterAdmin(ctx context.Context, input authsvc.RegisterInput) (*authsvc.AuthResult, error) {
	return &authsvc.AuthResult{}, nil
}

func (stubAuthService) Login(ctx context.Context, input authsvc.LoginInput) (*authsvc.AuthResult, error) {
	return &authsvc.AuthResult{}, nil
}

func (stubAuthService) Refresh(ctx context.Context, input authsvc.RefreshInput) (*authsvc.AuthResult, error) {
	return &authsvc.AuthResult{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

func (stubAuthService) VerifyEmail(ctx context.Context, input authsvc.VerifyEmailInput) error {
	return nil
}

func (stubAuthService) ForgotPassword(ctx context.Context, input authsvc.ForgotPasswordInput) error {
	return nil
}

func (stubAuthService) ResetPassword(ctx context.Context, input authsvc.ResetPasswordInput) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: id}, nil
}

func (stubCatalogService) ListProducts(ctx context.Context, search string, categoryID *uuid.UUID, limit int) ([]catalog.ProductDTO, error) {
	return []catalog.ProductDTO{}, nil
}

func (stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{}, nil
}

func (stubCatalogService) ListCategories(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalogService) EnsureCategory(ctx context.Context, name string) (*catalog.CategoryDTO, error) {
	return &catalog.CategoryDTO{Name: name}, nil
}

type stubCartService struct{}

func (stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) SetItemQuantity(ctx context.Context, userID uuid.UUID, input cart.SetQuantityInput) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, userID uuid.UUID, input cart.RemoveItemInput) (*cart.CartDTO, error) {
	return &cart.CartDTO{}, nil
}

func (stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return nil
}

func (stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{UserID: userID}, nil
}

type stubAddressesService struct{}

func (stubAddressesService) Create(ctx context.Context, userID uuid.UUID, input addresses.CreateAddressInput) (*addresses.AddressDTO, error) {
	return &addresses.AddressDTO{}, nil
}

func (stubAddressesService) List(ctx context.Context, userID uuid.UUID) ([]addresses.AddressDTO, error) {
	return []addresses.AddressDTO{}, nil
}

func (stubAddressesService) SetDefault(ctx context.Context, userID, addressID uuid.UUID) error {
	return nil
}

func (stubAddressesService) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	return nil
}

func (stubAddressesService) ShippingTarget(ctx context.Context, userID uuid.UUID) (*models.Address, error) {
	return &models.Address{UserID: userID}, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID}, nil
}

func (stubOrdersService) GetByTransactionID(ctx context.Context, transactionID string) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{TransactionID: transactionID}, nil
}

func (stubOrdersService) ListAll(ctx context.Context, limit int) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

func (stubOrdersService) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderPage, error) {
	return &orders.OrderPage{}, nil
}

func (stubOrdersService) UpdateStatus(ctx context.Context, orderID uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, input orders.CancelInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) MarkPaid(ctx context.Context, transactionID string) (*orders.MarkPaidResult, error) {
	return &orders.MarkPaidResult{}, nil
}

func (stubOrdersService) Delete(ctx context.Context, orderID uuid.UUID) error {
	return nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) Initiate(ctx context.Context, input payments.InitiateInput) (*payments.InitiateResult, error) {
	return &payments.InitiateResult{}, nil
}

func (stubPaymentsService) HandleSuccess(ctx context.Context, transactionID string) (*payments.SuccessResult, error) {
	return &payments.SuccessResult{}, nil
}

func (stubPaymentsService) HandleFail(ctx context.Context, transactionID string) {}

func (stubPaymentsService) HandleCancel(ctx context.Context, transactionID string) {}

func (stubPaymentsService) HandleIPN(ctx context.Context, payload payments.IPNPayload) {}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        stubPinger{},
		Sessions:  stubSessionChecker{},
		Auth:      stubAuthService{},
		Catalog:   stubCatalogService{},
		Cart:      stubCartService{},
		Addresses: stubAddressesService{},
		Orders:    stubOrdersService{},
		Payments:  stubPaymentsService{},
	})
}

func TestAuthedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestAuthedGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for cart fetch got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	nonAdmin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for product list got %d", resp.Code)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestIPNCallbackAlwaysAcknowledged(t *testing.T) {
	router := newTestRouter(testConfig())
	form := strings.NewReader("tran_id=abc&val_id=def&status=VALID")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/ipn", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ipn delivery got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
