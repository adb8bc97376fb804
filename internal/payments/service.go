package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mehadihasan/bazarly-backend/internal/orders"
	"github.com/mehadihasan/bazarly-backend/pkg/config"
	"github.com/mehadihasan/bazarly-backend/pkg/db/models"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
	"github.com/mehadihasan/bazarly-backend/pkg/logger"
	"github.com/mehadihasan/bazarly-backend/pkg/metrics"
	redispkg "github.com/mehadihasan/bazarly-backend/pkg/redis"
	"github.com/mehadihasan/bazarly-backend/pkg/sslcommerz"
)

const callbackGuardScope = "payment"

type gateway interface {
	InitiateSession(ctx context.Context, req sslcommerz.SessionRequest) (*sslcommerz.Session, error)
	ValidateTransaction(ctx context.Context, valID string) (*sslcommerz.Validation, error)
}

type shippingResolver interface {
	ShippingTarget(ctx context.Context, userID uuid.UUID) (*models.Address, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service is the payment gateway adapter: it opens hosted checkout sessions
// and reconciles the gateway's asynchronous callbacks against the order
// ledger, keyed by transaction id.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	HandleSuccess(ctx context.Context, transactionID string) (*SuccessResult, error)
	HandleFail(ctx context.Context, transactionID string)
	HandleCancel(ctx context.Context, transactionID string)
	HandleIPN(ctx context.Context, payload IPNPayload)
}

type service struct {
	orders    orders.Service
	addresses shippingResolver
	users     userFinder
	gateway   gateway
	guard     redispkg.IdempotencyStore
	metrics   *metrics.GatewayMetrics
	log       *logger.Logger
	cfg       config.PaymentConfig
}

// NewService wires the payment adapter. The metrics handle may be nil.
func NewService(
	orderSvc orders.Service,
	addresses shippingResolver,
	users userFinder,
	gw gateway,
	guard redispkg.IdempotencyStore,
	gwMetrics *metrics.GatewayMetrics,
	log *logger.Logger,
	cfg config.PaymentConfig,
) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address resolver required")
	}
	if users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.CallbackBaseURL) == "" {
		return nil, fmt.Errorf("callback base url required")
	}
	return &service{
		orders:    orderSvc,
		addresses: addresses,
		users:     users,
		gateway:   gw,
		guard:     guard,
		metrics:   gwMetrics,
		log:       log,
		cfg:       cfg,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.PaymentMethod != enums.PaymentMethodSSLCommerz {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only SSLCommerz payments are supported")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "load user")
	}
	address, err := s.addresses.ShippingTarget(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Create(ctx, orders.CreateOrderInput{
		UserID:        input.UserID,
		AddressID:     address.ID,
		CartID:        input.CartID,
		ProductIDs:    input.ProductIDs,
		Items:         input.Items,
		TotalAmount:   input.TotalAmount,
		PaymentMethod: input.PaymentMethod,
		Currency:      input.Currency,
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithTransactionID(s.log.WithOrderID(ctx, order.ID.String()), order.TransactionID)

	phone := ""
	if user.Phone != nil {
		phone = *user.Phone
	}
	session, err := s.gateway.InitiateSession(ctx, sslcommerz.SessionRequest{
		TransactionID:   order.TransactionID,
		Amount:          order.TotalAmount,
		Currency:        string(order.Currency),
		SuccessURL:      s.callbackURL("success", order.TransactionID),
		FailURL:         s.callbackURL("fail", ""),
		CancelURL:       s.callbackURL("cancel", ""),
		IPNURL:          s.callbackURL("ipn", ""),
		CustomerName:    user.Name,
		CustomerEmail:   user.Email,
		CustomerPhone:   phone,
		CustomerAddress: address.Street,
		CustomerCity:    address.City,
		CustomerCountry: address.Country,
		ProductName:     "Bazarly order",
		ProductCategory: "ecommerce",
	})
	if err != nil {
		s.metrics.IncSession("error")
		s.log.Error(ctx, "checkout session rejected", err)
		// The order stays Pending; the customer may retry checkout.
		return nil, err
	}
	s.metrics.IncSession("ok")
	s.log.Info(ctx, "checkout session opened")

	return &InitiateResult{
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		GatewayURL:    session.GatewayPageURL,
		SessionKey:    session.SessionKey,
	}, nil
}

func (s *service) HandleSuccess(ctx context.Context, transactionID string) (*SuccessResult, error) {
	s.metrics.IncCallback("success")
	ctx = s.log.WithTransactionID(ctx, transactionID)

	result, err := s.orders.MarkPaid(ctx, transactionID)
	if err != nil {
		s.log.Error(ctx, "success callback reconciliation failed", err)
		return nil, err
	}
	if result.Transitioned {
		s.log.Info(ctx, "order settled via success redirect")
	}
	return &SuccessResult{
		Order:            result.Order,
		AlreadyCompleted: !result.Transitioned,
	}, nil
}

func (s *service) HandleFail(ctx context.Context, transactionID string) {
	s.metrics.IncCallback("fail")
	if transactionID != "" {
		ctx = s.log.WithTransactionID(ctx, transactionID)
	}
	// No state change: the order stays Pending so the customer can retry.
	s.log.Info(ctx, "payment failed at gateway")
}

func (s *service) HandleCancel(ctx context.Context, transactionID string) {
	s.metrics.IncCallback("cancel")
	if transactionID != "" {
		ctx = s.log.WithTransactionID(ctx, transactionID)
	}
	s.log.Info(ctx, "payment cancelled by customer")
}

// HandleIPN is the authoritative reconciliation path. The notification is
// never trusted on its own: the carried val_id is verified against the
// gateway's validation API before the order is settled. The caller always
// acknowledges with 200 regardless of the outcome, so errors are logged
// rather than returned.
func (s *service) HandleIPN(ctx context.Context, payload IPNPayload) {
	s.metrics.IncCallback("ipn")
	ctx = s.log.WithTransactionID(ctx, payload.TransactionID)

	if payload.TransactionID == "" || payload.ValidationID == "" {
		s.log.Warn(ctx, "ipn missing transaction or validation id")
		return
	}

	key := s.guard.IdempotencyKey(callbackGuardScope, payload.TransactionID)
	acquired, err := s.guard.SetNX(ctx, key, "1", s.cfg.CallbackGuardTTL)
	if err != nil {
		// Redis trouble must not drop a notification; the DB latch still
		// guarantees single settlement.
		s.log.Warn(ctx, "ipn idempotency guard unavailable")
	} else if !acquired {
		s.log.Info(ctx, "ipn already being processed")
		return
	}

	validation, err := s.gateway.ValidateTransaction(ctx, payload.ValidationID)
	if err != nil {
		s.releaseGuard(ctx, key)
		s.log.Error(ctx, "ipn validation call failed", err)
		return
	}
	if !validation.Valid() {
		s.log.Warn(ctx, "ipn transaction not settled per validator")
		return
	}
	if validation.TransactionID != "" && validation.TransactionID != payload.TransactionID {
		s.log.Warn(ctx, "ipn transaction id mismatch against validator")
		return
	}

	result, err := s.orders.MarkPaid(ctx, payload.TransactionID)
	if err != nil {
		s.releaseGuard(ctx, key)
		s.log.Error(ctx, "ipn reconciliation failed", err)
		return
	}
	if result.Transitioned {
		s.log.Info(ctx, "order settled via ipn")
	} else {
		s.log.Info(ctx, "ipn replay, order already settled")
	}
}

// releaseGuard frees the callback key after a transient failure so the
// gateway's IPN retry can be processed.
func (s *service) releaseGuard(ctx context.Context, key string) {
	if err := s.guard.Del(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to release callback guard")
	}
}

func (s *service) callbackURL(kind, transactionID string) string {
	base := strings.TrimRight(s.cfg.CallbackBaseURL, "/")
	if transactionID == "" {
		return fmt.Sprintf("%s/api/v1/payment/%s", base, kind)
	}
	return fmt.Sprintf("%s/api/v1/payment/%s/%s", base, kind, transactionID)
}
