package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mehadihasan/bazarly-backend/api/responses"
	"github.com/mehadihasan/bazarly-backend/api/validators"
	"github.com/mehadihasan/bazarly-backend/internal/orders"
	"github.com/mehadihasan/bazarly-backend/internal/payments"
	"github.com/mehadihasan/bazarly-backend/pkg/enums"
	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
	"github.com/mehadihasan/bazarly-backend/pkg/logger"
)

type initiatePaymentPayload struct {
	CartID        *uuid.UUID             `json:"cart_id,omitempty"`
	ProductIDs    []uuid.UUID            `json:"product_ids,omitempty"`
	Items         []orders.LineItemInput `json:"items,omitempty"`
	TotalAmount   decimal.Decimal        `json:"total_amount" validate:"required"`
	PaymentMethod enums.PaymentMethod    `json:"payment_method" validate:"required"`
	Currency      enums.Currency         `json:"currency,omitempty"`
}

func PaymentInitiate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload initiatePaymentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Initiate(ctx, payments.InitiateInput{
			UserID:        userID,
			CartID:        payload.CartID,
			ProductIDs:    payload.ProductIDs,
			Items:         payload.Items,
			TotalAmount:   payload.TotalAmount,
			PaymentMethod: payload.PaymentMethod,
			Currency:      payload.Currency,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentSuccess is invoked by the gateway redirect after the customer pays.
// Settlement is idempotent; replays return the already-completed view.
func PaymentSuccess(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tranID := strings.TrimSpace(chi.URLParam(r, "tranId"))
		if tranID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required"))
			return
		}
		result, err := svc.HandleSuccess(ctx, tranID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func PaymentFail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.HandleFail(r.Context(), callbackTransactionID(r))
		responses.WriteSuccess(w, map[string]string{"status": "failed"})
	}
}

func PaymentCancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.HandleCancel(r.Context(), callbackTransactionID(r))
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// PaymentIPN acknowledges unconditionally; reconciliation outcomes are
// logged, never returned, so the gateway does not retry forever.
func PaymentIPN(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteSuccess(w, map[string]string{"status": "acknowledged"})
			return
		}
		svc.HandleIPN(r.Context(), payments.IPNPayload{
			TransactionID: strings.TrimSpace(r.PostFormValue("tran_id")),
			ValidationID:  strings.TrimSpace(r.PostFormValue("val_id")),
			Status:        strings.TrimSpace(r.PostFormValue("status")),
		})
		responses.WriteSuccess(w, map[string]string{"status": "acknowledged"})
	}
}

// callbackTransactionID pulls tran_id from a redirect callback, which may
// arrive as a form POST or a query parameter depending on gateway settings.
func callbackTransactionID(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	if v := strings.TrimSpace(r.PostFormValue("tran_id")); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("tran_id"))
}
