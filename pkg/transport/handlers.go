package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/gateway"
)

type Handler struct {
	finalizer service.FinalizeService
	sweeper   service.Sweeper
	widget    *gateway.Client
	orders    model.OrderRepository
	cards     model.SavedCardRepository
}

func NewHandler(finalizer service.FinalizeService, sweeper service.Sweeper, widget *gateway.Client, orders model.OrderRepository, cards model.SavedCardRepository) *Handler {
	return &Handler{
		finalizer: finalizer,
		sweeper:   sweeper,
		widget:    widget,
		orders:    orders,
		cards:     cards,
	}
}

func Router(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/payment/callback", h.paymentCallback).Methods(http.MethodPost)
	api.HandleFunc("/payment/initiate", h.initiatePayment).Methods(http.MethodPost)
	api.HandleFunc("/payment/result", h.paymentResult).Methods(http.MethodPost)
	api.HandleFunc("/cards/verify", h.verifyCard).Methods(http.MethodPost)
	api.HandleFunc("/cards", h.listCards).Methods(http.MethodGet)
	api.HandleFunc("/cards/{ID}", h.deleteCard).Methods(http.MethodDelete)
	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	api.HandleFunc("/sweep", h.armSweeper).Methods(http.MethodPost)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return logMiddleware(c.Handler(r))
}

// paymentCallback serves both payment completions and card verifications from
// one provider endpoint. The claim result, not the payload shape, decides
// which one a successful delivery was: card-verification invoices never have a
// pending order.
func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var raw providerCallback
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid callback body")
		return
	}
	cb := normalizeCallback(raw)

	if !cb.success {
		// A declined payment is a terminal business outcome, not a transport
		// error; 200 keeps the provider from retrying it.
		log.WithField("invoiceID", cb.invoiceID).Info("callback reported unsuccessful operation")
		writeJSON(w, http.StatusOK, map[string]string{"message": "operation not successful"})
		return
	}

	claimed, err := h.finalizer.FinalizeInvoice(r.Context(), cb.invoiceID)
	if err != nil {
		log.WithField("invoiceID", cb.invoiceID).WithError(err).Error("callback finalization failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if claimed != nil {
		writeJSON(w, http.StatusOK, map[string]string{"orderId": claimed.ID.String()})
		return
	}

	// No pending order: this delivery is a card verification (or a duplicate
	// of an already finalized payment, in which case the missing card fields
	// yield a benign 400).
	if !cb.card.Complete() {
		log.WithFields(log.Fields{"invoiceID": cb.invoiceID, "kind": cb.kind.String()}).Warn("callback without pending order lacks card data")
		writeError(w, http.StatusBadRequest, "incomplete card data")
		return
	}

	card, err := h.finalizer.SaveVerifiedCard(r.Context(), cb.card)
	if err != nil {
		log.WithField("invoiceID", cb.invoiceID).WithError(err).Error("saving verified card failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cardId": card.CardID, "isDefault": card.IsDefault})
}

type initiatePaymentRequest struct {
	BuyerID          string `json:"buyerId"`
	ProductID        string `json:"productId"`
	DeliveryAddress  string `json:"deliveryAddress"`
	DeliveryFeeCents int64  `json:"deliveryFeeCents"`
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := h.widget.PreparePayment(r.Context(), service.PurchaseParams{
		BuyerID:          req.BuyerID,
		ProductID:        req.ProductID,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryFeeCents: req.DeliveryFeeCents,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMissingBuyer),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, model.ErrProductNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		log.WithError(err).Error("payment initiation failed")
		writeError(w, http.StatusBadGateway, "payment provider unavailable")
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

type paymentResultRequest struct {
	InvoiceID string               `json:"invoiceId"`
	Result    gateway.WidgetResult `json:"result"`
}

// paymentResult is the in-tab completion path: the buyer's browser posts the
// widget's raw result here and the server races the webhook for the claim.
func (h *Handler) paymentResult(w http.ResponseWriter, r *http.Request) {
	var req paymentResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvoiceID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.widget.HandlePaymentResult(r.Context(), req.InvoiceID, req.Result)
	if err != nil {
		log.WithField("invoiceID", req.InvoiceID).WithError(err).Error("payment result handling failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]interface{}{"success": outcome.Success}
	if outcome.Order != nil {
		resp["orderId"] = outcome.Order.ID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

type verifyCardRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) verifyCard(w http.ResponseWriter, r *http.Request) {
	var req verifyCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := h.widget.PrepareCardVerification(r.Context(), req.UserID)
	if err != nil {
		log.WithField("userID", req.UserID).WithError(err).Error("card verification initiation failed")
		writeError(w, http.StatusBadGateway, "payment provider unavailable")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) listCards(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}

	cards, err := h.cards.ListByUser(r.Context(), userID)
	if err != nil {
		log.WithField("userID", userID).WithError(err).Error("listing saved cards failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (h *Handler) deleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["ID"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid card id")
		return
	}

	err = h.cards.SoftDelete(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "card deleted"})
	case errors.Is(err, model.ErrCardNotFound):
		writeError(w, http.StatusNotFound, "card not found")
	default:
		log.WithField("cardID", id).WithError(err).Error("deleting saved card failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	buyerID := r.URL.Query().Get("buyer")
	if buyerID == "" {
		writeError(w, http.StatusBadRequest, "buyer query parameter is required")
		return
	}

	orders, err := h.orders.ListByBuyer(r.Context(), buyerID)
	if err != nil {
		log.WithField("buyerID", buyerID).WithError(err).Error("listing orders failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type armSweeperRequest struct {
	BuyerID string `json:"buyerId"`
}

func (h *Handler) armSweeper(w http.ResponseWriter, r *http.Request) {
	var req armSweeperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BuyerID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.sweeper.Schedule(req.BuyerID)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "sweep scheduled"})
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		log.WithError(err).Error("write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}
