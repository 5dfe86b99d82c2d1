package routing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pelyams/cached_product_service/internal/domain"
	"github.com/pelyams/cached_product_service/internal/ports"
)

type ProductHandler struct {
	svc ports.ProductService
}

func NewProductHandler(svc ports.ProductService) *ProductHandler {
	return &ProductHandler{
		svc: svc,
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *ProductHandler) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Hello there"))
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductInput
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := h.svc.Add(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+product.ID.String())
	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	product, err := h.svc.Find(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req domain.ProductInput
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := h.svc.Modify(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req domain.ProductPatch
	if !decodeBody(w, r, &req) {
		return
	}
	product, err := h.svc.Patch(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		recordError(r, fmt.Errorf("handler error: failed to parse product id %q: %w", raw, err))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid product id"})
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	// unknown fields such as a GET body's id are ignored
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		recordError(r, fmt.Errorf("handler error: failed to decode payload: %w", err))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return false
	}
	return true
}

// writeError maps a service error to a response. Infrastructure causes are
// recorded for the request log and never written to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	recordError(r, err)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		body := errorBody{Error: "Invalid product"}
		var domainErr *domain.Error
		if errors.As(err, &domainErr) && domainErr.Cause != nil {
			body.Details = domainErr.Cause.Error()
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Product not found"})
	case domain.IsTimeout(err):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "Request timed out"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

func recordError(r *http.Request, err error) {
	if errs := domain.ErrorContainerFromContext(r.Context()); errs != nil {
		errs.Add(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
