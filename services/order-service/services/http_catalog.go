package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/shopswift/storefront/services/order-service/models"
)

type catalogProduct struct {
	ID    string       `json:"_id"`
	Name  string       `json:"name"`
	Image string       `json:"image"`
	Price models.Money `json:"price"`
}

// HTTPCatalog resolves products through the product service's internal
// lookup endpoint. Calls go through a circuit breaker so a failing product
// service fails checkouts fast.
type HTTPCatalog struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewHTTPCatalog(baseURL string, client *http.Client, logger *zap.Logger) *HTTPCatalog {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	settings := gobreaker.Settings{
		Name:        "ProductService",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &HTTPCatalog{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

func (h *HTTPCatalog) Resolve(ctx context.Context, ids []string) (map[string]models.CatalogProduct, error) {
	out := make(map[string]models.CatalogProduct, len(ids))
	for _, id := range ids {
		if _, seen := out[id]; seen {
			continue
		}
		res, err := h.cb.Execute(func() (interface{}, error) {
			return h.fetch(ctx, id)
		})
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", id, err)
		}
		if p, ok := res.(*models.CatalogProduct); ok && p != nil {
			out[id] = *p
		}
	}
	return out, nil
}

// fetch returns nil without error when the product does not exist, so misses
// do not count against the breaker.
func (h *HTTPCatalog) fetch(ctx context.Context, id string) (*models.CatalogProduct, error) {
	endpoint := fmt.Sprintf("%s/products/internal/%s", h.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, nil
	default:
		return nil, fmt.Errorf("product service returned %d", resp.StatusCode)
	}

	var p catalogProduct
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &models.CatalogProduct{ID: id, Name: p.Name, Image: p.Image, Price: p.Price}, nil
}
