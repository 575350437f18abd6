package property

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appMiddleware "github.com/havenai/go-estate-assistant/app/middleware"
	"github.com/havenai/go-estate-assistant/internal/api"
	"github.com/havenai/go-estate-assistant/internal/types"
)

type HandlerImpl struct {
	propertyService Service
	logger          *slog.Logger
}

func NewHandler(propertyService Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		propertyService: propertyService,
		logger:          logger,
	}
}

// CreatePropertyRequest is the listing submission body.
type CreatePropertyRequest struct {
	Title     string   `json:"title"`
	Price     float64  `json:"price"`
	City      string   `json:"city"`
	Bedrooms  int      `json:"bedrooms"`
	Bathrooms int      `json:"bathrooms"`
	AreaSqft  *float64 `json:"area_sqft"`
	Action    string   `json:"action"`
}

func (h *HandlerImpl) CreateProperty(w http.ResponseWriter, r *http.Request) {
	email, ok := appMiddleware.UserEmailFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreatePropertyRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.propertyService.Create(r.Context(), types.Property{
		Title:     req.Title,
		Price:     req.Price,
		City:      req.City,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
		AreaSqft:  req.AreaSqft,
		Action:    req.Action,
		ListedBy:  email,
		CreatedBy: email,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to create property", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

func (h *HandlerImpl) GetProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prop, err := h.propertyService.GetByID(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		api.ErrorResponse(w, r, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to fetch property", slog.Any("error", err), slog.String("id", id))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid property id")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, prop)
}

func (h *HandlerImpl) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	email, ok := appMiddleware.UserEmailFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var updates map[string]interface{}
	if err := api.DecodeJSONBody(w, r, &updates); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	err := h.propertyService.Update(r.Context(), id, email, updates)
	switch {
	case errors.Is(err, ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "Forbidden")
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Failed to update property", slog.Any("error", err), slog.String("id", id))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func (h *HandlerImpl) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	email, ok := appMiddleware.UserEmailFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	err := h.propertyService.Delete(r.Context(), id, email)
	switch {
	case errors.Is(err, ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "Forbidden")
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Failed to delete property", slog.Any("error", err), slog.String("id", id))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete property")
	default:
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"deleted": true})
	}
}

func (h *HandlerImpl) SearchProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.PropertyFilter{
		City:   q.Get("city"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
	}
	if v := q.Get("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &f
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &f
		}
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.Limit = n
		}
	}

	results, err := h.propertyService.Search(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Property search failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Search failed")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *HandlerImpl) Market(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	snapshot, err := h.propertyService.MarketSnapshot(r.Context(), city)
	if errors.Is(err, ErrNotFound) {
		api.ErrorResponse(w, r, http.StatusNotFound, "No listings for this city")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Market snapshot failed", slog.Any("error", err), slog.String("city", city))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to compute market stats")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"market": snapshot})
}

func (h *HandlerImpl) CheapestSegment(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	segment, err := h.propertyService.CheapestSegment(r.Context(), city)
	if errors.Is(err, ErrNotFound) {
		api.ErrorResponse(w, r, http.StatusNotFound, "No listings for this city")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Cheapest segment failed", slog.Any("error", err), slog.String("city", city))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to compute cheapest segment")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"city": city, "cheapestSegment": segment})
}

func (h *HandlerImpl) Overview(w http.ResponseWriter, r *http.Request) {
	rows, err := h.propertyService.CityOverview(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "City overview failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to compute overview")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"cities": rows})
}

func (h *HandlerImpl) BedroomStats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.propertyService.PriceByBedrooms(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Bedroom stats failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to compute bedroom stats")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"stats": rows})
}

func (h *HandlerImpl) Recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city := q.Get("city")
	maxPrice, errPrice := strconv.ParseFloat(q.Get("max_price"), 64)
	bedrooms, errBeds := strconv.Atoi(q.Get("bedrooms"))
	if city == "" || errPrice != nil || errBeds != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "city, max_price and bedrooms are required")
		return
	}

	results, err := h.propertyService.Recommend(r.Context(), city, maxPrice, bedrooms)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Recommendation failed", slog.Any("error", err), slog.String("city", city))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to compute recommendations")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"recommendations": results})
}
