package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nikolayk812/coursecart/internal/cart"
	"github.com/nikolayk812/coursecart/internal/catalog"
	"github.com/nikolayk812/coursecart/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartResponse struct {
	Ready        bool               `json:"ready"`
	Items        []domain.CartEntry `json:"items"`
	Count        int                `json:"count"`
	Total        decimal.Decimal    `json:"total"`
	Currency     string             `json:"currency"`
	TotalDisplay string             `json:"total_display"`
}

type AddItemRequestDTO struct {
	Slug string `json:"slug"`
}

type CourseDTO struct {
	domain.Course
	InCart bool `json:"in_cart"`
}

type CoursesResponse struct {
	Courses     []CourseDTO `json:"courses"`
	Page        int         `json:"page"`
	Limit       int         `json:"limit"`
	Total       int         `json:"total"`
	HasNext     bool        `json:"has_next"`
	HasPrevious bool        `json:"has_previous"`
}

func newCartResponse(snap cart.Snapshot) CartResponse {
	resp := CartResponse{
		Ready:    snap.Ready,
		Currency: snap.Total.Currency.String(),
	}

	// before hydration nothing about the contents is known
	if !snap.Ready {
		return resp
	}

	resp.Items = snap.Entries
	if resp.Items == nil {
		resp.Items = []domain.CartEntry{}
	}
	resp.Count = len(snap.Entries)
	resp.Total = snap.Total.Amount
	resp.TotalDisplay = snap.Total.Display()

	return resp
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, newCartResponse(h.store.Snapshot()))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Slug == "" {
		h.respondError(w, http.StatusBadRequest, "invalid_slug", "slug is required")
		return
	}

	if !h.store.Ready() {
		h.respondCartError(w, cart.ErrNotReady)
		return
	}

	course, err := h.catalog.Get(r.Context(), req.Slug)
	if errors.Is(err, catalog.ErrCourseNotFound) {
		h.respondError(w, http.StatusNotFound, "course_not_found", "course not found")
		return
	}
	if err != nil {
		h.logger.Error("catalog lookup failed", zap.String("slug", req.Slug), zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "catalog_unavailable", "course catalog is unavailable")
		return
	}

	entry, err := course.CartEntry()
	if err != nil {
		h.respondCartError(w, err)
		return
	}

	added, err := h.store.Add(entry)
	if err != nil {
		h.respondCartError(w, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}

	h.respondJSON(w, status, newCartResponse(h.store.Snapshot()))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if _, err := h.store.Remove(slug); err != nil {
		h.respondCartError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		h.respondCartError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := catalog.Query{Text: r.URL.Query().Get("q")}

	var err error
	if q.Page, err = intParam(r, "page"); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	if q.Limit, err = intParam(r, "limit"); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	page, err := h.catalog.List(r.Context(), q)
	if err != nil {
		h.logger.Error("catalog list failed", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "catalog_unavailable", "course catalog is unavailable")
		return
	}

	resp := CoursesResponse{
		Courses:     make([]CourseDTO, 0, len(page.Courses)),
		Page:        page.Page,
		Limit:       page.Limit,
		Total:       page.Total,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	}
	for _, course := range page.Courses {
		resp.Courses = append(resp.Courses, CourseDTO{
			Course: course,
			InCart: h.store.Contains(course.Slug),
		})
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}

	return n, nil
}
