// Package api exposes the recommendation engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/dispatch"
	"github.com/ombra/registrar/internal/recommend"
)

// Unlocker answers transitive "what does passing this course unlock"
// queries. The Neo4j graph store implements it; nil disables the route.
type Unlocker interface {
	Unlocks(ctx context.Context, courseID string) ([]string, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	service    *recommend.Service
	dispatcher *dispatch.Dispatcher
	unlocker   Unlocker
	logger     *zap.Logger
}

// NewHandler creates the API handler. unlocker may be nil.
func NewHandler(service *recommend.Service, dispatcher *dispatch.Dispatcher,
	unlocker Unlocker, logger *zap.Logger) *Handler {
	return &Handler{
		service:    service,
		dispatcher: dispatcher,
		unlocker:   unlocker,
		logger:     logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Post("/recommendations", h.createRecommendation)

		r.Get("/courses", h.listCourses)
		r.Get("/courses/{id}", h.getCourse)
		r.Get("/courses/{id}/sections", h.getCourseSections)
		r.Get("/courses/{id}/unlocks", h.getCourseUnlocks)

		r.Get("/students/{id}/eligible", h.getEligibleCourses)

		r.Post("/chat", h.chat)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"courses": h.service.Catalog().Len(),
	})
}

func (h *Handler) createRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, recommend.ErrorResponse{
			ErrorKind: recommend.KindBadRequest,
			Message:   "invalid request body: " + err.Error(),
		})
		return
	}

	resp, err := h.service.Recommend(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	index := h.service.Catalog()
	out := make([]interface{}, 0, index.Len())
	for _, id := range index.CourseIDs() {
		course, _ := index.Lookup(id)
		out = append(out, course)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	course, ok := h.service.Catalog().Lookup(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "course not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"course":        course,
		"prerequisites": h.service.Graph().Prerequisites(id),
	})
}

func (h *Handler) getCourseSections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.service.Catalog().Lookup(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "course not found"})
		return
	}
	writeJSON(w, http.StatusOK, h.service.Catalog().SectionsFor(id))
}

func (h *Handler) getCourseUnlocks(w http.ResponseWriter, r *http.Request) {
	if h.unlocker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "graph store not configured"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := h.service.Catalog().Lookup(id); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "course not found"})
		return
	}
	unlocks, err := h.unlocker.Unlocks(r.Context(), id)
	if err != nil {
		h.logger.Error("unlocks query failed", zap.String("course", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "graph query failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"courseId": id, "unlocks": unlocks})
}

func (h *Handler) getEligibleCourses(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	courses, err := h.service.Eligible(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if courses == nil {
		courses = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"studentId": id, "eligible": courses})
}

type chatRequest struct {
	StudentID string `json:"studentId"`
	UserName  string `json:"userName,omitempty"`
	Message   string `json:"message"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	reply := h.dispatcher.Handle(r.Context(), req.Message, &dispatch.HandlerContext{
		Platform: "rest",
		UserID:   req.StudentID,
		UserName: req.UserName,
	})
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// writeError maps engine errors onto the uniform error shape.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := recommend.ErrorKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case recommend.KindBadRequest:
		status = http.StatusBadRequest
	case recommend.KindNoFeasibleSchedule:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("kind", kind), zap.Error(err))
	}
	writeJSON(w, status, recommend.ErrorResponse{ErrorKind: kind, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
