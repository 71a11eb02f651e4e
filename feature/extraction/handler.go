package extraction

import (
	"errors"

	"listing-manager/core/logger"
	"listing-manager/feature/extraction/apply"
	"listing-manager/feature/extraction/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for extraction sessions.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the session routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sessions")
	group.Post("/", h.HandleIngest)
	group.Post("/import", h.HandleImport)
	group.Get("/", h.HandleListSessions)
	group.Get("/:id", h.HandleGetSession)
	group.Get("/:id/changes", h.HandleListChanges)
	group.Post("/:id/apply", h.HandleApply)
	group.Post("/:id/changes/:changeID/reject", h.HandleReject)
}

// HandleIngest accepts one extraction payload and builds its change set.
// @Summary Ingest Extraction Payload
// @Description Validates an extraction payload, creates a session and builds its pending change set.
// @Tags sessions
// @Accept json
// @Produce json
// @Param payload body models.ExtractionPayload true "Extraction payload"
// @Success 201 {object} models.BuildSummary "Build Summary"
// @Failure 400 {object} map[string]string "Invalid Payload"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions [post]
func (h *Handler) HandleIngest(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	summary, err := h.service.Ingest(c.Context(), c.Body(), "")
	if err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Payload ingest failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(summary)
}

type importRequest struct {
	Object string `json:"object"`
}

// HandleImport ingests a payload object from the storage bucket.
// @Summary Import Extraction Payload
// @Description Fetches a payload object from the storage bucket and ingests it.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body importRequest true "Object key"
// @Success 201 {object} models.BuildSummary "Build Summary"
// @Failure 400 {object} map[string]string "Invalid Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions/import [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req importRequest
	if err := c.BodyParser(&req); err != nil || req.Object == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "object key required"})
	}

	summary, err := h.service.IngestObject(c.Context(), req.Object)
	if err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Payload import failed", zap.String("object", req.Object), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(summary)
}

// HandleListSessions lists extraction sessions.
// @Summary List Sessions
// @Description Lists extraction sessions, optionally filtered by dealer code and status.
// @Tags sessions
// @Produce json
// @Param dealer query string false "Dealer code"
// @Param status query string false "Session status"
// @Success 200 {array} models.ExtractionSession "Sessions"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions [get]
func (h *Handler) HandleListSessions(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	sessions, err := h.service.ListSessions(c.Context(),
		c.Query("dealer"), models.SessionStatus(c.Query("status")))
	if err != nil {
		l.Error("Session listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(sessions)
}

// HandleGetSession returns one session.
// @Summary Get Session
// @Description Returns one extraction session with its counters.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ExtractionSession "Session"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions/{id} [get]
func (h *Handler) HandleGetSession(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	session, err := h.service.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Session lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(session)
}

// HandleListChanges lists a session's change records for review.
// @Summary List Changes
// @Description Lists a session's change records, optionally filtered by status and type.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param status query string false "Change status"
// @Param type query string false "Change type"
// @Success 200 {array} models.ChangeRecord "Changes"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions/{id}/changes [get]
func (h *Handler) HandleListChanges(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	changes, err := h.service.ListChanges(c.Context(), c.Params("id"),
		models.ChangeStatus(c.Query("status")), models.ChangeType(c.Query("type")))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Change listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(changes)
}

type applyRequest struct {
	ChangeIDs []string `json:"change_ids"`
	Actor     string   `json:"actor"`
}

// HandleApply applies the selected changes of a session.
// @Summary Apply Selected Changes
// @Description Sweeps the selected pending changes and applies them to inventory. Unselected pending changes are discarded.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body applyRequest true "Selected change ids and acting operator"
// @Success 200 {object} models.ApplySummary "Apply Summary"
// @Failure 400 {object} map[string]string "Invalid Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions/{id}/apply [post]
func (h *Handler) HandleApply(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Actor == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "actor required"})
	}

	summary, err := h.service.Apply(c.Context(), c.Params("id"), req.ChangeIDs, req.Actor)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		var fatal *apply.FatalError
		if errors.As(err, &fatal) {
			l.Error("Apply aborted", zap.String("session_id", c.Params("id")), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(summary)
		}
		l.Error("Apply failed", zap.String("session_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(summary)
}

type rejectRequest struct {
	Actor string `json:"actor"`
}

// HandleReject rejects one pending change.
// @Summary Reject Change
// @Description Marks a pending change rejected so it is never swept into an apply.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param changeID path string true "Change ID"
// @Param request body rejectRequest false "Acting operator"
// @Success 204 "Rejected"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions/{id}/changes/{changeID}/reject [post]
func (h *Handler) HandleReject(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req rejectRequest
	_ = c.BodyParser(&req)

	err := h.service.Reject(c.Context(), c.Params("id"), c.Params("changeID"), req.Actor)
	if err != nil {
		if errors.Is(err, ErrChangeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Change rejection failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
