package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"geovisor-service/internal/boundary"
	"geovisor-service/internal/models"
	"geovisor-service/internal/services"
)

type SessionHandler struct {
	sessions   *services.SessionManager
	localities *services.LocalityDirectory
	crops      *services.CropDirectory
	costClient *services.CostClient
	renderer   *boundary.Renderer
}

func NewSessionHandler(
	sessions *services.SessionManager,
	localities *services.LocalityDirectory,
	crops *services.CropDirectory,
	costClient *services.CostClient,
	renderer *boundary.Renderer,
) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		localities: localities,
		crops:      crops,
		costClient: costClient,
		renderer:   renderer,
	}
}

func (h *SessionHandler) RegisterRoutes(app *fiber.App) {
	gr := app.Group("geovisor/protected/api/v2")

	gr.Post("/sessions", h.CreateSession)
	gr.Get("/sessions/:id", h.GetSession)
	gr.Delete("/sessions/:id", h.DeleteSession)
	gr.Put("/sessions/:id/selection", h.UpdateSelection)
	gr.Put("/sessions/:id/config", h.UpdateConfig)
	gr.Put("/sessions/:id/services", h.SetServices)
	gr.Post("/sessions/:id/reset", h.ResetSession)
	gr.Get("/sessions/:id/view", h.ViewPlan)
	gr.Post("/sessions/:id/calculate", h.Calculate)
}

func (h *SessionHandler) CreateSession(c fiber.Ctx) error {
	s := h.sessions.Create()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": s.ID,
		"selection":  s.Machine.Snapshot(),
	})
}

func (h *SessionHandler) GetSession(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{
		"session_id":    s.ID,
		"selection":     s.Machine.Snapshot(),
		"capture_state": s.Engine.State(),
	})
}

func (h *SessionHandler) DeleteSession(c fiber.Ctx) error {
	if _, err := h.sessions.Get(c.Params("id")); err != nil {
		return serviceError(err)
	}
	h.sessions.Delete(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateSelection applies the non-nil fields of the request in cascade
// order, so one call can both narrow the path and pick a crop.
func (h *SessionHandler) UpdateSelection(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	var req models.SelectionRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Region != nil {
		s.Machine.SetRegion(*req.Region)
	}
	if req.SubRegion != nil {
		if err := s.Machine.SetSubRegion(*req.SubRegion); err != nil {
			return serviceError(err)
		}
	}
	if req.LocalityCode != nil {
		loc, err := h.localities.ByCode(c.Context(), *req.LocalityCode)
		if err != nil {
			return serviceError(err)
		}
		if err := s.Machine.SetLocality(c.Context(), *loc); err != nil {
			return serviceError(err)
		}
	}
	if req.CropID != nil {
		crop, err := h.crops.ByID(c.Context(), *req.CropID)
		if err != nil {
			return serviceError(err)
		}
		s.Machine.SetCrop(*crop)
	}
	if req.InputMode != nil {
		if err := s.Machine.SetInputMode(models.InputMode(*req.InputMode)); err != nil {
			return serviceError(err)
		}
	}
	if req.ManualArea != nil {
		if err := s.Machine.SetManualArea(*req.ManualArea); err != nil {
			return serviceError(err)
		}
	}

	return c.JSON(s.Machine.Snapshot())
}

func (h *SessionHandler) UpdateConfig(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	var cfg models.PlantingConfig
	if err := c.Bind().Body(&cfg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.Machine.UpdateConfig(cfg); err != nil {
		return serviceError(err)
	}
	return c.JSON(s.Machine.Snapshot())
}

func (h *SessionHandler) SetServices(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	var req struct {
		Included bool `json:"included"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	s.Machine.SetServicesIncluded(req.Included)
	return c.JSON(s.Machine.Snapshot())
}

func (h *SessionHandler) ResetSession(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	s.Engine.Reset()
	s.Machine.Reset()
	return c.JSON(s.Machine.Snapshot())
}

// ViewPlan renders the boundary layer for the session's current selection
// path. A selection matching no boundary keeps the previous view, conveyed
// as 204.
func (h *SessionHandler) ViewPlan(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	region, subRegion, locality := s.Machine.Path()
	plan, err := h.renderer.Plan(c.Context(), region, subRegion, locality)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	if plan == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(plan)
}

func (h *SessionHandler) Calculate(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	payload, err := s.Machine.Payload()
	if err != nil {
		return serviceError(err)
	}
	if poly, ok := s.Engine.Polygon(); ok {
		if boundaryWKT, err := models.NewGeoJSONPolygon(poly).WKT(); err == nil {
			payload.BoundaryWKT = boundaryWKT
		}
	}

	result, err := h.costClient.Calculate(c.Context(), payload)
	if err != nil {
		slog.Error("cost calculation failed", "session_id", s.ID, "error", err)
		return serviceError(err)
	}
	return c.JSON(result)
}
