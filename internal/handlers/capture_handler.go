package handlers

import (
	"github.com/gofiber/fiber/v3"

	"geovisor-service/internal/models"
	"geovisor-service/internal/services"
)

// CaptureHandler exposes the polygon draw gestures of a session.
type CaptureHandler struct {
	sessions *services.SessionManager
}

func NewCaptureHandler(sessions *services.SessionManager) *CaptureHandler {
	return &CaptureHandler{sessions: sessions}
}

func (h *CaptureHandler) RegisterRoutes(app *fiber.App) {
	gr := app.Group("geovisor/protected/api/v2")

	gr.Get("/sessions/:id/draw", h.GetDrawing)
	gr.Post("/sessions/:id/draw/start", h.StartDraw)
	gr.Post("/sessions/:id/draw/vertices", h.AddVertex)
	gr.Post("/sessions/:id/draw/undo", h.UndoVertex)
	gr.Post("/sessions/:id/draw/finish", h.FinishDraw)
	gr.Delete("/sessions/:id/draw", h.DeleteDrawing)
}

func (h *CaptureHandler) GetDrawing(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	resp := fiber.Map{
		"state":        s.Engine.State(),
		"vertex_count": s.Engine.VertexCount(),
	}
	if label := s.Engine.MeasurementLabel(); label != "" {
		resp["label"] = label
	}
	if poly, ok := s.Engine.Polygon(); ok {
		resp["polygon"] = models.NewGeoJSONPolygon(poly)
	}
	if area, ok := s.Engine.AreaHectares(); ok {
		resp["area_hectares"] = area
	}
	return c.JSON(resp)
}

func (h *CaptureHandler) StartDraw(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	s.Engine.StartDraw()
	return c.JSON(fiber.Map{"state": s.Engine.State()})
}

func (h *CaptureHandler) AddVertex(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	var req models.VertexRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.Engine.AddVertex(models.Point{Lon: req.Lon, Lat: req.Lat}); err != nil {
		return serviceError(err)
	}
	resp := fiber.Map{
		"state":        s.Engine.State(),
		"vertex_count": s.Engine.VertexCount(),
	}
	if label := s.Engine.MeasurementLabel(); label != "" {
		resp["label"] = label
	}
	return c.JSON(resp)
}

func (h *CaptureHandler) UndoVertex(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	if err := s.Engine.UndoLastVertex(); err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{
		"state":        s.Engine.State(),
		"vertex_count": s.Engine.VertexCount(),
	})
}

func (h *CaptureHandler) FinishDraw(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	if err := s.Engine.Finish(); err != nil {
		return serviceError(err)
	}

	resp := fiber.Map{"state": s.Engine.State()}
	if poly, ok := s.Engine.Polygon(); ok {
		resp["polygon"] = models.NewGeoJSONPolygon(poly)
	}
	if area, ok := s.Engine.AreaHectares(); ok {
		resp["area_hectares"] = area
	}
	return c.JSON(resp)
}

func (h *CaptureHandler) DeleteDrawing(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}
	if err := s.Engine.Delete(); err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"state": s.Engine.State()})
}
