package handlers

import (
	"errors"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"geovisor-service/internal/ingest"
	"geovisor-service/internal/models"
	"geovisor-service/internal/services"
)

// maxUploadBytes bounds geometry uploads. Zipped shapefiles of a single
// plantation run well under this.
const maxUploadBytes = 10 << 20

type IngestHandler struct {
	sessions *services.SessionManager
	ingestor *ingest.Ingestor
}

func NewIngestHandler(sessions *services.SessionManager, ingestor *ingest.Ingestor) *IngestHandler {
	return &IngestHandler{sessions: sessions, ingestor: ingestor}
}

func (h *IngestHandler) RegisterRoutes(app *fiber.App) {
	gr := app.Group("geovisor/protected/api/v2")

	gr.Post("/sessions/:id/geometry", h.UploadGeometry)
}

// UploadGeometry imports a geometry file into the session. The polygon
// becomes the session's map-mode area; when the reverse lookup resolves a
// locality the whole selection path is set in one step, otherwise the
// caller is told to pick one manually.
func (h *IngestHandler) UploadGeometry(c fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return serviceError(err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "a geometry file is required")
	}
	if fh.Size > maxUploadBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "geometry file exceeds the 10MB limit")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to open uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to read uploaded file")
	}

	result, err := h.ingestor.Ingest(c.Context(), fh.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnsupportedFormat):
			return fiber.NewError(fiber.StatusBadRequest, "unsupported file format, use GeoJSON, KML or a zipped Shapefile")
		case errors.Is(err, ingest.ErrNoGeometryFound):
			return fiber.NewError(fiber.StatusBadRequest, "no polygon geometry found in the file")
		default:
			slog.Error("geometry import failed", "file", fh.Filename, "error", err)
			return fiber.NewError(fiber.StatusBadRequest, "could not parse the geometry file")
		}
	}

	poly, err := result.Polygon.Polygon()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not parse the geometry file")
	}
	_ = s.Machine.SetInputMode(models.ModeMap)
	// Adoption finalizes the polygon in the capture engine, whose event
	// feeds the selection's map-mode area.
	if err := s.Engine.AdoptPolygon(poly); err != nil {
		return serviceError(err)
	}
	if result.Locality != nil {
		s.Machine.SetFullPath(c.Context(), *result.Locality)
	}

	return c.JSON(fiber.Map{
		"import":    result,
		"selection": s.Machine.Snapshot(),
	})
}
