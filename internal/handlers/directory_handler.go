package handlers

import (
	"github.com/gofiber/fiber/v3"

	"geovisor-service/internal/boundary"
	"geovisor-service/internal/services"
)

// DirectoryHandler serves the pick-lists that drive the cascading
// selection, plus a stateless boundary view for callers that manage their
// own selection.
type DirectoryHandler struct {
	localities *services.LocalityDirectory
	crops      *services.CropDirectory
	renderer   *boundary.Renderer
}

func NewDirectoryHandler(localities *services.LocalityDirectory, crops *services.CropDirectory, renderer *boundary.Renderer) *DirectoryHandler {
	return &DirectoryHandler{localities: localities, crops: crops, renderer: renderer}
}

func (h *DirectoryHandler) RegisterRoutes(app *fiber.App) {
	publicGr := app.Group("geovisor/public/api/v2")

	publicGr.Get("/regions", h.ListRegions)
	publicGr.Get("/regions/:region/subregions", h.ListSubRegions)
	publicGr.Get("/regions/:region/subregions/:subregion/localities", h.ListLocalities)
	publicGr.Get("/localities/:code", h.GetLocality)
	publicGr.Get("/localities/:code/crops", h.ListCropsForLocality)
	publicGr.Get("/crops", h.ListCrops)
	publicGr.Get("/boundaries/view", h.BoundaryView)
}

func (h *DirectoryHandler) ListRegions(c fiber.Ctx) error {
	regions, err := h.localities.Regions(c.Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(regions)
}

func (h *DirectoryHandler) ListSubRegions(c fiber.Ctx) error {
	subs, err := h.localities.SubRegions(c.Context(), c.Params("region"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(subs)
}

func (h *DirectoryHandler) ListLocalities(c fiber.Ctx) error {
	locs, err := h.localities.Localities(c.Context(), c.Params("region"), c.Params("subregion"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(locs)
}

func (h *DirectoryHandler) GetLocality(c fiber.Ctx) error {
	loc, err := h.localities.ByCode(c.Context(), c.Params("code"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(loc)
}

func (h *DirectoryHandler) ListCropsForLocality(c fiber.Ctx) error {
	crops, err := h.crops.List(c.Context(), c.Params("code"))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(crops)
}

func (h *DirectoryHandler) ListCrops(c fiber.Ctx) error {
	crops, err := h.crops.List(c.Context(), "")
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(crops)
}

// BoundaryView plans the boundary layer for an arbitrary selection path
// given as query parameters. No features matched is 204, keep the current
// view.
func (h *DirectoryHandler) BoundaryView(c fiber.Ctx) error {
	plan, err := h.renderer.Plan(c.Context(),
		c.Query("region"),
		c.Query("sub_region"),
		c.Query("locality"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	if plan == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(plan)
}
