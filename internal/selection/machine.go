// Package selection holds the cascading region → sub-region → locality →
// crop selection and the location-derived planting defaults.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"geovisor-service/internal/models"
)

// CropSource lists the crops offered for a locality. An empty code means
// the unscoped catalog.
type CropSource interface {
	List(ctx context.Context, localityCode string) ([]models.Crop, error)
}

// servicesAreaThreshold is the hectare count at which third-party services
// (machinery, transport) become part of the default cost profile.
const servicesAreaThreshold = 10.0

// Machine is the cascading selection state. All mutation is serialized by
// the mutex; directory fetches run inside the calling request and are
// guarded against stale completions by a per-field sequence number, so a
// slow response to an older locality can never clobber a newer one.
type Machine struct {
	mu sync.Mutex

	region    string
	subRegion string
	locality  *models.Locality
	crop      *models.Crop
	crops     []models.Crop

	config models.PlantingConfig

	inputMode   models.InputMode
	manualArea  float64
	polygonArea *float64

	servicesIncluded bool

	cropSource CropSource
	cropSeq    uint64
}

func NewMachine(cropSource CropSource) *Machine {
	return &Machine{
		cropSource: cropSource,
		inputMode:  models.ModeMap,
		config: models.PlantingConfig{
			Sistema:     models.SystemSquare,
			RowDistance: 3,
			YearStart:   1,
			YearEnd:     8,
		},
	}
}

// Snapshot is the read model handed to the presentation layer.
type Snapshot struct {
	Region           string                `json:"region"`
	SubRegion        string                `json:"sub_region"`
	Locality         *models.Locality      `json:"locality,omitempty"`
	Crop             *models.Crop          `json:"crop,omitempty"`
	OfferedCrops     []models.Crop         `json:"offered_crops"`
	Config           models.PlantingConfig `json:"config"`
	InputMode        models.InputMode      `json:"input_mode"`
	ManualArea       float64               `json:"manual_area"`
	PolygonArea      *float64              `json:"polygon_area,omitempty"`
	ServicesIncluded bool                  `json:"services_included"`
	PlantsPerHectare float64               `json:"plants_per_hectare,omitempty"`
	SlopeFactor      float64               `json:"slope_factor,omitempty"`
	Ready            bool                  `json:"ready"`
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Region:           m.region,
		SubRegion:        m.subRegion,
		Locality:         m.locality,
		Crop:             m.crop,
		OfferedCrops:     m.crops,
		Config:           m.config,
		InputMode:        m.inputMode,
		ManualArea:       m.manualArea,
		PolygonArea:      m.polygonArea,
		ServicesIncluded: m.servicesIncluded,
		Ready:            m.readyLocked(),
	}
	cfg := m.config
	cfg.Normalize()
	if density, err := cfg.PlantsPerHectare(); err == nil {
		snap.PlantsPerHectare = density
	}
	if m.locality != nil {
		snap.SlopeFactor = m.locality.SlopeFactor()
	}
	return snap
}

// Path returns the current (region, sub-region, locality-name) triple for
// the boundary renderer.
func (m *Machine) Path() (region, subRegion, locality string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locality != nil {
		locality = m.locality.Name
	}
	return m.region, m.subRegion, locality
}

// SetRegion starts the cascade over: the narrower levels are cleared.
func (m *Machine) SetRegion(region string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.region = region
	m.subRegion = ""
	m.locality = nil
	m.cropSeq++ // invalidate any in-flight crop fetch
}

// SetSubRegion clears the locality. The path stays prefix-closed: a
// sub-region without a region is rejected.
func (m *Machine) SetSubRegion(subRegion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.region == "" {
		return fmt.Errorf("badrequest: select a region before a sub-region")
	}
	m.subRegion = subRegion
	m.locality = nil
	m.cropSeq++
	return nil
}

// SetLocality applies the locality's smart defaults and refreshes the
// offered crop set. The defaults overwrite labor cost, seedling cost and
// slope unconditionally on every locality change; a fetch failure degrades
// to the built-in crop list instead of dead-ending the form.
func (m *Machine) SetLocality(ctx context.Context, loc models.Locality) error {
	m.mu.Lock()
	if m.region != loc.Region || m.subRegion != loc.SubRegion {
		m.mu.Unlock()
		return fmt.Errorf("badrequest: locality %s does not belong to %s/%s", loc.Name, m.region, m.subRegion)
	}
	m.applyLocalityLocked(loc)
	seq := m.cropSeq
	m.mu.Unlock()

	m.refreshCrops(ctx, loc.Code, seq)
	return nil
}

// SetFullPath sets region, sub-region and locality atomically. Used by the
// geometry import flow; the cascade-clearing rule is suppressed for this
// single update and the input mode switches to the map polygon.
func (m *Machine) SetFullPath(ctx context.Context, loc models.Locality) {
	m.mu.Lock()
	m.region = loc.Region
	m.subRegion = loc.SubRegion
	m.applyLocalityLocked(loc)
	m.inputMode = models.ModeMap
	m.recomputeServicesLocked()
	seq := m.cropSeq
	m.mu.Unlock()

	m.refreshCrops(ctx, loc.Code, seq)
}

func (m *Machine) applyLocalityLocked(loc models.Locality) {
	l := loc
	m.locality = &l
	m.config.LaborCost = loc.SuggestedLaborCost
	m.config.SeedlingCost = loc.SuggestedSeedlingCost
	m.config.SlopePercent = loc.EstimatedSlopePercent
	m.cropSeq++
}

func (m *Machine) refreshCrops(ctx context.Context, code string, seq uint64) {
	crops, err := m.cropSource.List(ctx, code)
	if err != nil {
		slog.Warn("crop directory fetch failed, using fallback list", "locality", code, "error", err)
		crops = models.FallbackCrops()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.cropSeq {
		// A newer locality selection superseded this fetch.
		return
	}
	m.crops = crops
}

// SetCrop picks the species and reseeds the year range from its rotation.
func (m *Machine) SetCrop(crop models.Crop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := crop
	m.crop = &c
	m.config.YearStart = 1
	if crop.RotationYears > 0 {
		m.config.YearEnd = crop.RotationYears
	}
}

// OfferedCrops returns the crop set scoped to the current locality.
func (m *Machine) OfferedCrops() []models.Crop {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crops
}

// SetInputMode switches which area source is authoritative. The other
// mode's cached value survives; only one feeds the final payload.
func (m *Machine) SetInputMode(mode models.InputMode) error {
	if mode != models.ModeMap && mode != models.ModeManual {
		return fmt.Errorf("badrequest: input_mode must be MAP or MANUAL")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
	m.recomputeServicesLocked()
	return nil
}

// SetManualArea records the user-typed hectare value. Hectares carry at
// most 2 decimal places everywhere, so free-typed precision is rounded
// half away from zero on entry.
func (m *Machine) SetManualArea(hectares float64) error {
	if hectares < 0 {
		return fmt.Errorf("badrequest: area cannot be negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manualArea = math.Round(hectares*100) / 100
	m.recomputeServicesLocked()
	return nil
}

// OnCaptureEvent is subscribed to the polygon capture engine. A finalized
// polygon sets the map-mode area; a cleared one removes it.
func (m *Machine) OnCaptureEvent(area *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polygonArea = area
	m.recomputeServicesLocked()
}

// SetServicesIncluded is the manual override. It holds only until the next
// area or mode change, when recomputeServicesLocked reapplies the
// threshold rule over it.
func (m *Machine) SetServicesIncluded(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servicesIncluded = v
}

func (m *Machine) recomputeServicesLocked() {
	area, ok := m.authoritativeAreaLocked()
	m.servicesIncluded = ok && area >= servicesAreaThreshold
}

// UpdateConfig replaces the user-tunable planting fields.
func (m *Machine) UpdateConfig(cfg models.PlantingConfig) error {
	cfg.Normalize()
	if !cfg.Sistema.Valid() {
		return fmt.Errorf("badrequest: sistema must be one of SQUARE, RECTANGULAR, TRIANGULAR")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	return nil
}

func (m *Machine) authoritativeAreaLocked() (float64, bool) {
	switch m.inputMode {
	case models.ModeMap:
		if m.polygonArea != nil {
			return *m.polygonArea, true
		}
	case models.ModeManual:
		if m.manualArea > 0 {
			return m.manualArea, true
		}
	}
	return 0, false
}

func (m *Machine) readyLocked() bool {
	if m.locality == nil || m.crop == nil {
		return false
	}
	_, ok := m.authoritativeAreaLocked()
	return ok
}

// Ready is the "ready to calculate" predicate.
func (m *Machine) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyLocked()
}

// DrawGate is the precondition the capture engine checks when a draw
// finishes: locality and crop must both be chosen so the polygon has an
// interpretable context.
func (m *Machine) DrawGate() func() bool {
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.locality != nil && m.crop != nil
	}
}

// Reset wipes the whole form: path, crop, areas and planting config.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.region = ""
	m.subRegion = ""
	m.locality = nil
	m.crop = nil
	m.crops = nil
	m.cropSeq++
	m.inputMode = models.ModeMap
	m.manualArea = 0
	m.polygonArea = nil
	m.servicesIncluded = false
	m.config = models.PlantingConfig{
		Sistema:     models.SystemSquare,
		RowDistance: 3,
		YearStart:   1,
		YearEnd:     8,
	}
}

// Payload assembles the cost-calculation request. Incomplete selections are
// validation errors and never reach the network layer.
func (m *Machine) Payload() (models.CalculationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locality == nil {
		return models.CalculationRequest{}, fmt.Errorf("badrequest: no locality selected")
	}
	if m.crop == nil {
		return models.CalculationRequest{}, fmt.Errorf("badrequest: no crop selected")
	}
	area, ok := m.authoritativeAreaLocked()
	if !ok || area <= 0 {
		return models.CalculationRequest{}, fmt.Errorf("badrequest: no plantation area defined")
	}
	if err := m.config.Validate(); err != nil {
		return models.CalculationRequest{}, err
	}

	cfg := m.config
	cfg.Normalize()
	return models.CalculationRequest{
		LocalityCode:     m.locality.Code,
		CropID:           m.crop.ID,
		Hectares:         area,
		YearStart:        cfg.YearStart,
		YearEnd:          cfg.YearEnd,
		ServicesIncluded: m.servicesIncluded,
		Sistema:          cfg.Sistema,
		RowDistance:      cfg.RowDistance,
		ColumnDistance:   cfg.ColumnDistance,
		LaborCost:        cfg.LaborCost,
		SeedlingCost:     cfg.SeedlingCost,
	}, nil
}
