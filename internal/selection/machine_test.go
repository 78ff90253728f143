package selection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geovisor-service/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func testLocality() models.Locality {
	return models.Locality{
		Code:                  "021801",
		Name:                  "UCHIZA",
		Region:                "SAN MARTIN",
		SubRegion:             "TOCACHE",
		SuggestedLaborCost:    55,
		SuggestedSeedlingCost: 0.90,
		EstimatedSlopePercent: 22,
	}
}

func testCrop() models.Crop {
	return models.Crop{ID: 3, Name: "Capirona", BaseDensity: 1111, RotationYears: 12}
}

type stubCrops struct {
	mu    sync.Mutex
	lists map[string][]models.Crop
	err   error
	delay map[string]time.Duration
	calls []string
}

func (s *stubCrops) List(_ context.Context, code string) ([]models.Crop, error) {
	s.mu.Lock()
	s.calls = append(s.calls, code)
	delay := s.delay[code]
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.lists[code], nil
}

func machineWithLocality(t *testing.T, crops CropSource) *Machine {
	t.Helper()
	m := NewMachine(crops)
	loc := testLocality()
	m.SetRegion(loc.Region)
	require.NoError(t, m.SetSubRegion(loc.SubRegion))
	require.NoError(t, m.SetLocality(context.Background(), loc))
	return m
}

// ============================================================================
// TEST SUITE 1: CASCADE RULES
// ============================================================================

func TestSetRegion_ClearsNarrowerLevels(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})

	m.SetRegion("JUNIN")

	snap := m.Snapshot()
	assert.Equal(t, "JUNIN", snap.Region)
	assert.Empty(t, snap.SubRegion)
	assert.Nil(t, snap.Locality)
}

func TestSetSubRegion_RequiresRegionAndClearsLocality(t *testing.T) {
	m := NewMachine(&stubCrops{})

	assert.Error(t, m.SetSubRegion("TOCACHE"), "prefix-closed path")

	m.SetRegion("SAN MARTIN")
	require.NoError(t, m.SetSubRegion("TOCACHE"))
	require.NoError(t, m.SetLocality(context.Background(), testLocality()))
	require.NoError(t, m.SetSubRegion("MARISCAL CACERES"))

	assert.Nil(t, m.Snapshot().Locality)
}

func TestSetLocality_RejectsMismatchedParents(t *testing.T) {
	m := NewMachine(&stubCrops{})
	m.SetRegion("JUNIN")
	require.NoError(t, m.SetSubRegion("SATIPO"))

	err := m.SetLocality(context.Background(), testLocality())

	assert.Error(t, err)
	assert.Nil(t, m.Snapshot().Locality)
}

func TestSetFullPath_AtomicImportSuppressesCascade(t *testing.T) {
	m := NewMachine(&stubCrops{})
	require.NoError(t, m.SetInputMode(models.ModeManual))

	m.SetFullPath(context.Background(), testLocality())

	snap := m.Snapshot()
	assert.Equal(t, "SAN MARTIN", snap.Region)
	assert.Equal(t, "TOCACHE", snap.SubRegion)
	require.NotNil(t, snap.Locality)
	assert.Equal(t, "UCHIZA", snap.Locality.Name)
	assert.Equal(t, models.ModeMap, snap.InputMode, "import switches to map mode")
}

// ============================================================================
// TEST SUITE 2: SMART DEFAULTS & CROP FETCH
// ============================================================================

func TestSetLocality_OverwritesDefaultsUnconditionally(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})

	// User diverges from the suggestion...
	cfg := m.Snapshot().Config
	cfg.LaborCost = 120
	require.NoError(t, m.UpdateConfig(cfg))

	// ...then changes locality: the new suggestion wins.
	other := testLocality()
	other.Code = "021802"
	other.Name = "POLVORA"
	other.SuggestedLaborCost = 48
	require.NoError(t, m.SetLocality(context.Background(), other))

	snap := m.Snapshot()
	assert.Equal(t, 48.0, snap.Config.LaborCost)
	assert.Equal(t, 0.90, snap.Config.SeedlingCost)
	assert.Equal(t, 22, snap.Config.SlopePercent)
}

func TestSetLocality_FetchFailureFallsBackToBuiltinList(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{err: errors.New("network down")})

	assert.Equal(t, models.FallbackCrops(), m.OfferedCrops())
	assert.NotNil(t, m.Snapshot().Locality, "form stays usable offline")
}

func TestSetLocality_StaleResponseIsDropped(t *testing.T) {
	first := testLocality()
	second := testLocality()
	second.Code = "021802"
	second.Name = "POLVORA"

	crops := &stubCrops{
		lists: map[string][]models.Crop{
			first.Code:  {{ID: 1, Name: "Old offer"}},
			second.Code: {{ID: 2, Name: "New offer"}},
		},
		delay: map[string]time.Duration{first.Code: 50 * time.Millisecond},
	}

	m := NewMachine(crops)
	m.SetRegion(first.Region)
	require.NoError(t, m.SetSubRegion(first.SubRegion))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.SetLocality(context.Background(), first) // slow
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.SetLocality(context.Background(), second)) // fast, newer
	wg.Wait()

	offered := m.OfferedCrops()
	require.Len(t, offered, 1)
	assert.Equal(t, "New offer", offered[0].Name, "older fetch must not clobber the newer selection")
}

func TestSetCrop_ReseedsYearRangeFromRotation(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})

	m.SetCrop(testCrop())

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.Config.YearStart)
	assert.Equal(t, 12, snap.Config.YearEnd)
}

// ============================================================================
// TEST SUITE 3: SERVICES FLIP & READINESS
// ============================================================================

func TestServicesIncluded_FlipsAtThreshold(t *testing.T) {
	m := NewMachine(&stubCrops{})
	require.NoError(t, m.SetInputMode(models.ModeManual))

	require.NoError(t, m.SetManualArea(9.99))
	assert.False(t, m.Snapshot().ServicesIncluded)

	require.NoError(t, m.SetManualArea(10))
	assert.True(t, m.Snapshot().ServicesIncluded)

	require.NoError(t, m.SetManualArea(4))
	assert.False(t, m.Snapshot().ServicesIncluded)
}

func TestSetManualArea_RoundsToTwoDecimals(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})
	m.SetCrop(testCrop())
	require.NoError(t, m.SetInputMode(models.ModeManual))

	require.NoError(t, m.SetManualArea(10.123456))
	assert.Equal(t, 10.12, m.Snapshot().ManualArea)

	payload, err := m.Payload()
	require.NoError(t, err)
	assert.Equal(t, 10.12, payload.Hectares)

	// Half rounds away from zero.
	require.NoError(t, m.SetManualArea(2.005))
	assert.Equal(t, 2.01, m.Snapshot().ManualArea)
}

func TestServicesIncluded_PolygonAreaDrivesMapMode(t *testing.T) {
	m := NewMachine(&stubCrops{})

	area := 14.5
	m.OnCaptureEvent(&area)
	assert.True(t, m.Snapshot().ServicesIncluded)

	m.OnCaptureEvent(nil)
	assert.False(t, m.Snapshot().ServicesIncluded)
}

func TestServicesIncluded_ManualPinHoldsUntilNextAreaChange(t *testing.T) {
	m := NewMachine(&stubCrops{})
	require.NoError(t, m.SetInputMode(models.ModeManual))
	require.NoError(t, m.SetManualArea(25))

	m.SetServicesIncluded(false)
	assert.False(t, m.Snapshot().ServicesIncluded, "manual toggle wins for the current value")

	require.NoError(t, m.SetManualArea(26))
	assert.True(t, m.Snapshot().ServicesIncluded, "recompute fires on every area change")
}

func TestReady_RequiresLocalityCropAndArea(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})
	assert.False(t, m.Ready(), "no crop, no area yet")

	m.SetCrop(testCrop())
	assert.False(t, m.Ready(), "map mode without finalized polygon")

	area := 2.5
	m.OnCaptureEvent(&area)
	assert.True(t, m.Ready())

	require.NoError(t, m.SetInputMode(models.ModeManual))
	assert.False(t, m.Ready(), "manual mode with zero manual area")

	require.NoError(t, m.SetManualArea(1))
	assert.True(t, m.Ready())
}

func TestDrawGate_LocalityAndCropOnly(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})
	gate := m.DrawGate()

	assert.False(t, gate())
	m.SetCrop(testCrop())
	assert.True(t, gate(), "gate ignores area: the polygon is about to provide it")
}

// ============================================================================
// TEST SUITE 4: PAYLOAD & RESET
// ============================================================================

func TestPayload_AssemblesCalculationRequest(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})
	m.SetCrop(testCrop())
	area := 3.25
	m.OnCaptureEvent(&area)

	payload, err := m.Payload()
	require.NoError(t, err)

	assert.Equal(t, "021801", payload.LocalityCode)
	assert.Equal(t, int64(3), payload.CropID)
	assert.Equal(t, 3.25, payload.Hectares)
	assert.Equal(t, 55.0, payload.LaborCost)
	assert.Equal(t, models.SystemSquare, payload.Sistema)
	assert.Equal(t, payload.RowDistance, payload.ColumnDistance, "non-rectangular mirrors row distance")
	assert.Equal(t, 12, payload.YearEnd)
}

func TestPayload_IncompleteSelectionIsValidationError(t *testing.T) {
	m := NewMachine(&stubCrops{})

	_, err := m.Payload()
	assert.Error(t, err)

	m.SetFullPath(context.Background(), testLocality())
	_, err = m.Payload()
	assert.Error(t, err, "crop still missing")
}

func TestReset_ClearsEverything(t *testing.T) {
	m := machineWithLocality(t, &stubCrops{})
	m.SetCrop(testCrop())
	area := 8.0
	m.OnCaptureEvent(&area)

	m.Reset()

	snap := m.Snapshot()
	assert.Empty(t, snap.Region)
	assert.Nil(t, snap.Locality)
	assert.Nil(t, snap.Crop)
	assert.Nil(t, snap.PolygonArea)
	assert.False(t, snap.Ready)
	assert.Equal(t, models.ModeMap, snap.InputMode)
}
