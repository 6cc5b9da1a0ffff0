// Package risk implements the admission-control gate deciding whether new
// quotes may be submitted on a bar.
package risk

import (
	"math"

	"github.com/erain9/mmsim/config"
)

// equityPeakBaseline seeds the high-water mark before any equity is observed.
const equityPeakBaseline = 100.0

// Manager gates new order submission. It is purely advisory: it never
// cancels resting state or forces liquidation, and it never errors.
type Manager struct {
	cfg        config.Sim
	equityPeak float64
}

// NewManager creates a Manager with the equity peak at its fixed baseline.
func NewManager(cfg config.Sim) *Manager {
	return &Manager{
		cfg:        cfg,
		equityPeak: equityPeakBaseline,
	}
}

// EquityPeak returns the current equity high-water mark.
func (m *Manager) EquityPeak() float64 {
	return m.equityPeak
}

// AllowNewOrders reports whether new quotes may be submitted this bar.
// Checks run in order: peak update, volatility brake, inventory cap, and
// (after warm-up) drawdown stop. NaN volatility or equity leaves the
// corresponding clause non-blocking.
func (m *Manager) AllowNewOrders(inventory, rollingVol, equity float64, barIdx int) bool {
	if !math.IsNaN(equity) && equity > m.equityPeak {
		m.equityPeak = equity
	}

	if !math.IsNaN(rollingVol) && rollingVol > m.cfg.VolBrakeMult*1e-3 {
		return false
	}

	if math.Abs(inventory) >= m.cfg.InvCap {
		return false
	}

	if barIdx >= m.cfg.WarmupBars {
		if !math.IsNaN(equity) && equity < m.equityPeak*(1.0-m.cfg.DDStop) {
			return false
		}
	}

	return true
}
