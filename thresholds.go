package repcheck

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// ErrInvalidThresholds is returned when a Thresholds value fails validation.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds holds the grading policy. The defaults were tuned on push-up and
// pull-up recordings; the bench press, curl and crunch values are provisional.
type Thresholds struct {
	// Push-ups: median hip-shoulder-elbow angle above PushupFlareMaxDeg is
	// flared. Per-side angles at or below PushupFlareMinDeg are discarded as
	// degenerate.
	PushupFlareMaxDeg float64 `toml:"pushup_flare_max_deg" json:"pushup_flare_max_deg"`
	PushupFlareMinDeg float64 `toml:"pushup_flare_min_deg" json:"pushup_flare_min_deg"`

	BenchDepthMinDeg float64 `toml:"bench_depth_min_deg" json:"bench_depth_min_deg"`
	BenchDepthMaxDeg float64 `toml:"bench_depth_max_deg" json:"bench_depth_max_deg"`
	BenchLockoutDeg  float64 `toml:"bench_lockout_deg" json:"bench_lockout_deg"`

	CurlMinROMDeg         float64 `toml:"curl_min_rom_deg" json:"curl_min_rom_deg"`
	CurlMaxUpperArmStdDeg float64 `toml:"curl_max_upper_arm_std_deg" json:"curl_max_upper_arm_std_deg"`

	CrunchLiftMinDeg float64 `toml:"crunch_lift_min_deg" json:"crunch_lift_min_deg"`
	CrunchLiftMaxDeg float64 `toml:"crunch_lift_max_deg" json:"crunch_lift_max_deg"`
	CrunchNeckMaxPx  float64 `toml:"crunch_neck_max_px" json:"crunch_neck_max_px"`
}

// DefaultThresholds returns the stock grading policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PushupFlareMaxDeg:     75,
		PushupFlareMinDeg:     10,
		BenchDepthMinDeg:      70,
		BenchDepthMaxDeg:      110,
		BenchLockoutDeg:       160,
		CurlMinROMDeg:         80,
		CurlMaxUpperArmStdDeg: 12,
		CrunchLiftMinDeg:      20,
		CrunchLiftMaxDeg:      55,
		CrunchNeckMaxPx:       60,
	}
}

// Validate checks that every threshold is usable.
func (t Thresholds) Validate() error {
	angles := []struct {
		name  string
		value float64
	}{
		{"pushup_flare_max_deg", t.PushupFlareMaxDeg},
		{"bench_depth_min_deg", t.BenchDepthMinDeg},
		{"bench_depth_max_deg", t.BenchDepthMaxDeg},
		{"bench_lockout_deg", t.BenchLockoutDeg},
		{"curl_min_rom_deg", t.CurlMinROMDeg},
		{"crunch_lift_max_deg", t.CrunchLiftMaxDeg},
	}
	for _, a := range angles {
		if !isFinite(a.value) || a.value <= 0 || a.value >= 180 {
			return fmt.Errorf("%w: %s must be in (0, 180), got %v", ErrInvalidThresholds, a.name, a.value)
		}
	}
	if t.PushupFlareMinDeg < 0 || t.PushupFlareMinDeg >= t.PushupFlareMaxDeg {
		return fmt.Errorf("%w: pushup_flare_min_deg must be in [0, pushup_flare_max_deg)", ErrInvalidThresholds)
	}
	if t.BenchDepthMinDeg >= t.BenchDepthMaxDeg {
		return fmt.Errorf("%w: bench depth range is empty (%v >= %v)", ErrInvalidThresholds, t.BenchDepthMinDeg, t.BenchDepthMaxDeg)
	}
	if t.CrunchLiftMinDeg < 0 || t.CrunchLiftMinDeg >= t.CrunchLiftMaxDeg {
		return fmt.Errorf("%w: crunch lift range is empty (%v >= %v)", ErrInvalidThresholds, t.CrunchLiftMinDeg, t.CrunchLiftMaxDeg)
	}
	if t.CurlMaxUpperArmStdDeg <= 0 {
		return fmt.Errorf("%w: curl_max_upper_arm_std_deg must be positive", ErrInvalidThresholds)
	}
	if t.CrunchNeckMaxPx <= 0 {
		return fmt.Errorf("%w: crunch_neck_max_px must be positive", ErrInvalidThresholds)
	}
	return nil
}

// LoadThresholds reads a TOML file on top of the defaults, so a file only
// needs the keys it overrides.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return Thresholds{}, fmt.Errorf("decode thresholds file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}
