package domain

import (
	"fmt"
	"math"
)

// Thermodynamic constants (SI).
const (
	Rd      = 287.04749          // dry-air gas constant, J/(kg K)
	Cp      = 1004.6662          // dry-air specific heat at constant pressure, J/(kg K)
	Lv      = 2.50084e6          // latent heat of vaporization, J/kg
	Epsilon = 0.6219569100577033 // Rd/Rv
	Kappa   = Rd / Cp

	moistStepHPa = 5.0
)

// SaturationVaporPressure returns saturation vapour pressure (hPa) over liquid
// water at temperature tC (°C).
func SaturationVaporPressure(tC float64) float64 {
	return 6.112 * math.Exp(17.67*tC/(tC+243.5))
}

// DewpointFromVaporPressure inverts SaturationVaporPressure. Non-positive
// vapour pressure has no dewpoint and yields NaN.
func DewpointFromVaporPressure(e float64) float64 {
	if !(e > 0) {
		return math.NaN()
	}
	val := math.Log(e / 6.112)
	return 243.5 * val / (17.67 - val)
}

// DewpointFromRH returns the dewpoint (°C) for temperature tC and relative humidity rh (%).
func DewpointFromRH(tC, rh float64) float64 {
	if !(rh > 0) {
		return math.NaN()
	}
	return DewpointFromVaporPressure(rh / 100 * SaturationVaporPressure(tC))
}

// RelativeHumidity returns relative humidity (%) from temperature and dewpoint (°C).
func RelativeHumidity(tC, tdC float64) float64 {
	return 100 * SaturationVaporPressure(tdC) / SaturationVaporPressure(tC)
}

// MixingRatio returns the mixing ratio (kg/kg) for partial pressure e and total pressure p (hPa).
func MixingRatio(e, p float64) float64 {
	return Epsilon * e / (p - e)
}

// SaturationMixingRatio returns the saturation mixing ratio (kg/kg) at p (hPa) and tC (°C).
func SaturationMixingRatio(p, tC float64) float64 {
	return MixingRatio(SaturationVaporPressure(tC), p)
}

// PotentialTemperature returns theta (K) for pressure p (hPa) and temperature tK (K).
func PotentialTemperature(p, tK float64) float64 {
	return tK * math.Pow(1000/p, Kappa)
}

// EquivalentPotentialTemperature returns theta-e (K) following Bolton (1980) eq. 39.
func EquivalentPotentialTemperature(p, tK, tdK float64) float64 {
	e := SaturationVaporPressure(KelvinToCelsius(tdK))
	r := MixingRatio(e, p)
	tL := lclTemperatureK(tK, tdK)
	thetaL := tK * math.Pow(1000/(p-e), Kappa) * math.Pow(tK/tL, 0.28*r)
	return thetaL * math.Exp(r*(1+0.448*r)*(3036/tL-1.78))
}

func lclTemperatureK(tK, tdK float64) float64 {
	return 1/(1/(tdK-56)+math.Log(tK/tdK)/800) + 56
}

// LCL returns the lifting condensation level pressure (hPa) and temperature (°C)
// for a parcel starting at p (hPa) with temperature tC and dewpoint tdC.
func LCL(p, tC, tdC float64) (pLCL, tLCL float64) {
	tK := CelsiusToKelvin(tC)
	tlK := lclTemperatureK(tK, CelsiusToKelvin(tdC))
	if tlK > tK {
		// Supersaturated input; the parcel is already at its LCL.
		return p, tC
	}
	return p * math.Pow(tlK/tK, 1/Kappa), KelvinToCelsius(tlK)
}

// DryLapse returns the temperature (K) at p of a parcel lifted dry-adiabatically
// from (p0, t0K).
func DryLapse(p, t0K, p0 float64) float64 {
	return t0K * math.Pow(p/p0, Kappa)
}

func moistGradient(p, tK float64) float64 {
	rs := SaturationMixingRatio(p, KelvinToCelsius(tK))
	return (Rd*tK + Lv*rs) / (Cp + Lv*Lv*rs*Epsilon/(Rd*tK*tK)) / p
}

// MoistLapse returns the temperature (K) at p of a saturated parcel moved
// pseudo-adiabatically from (p0, t0K). Works in both directions.
func MoistLapse(p, t0K, p0 float64) float64 {
	if p == p0 {
		return t0K
	}
	steps := int(math.Ceil(math.Abs(p-p0) / moistStepHPa))
	h := (p - p0) / float64(steps)
	t, pp := t0K, p0
	for range steps {
		k1 := moistGradient(pp, t)
		k2 := moistGradient(pp+h/2, t+h/2*k1)
		k3 := moistGradient(pp+h/2, t+h/2*k2)
		k4 := moistGradient(pp+h, t+h*k3)
		t += h / 6 * (k1 + 2*k2 + 2*k3 + k4)
		pp += h
	}
	return t
}

// ParcelProfile lifts a surface parcel through the given pressures (hPa,
// strictly decreasing, the first being the parcel's starting level) and returns
// its temperature (°C) at each level: dry-adiabatic to the LCL, moist above.
func ParcelProfile(pressures []float64, t0C, td0C float64) ([]float64, error) {
	if len(pressures) == 0 {
		return nil, fmt.Errorf("%w: no pressure levels", ErrInvalidSounding)
	}
	for i := 1; i < len(pressures); i++ {
		if !(pressures[i] < pressures[i-1]) {
			return nil, fmt.Errorf("%w: pressures must be strictly decreasing at level %d", ErrInvalidSounding, i)
		}
	}

	p0 := pressures[0]
	t0K := CelsiusToKelvin(t0C)
	pLCL, tLCL := LCL(p0, t0C, td0C)
	tLCLK := CelsiusToKelvin(tLCL)

	out := make([]float64, len(pressures))
	for i, p := range pressures {
		if p >= pLCL {
			out[i] = KelvinToCelsius(DryLapse(p, t0K, p0))
			continue
		}
		out[i] = KelvinToCelsius(MoistLapse(p, tLCLK, pLCL))
	}
	return out, nil
}

// CAPECIN integrates parcel buoyancy over ln p and returns convective
// available potential energy and convective inhibition (J/kg, CIN <= 0).
// CIN only accumulates negative area below the first positively buoyant layer.
func CAPECIN(pressures, envC, parcelC []float64) (cape, cin float64, err error) {
	if len(pressures) != len(envC) || len(pressures) != len(parcelC) {
		return 0, 0, fmt.Errorf("%w: profile lengths differ", ErrInvalidSounding)
	}
	seenPositive := false
	add := func(area float64) {
		switch {
		case area > 0:
			cape += area
			seenPositive = true
		case area < 0 && !seenPositive:
			cin += area
		}
	}

	for i := 0; i+1 < len(pressures); i++ {
		b0 := parcelC[i] - envC[i]
		b1 := parcelC[i+1] - envC[i+1]
		if math.IsNaN(b0) || math.IsNaN(b1) {
			continue
		}
		x0 := math.Log(pressures[i])
		x1 := math.Log(pressures[i+1])
		if (b0 > 0 && b1 < 0) || (b0 < 0 && b1 > 0) {
			f := b0 / (b0 - b1)
			xm := x0 + f*(x1-x0)
			add(Rd * b0 / 2 * (x0 - xm))
			add(Rd * b1 / 2 * (xm - x1))
			continue
		}
		add(Rd * (b0 + b1) / 2 * (x0 - x1))
	}
	return cape, cin, nil
}

// WindComponents returns the u and v components of a wind blowing from dirDeg
// (meteorological convention) at the given speed.
func WindComponents(speed, dirDeg float64) (u, v float64) {
	rad := dirDeg * math.Pi / 180
	return -speed * math.Sin(rad), -speed * math.Cos(rad)
}
