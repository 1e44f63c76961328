package domain

import (
	"fmt"
	"strings"
)

const (
	metersPerFoot    = 0.3048
	mmPerInch        = 25.4
	mpsPerMPH        = 0.44704
	mpsPerKnot       = 0.514444
	kmhPerMPH        = 1.609344
	zeroCelsiusInK   = 273.15
	paPerHectopascal = 100.0
)

func KelvinToCelsius(k float64) float64 { return k - zeroCelsiusInK }

func CelsiusToKelvin(c float64) float64 { return c + zeroCelsiusInK }

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func KelvinToFahrenheit(k float64) float64 { return CelsiusToFahrenheit(KelvinToCelsius(k)) }

func MPSToMPH(v float64) float64 { return v / mpsPerMPH }

func MPSToKnots(v float64) float64 { return v / mpsPerKnot }

func KnotsToMPH(v float64) float64 { return v * mpsPerKnot / mpsPerMPH }

func KMHToMPH(v float64) float64 { return v / kmhPerMPH }

func MetersToFeet(v float64) float64 { return v / metersPerFoot }

func MillimetersToInches(v float64) float64 { return v / mmPerInch }

// KgM2ToInches converts liquid water depth in kg/m^2 (equivalent to mm) to inches.
func KgM2ToInches(v float64) float64 { return v / mmPerInch }

func PascalsToHectopascals(v float64) float64 { return v / paPerHectopascal }

// Conversion describes a named unit conversion applied to a gridded field.
type Conversion struct {
	Name  string
	Units string // display units after conversion
	Fn    func(float64) float64
}

var conversions = map[string]Conversion{
	"k_to_f":     {Name: "k_to_f", Units: "°F", Fn: KelvinToFahrenheit},
	"k_to_c":     {Name: "k_to_c", Units: "°C", Fn: KelvinToCelsius},
	"c_to_f":     {Name: "c_to_f", Units: "°F", Fn: CelsiusToFahrenheit},
	"mps_to_mph": {Name: "mps_to_mph", Units: "mph", Fn: MPSToMPH},
	"mps_to_kt":  {Name: "mps_to_kt", Units: "kt", Fn: MPSToKnots},
	"kmh_to_mph": {Name: "kmh_to_mph", Units: "mph", Fn: KMHToMPH},
	"m_to_ft":    {Name: "m_to_ft", Units: "ft", Fn: MetersToFeet},
	"mm_to_in":   {Name: "mm_to_in", Units: "in", Fn: MillimetersToInches},
	"kgm2_to_in": {Name: "kgm2_to_in", Units: "in", Fn: KgM2ToInches},
	"pa_to_hpa":  {Name: "pa_to_hpa", Units: "hPa", Fn: PascalsToHectopascals},
}

// LookupConversion returns the named conversion. The empty name is the identity.
func LookupConversion(name string) (Conversion, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Conversion{Fn: func(v float64) float64 { return v }}, nil
	}
	c, ok := conversions[name]
	if !ok {
		return Conversion{}, fmt.Errorf("%w: %q", ErrUnknownConversion, name)
	}
	return c, nil
}

// Convert applies the named conversion to a single value.
func Convert(name string, v float64) (float64, error) {
	c, err := LookupConversion(name)
	if err != nil {
		return 0, err
	}
	return c.Fn(v), nil
}

// FromWMOUnit converts an NWS API value tagged with a WMO unit code into the
// display units used on meteograms and returns the display unit label.
// Unrecognised codes pass the value through with the code's suffix as label.
func FromWMOUnit(uom string, v float64) (float64, string) {
	switch uom {
	case "wmoUnit:degC":
		return CelsiusToFahrenheit(v), "°F"
	case "wmoUnit:degF":
		return v, "°F"
	case "wmoUnit:K":
		return KelvinToFahrenheit(v), "°F"
	case "wmoUnit:km_h-1":
		return KMHToMPH(v), "mph"
	case "wmoUnit:m_s-1":
		return MPSToMPH(v), "mph"
	case "wmoUnit:kt":
		return KnotsToMPH(v), "mph"
	case "wmoUnit:percent":
		return v, "%"
	case "wmoUnit:mm":
		return MillimetersToInches(v), "in"
	case "wmoUnit:m":
		return MetersToFeet(v), "ft"
	}
	label := uom
	if i := strings.Index(uom, ":"); i >= 0 {
		label = uom[i+1:]
	}
	return v, label
}
