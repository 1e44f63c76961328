// Package domain models the meteorological data and derived quantities that
// the plotting procedures draw.
//
// # Data Sources
//
// Three kinds of input reach this package:
//
//	Gridded fields   numerical model output and NDFD grids, delivered as NetCDF
//	                 (NDFD GRIB2 is converted upstream, e.g. `wgrib2 -netcdf`).
//	Point forecasts  NWS API gridpoint time series (api.weather.gov), values
//	                 tagged with WMO unit codes such as "wmoUnit:degC".
//	Soundings        University of Wyoming upper-air TEXT:LIST tables.
//
// # Conventions
//
// Pressure is in hectopascals, temperature and dewpoint in degrees Celsius
// unless a function name says otherwise (the K suffix marks Kelvin), wind speed
// in knots for soundings and mph for maps and meteograms. Missing values are
// NaN end to end; every conversion and statistic here preserves NaN.
//
// Longitudes are normalised to -180..180. Model grids published on 0..360 are
// wrapped when a Field is subset to a region.
//
// # Thermodynamics
//
// Saturation vapour pressure and LCL temperature follow Bolton (1980). Moist
// adiabats integrate
//
//	dT/dp = (Rd*T + Lv*rs) / (p * (Cp + Lv^2*rs*eps/(Rd*T^2)))
//
// with fixed-size RK4 steps. CAPE and CIN integrate Rd*(Tp-Te) over ln p.
//
// # Empirical Orthogonal Functions
//
// EOFs are the right singular vectors of the (optionally latitude-weighted)
// anomaly matrix whose rows are samples (ensemble members or time steps) and
// whose columns are grid points. Each mode is sign-normalised so that its
// largest-magnitude loading is positive, which makes repeated runs produce
// identical figures.
//
// # Output Paths
//
// Every image is written below
//
//	<root>/<model>/<region>/<reference system>/<parameter>/
//
// and each plotting call clears that directory before writing, so a
// directory only ever holds the products of the most recent run.
package domain
