package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Region is a named geographic bounding box in degrees.
type Region struct {
	Key   string
	Name  string
	West  float64
	East  float64
	South float64
	North float64
}

// CentralLon is the midpoint longitude, used as the projection meridian.
func (r Region) CentralLon() float64 { return (r.West + r.East) / 2 }

// CentralLat is the midpoint latitude, used as the projection origin.
func (r Region) CentralLat() float64 { return (r.South + r.North) / 2 }

// Contains reports whether a point lies within the box.
func (r Region) Contains(lat, lon float64) bool {
	lon = normalizeLon(lon)
	return lat >= r.South && lat <= r.North && lon >= r.West && lon <= r.East
}

// Custom reports whether the region was built from an explicit box.
func (r Region) Custom() bool { return strings.HasPrefix(r.Key, "custom:") }

func region(key, name string, w, e, s, n float64) Region {
	return Region{Key: key, Name: name, West: w, East: e, South: s, North: n}
}

var regions = map[string]Region{}

func init() {
	for _, r := range []Region{
		region("CONUS", "Continental United States", -125, -66.5, 24, 50),

		// Geographic Area Coordination Centers.
		region("OSCC", "Southern California (South Ops)", -122.1, -114, 32.4, 39),
		region("ONCC", "Northern California (North Ops)", -124.5, -119.9, 38, 42.1),
		region("GBCC", "Great Basin", -120, -109, 35, 45.6),
		region("SWCC", "Southwest", -114.9, -101, 31.2, 37.5),
		region("RMCC", "Rocky Mountain", -111.1, -94.6, 37, 46),
		region("NRCC", "Northern Rockies", -117.3, -96.5, 44, 49.1),
		region("NWCC", "Northwest", -124.8, -116.4, 41.9, 49.1),
		region("SACC", "Southern Area", -106.7, -75.4, 24.4, 39.6),
		region("EACC", "Eastern Area", -97.3, -66.9, 36, 49.4),
		region("AICC", "Alaska", -170, -130, 51, 71.5),

		region("AL", "Alabama", -88.5, -84.9, 30.1, 35),
		region("AK", "Alaska", -170, -130, 51, 71.5),
		region("AZ", "Arizona", -114.9, -109, 31.3, 37),
		region("AR", "Arkansas", -94.7, -89.6, 33, 36.5),
		region("CA", "California", -124.5, -114.1, 32.5, 42),
		region("CO", "Colorado", -109.1, -102, 37, 41),
		region("CT", "Connecticut", -73.8, -71.8, 40.9, 42.1),
		region("DE", "Delaware", -75.8, -75, 38.4, 39.9),
		region("FL", "Florida", -87.7, -80, 24.5, 31),
		region("GA", "Georgia", -85.6, -80.8, 30.3, 35),
		region("HI", "Hawaii", -160.3, -154.8, 18.9, 22.3),
		region("ID", "Idaho", -117.3, -111, 42, 49),
		region("IL", "Illinois", -91.6, -87, 36.9, 42.5),
		region("IN", "Indiana", -88.1, -84.8, 37.8, 41.8),
		region("IA", "Iowa", -96.7, -90.1, 40.4, 43.5),
		region("KS", "Kansas", -102.1, -94.6, 37, 40),
		region("KY", "Kentucky", -89.6, -81.9, 36.5, 39.2),
		region("LA", "Louisiana", -94.1, -88.8, 28.9, 33),
		region("ME", "Maine", -71.1, -66.9, 43, 47.5),
		region("MD", "Maryland", -79.5, -75, 37.9, 39.8),
		region("MA", "Massachusetts", -73.5, -69.9, 41.2, 42.9),
		region("MI", "Michigan", -90.4, -82.4, 41.7, 48.3),
		region("MN", "Minnesota", -97.3, -89.5, 43.5, 49.4),
		region("MS", "Mississippi", -91.7, -88.1, 30.2, 35),
		region("MO", "Missouri", -95.8, -89.1, 36, 40.6),
		region("MT", "Montana", -116.1, -104, 44.4, 49),
		region("NE", "Nebraska", -104.1, -95.3, 40, 43),
		region("NV", "Nevada", -120, -114, 35, 42),
		region("NH", "New Hampshire", -72.6, -70.6, 42.7, 45.3),
		region("NJ", "New Jersey", -75.6, -73.9, 38.9, 41.4),
		region("NM", "New Mexico", -109.1, -103, 31.3, 37),
		region("NY", "New York", -79.8, -71.9, 40.5, 45),
		region("NC", "North Carolina", -84.3, -75.5, 33.8, 36.6),
		region("ND", "North Dakota", -104.1, -96.6, 45.9, 49),
		region("OH", "Ohio", -84.8, -80.5, 38.4, 42),
		region("OK", "Oklahoma", -103, -94.4, 33.6, 37),
		region("OR", "Oregon", -124.6, -116.5, 42, 46.3),
		region("PA", "Pennsylvania", -80.5, -74.7, 39.7, 42.3),
		region("RI", "Rhode Island", -71.9, -71.1, 41.1, 42),
		region("SC", "South Carolina", -83.4, -78.5, 32, 35.2),
		region("SD", "South Dakota", -104.1, -96.4, 42.5, 45.9),
		region("TN", "Tennessee", -90.3, -81.6, 35, 36.7),
		region("TX", "Texas", -106.6, -93.5, 25.8, 36.5),
		region("UT", "Utah", -114.1, -109, 37, 42),
		region("VT", "Vermont", -73.4, -71.5, 42.7, 45),
		region("VA", "Virginia", -83.7, -75.2, 36.5, 39.5),
		region("WA", "Washington", -124.8, -116.9, 45.5, 49),
		region("WV", "West Virginia", -82.6, -77.7, 37.2, 40.6),
		region("WI", "Wisconsin", -92.9, -86.8, 42.5, 47.1),
		region("WY", "Wyoming", -111.1, -104, 41, 45),
	} {
		regions[r.Key] = r
	}
}

// LookupRegion resolves a catalog key (case-insensitive) or a custom box in
// the form "custom:W,E,S,N".
func LookupRegion(key string) (Region, error) {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(strings.ToLower(key), "custom:") {
		return parseCustomRegion(key)
	}
	r, ok := regions[strings.ToUpper(key)]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, key)
	}
	return r, nil
}

func parseCustomRegion(key string) (Region, error) {
	parts := strings.Split(key[len("custom:"):], ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("%w: %q needs W,E,S,N", ErrUnknownRegion, key)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Region{}, fmt.Errorf("%w: %q: %v", ErrUnknownRegion, key, err)
		}
		v[i] = f
	}
	if v[0] >= v[1] || v[2] >= v[3] || v[2] < -90 || v[3] > 90 {
		return Region{}, fmt.Errorf("%w: %q is not a valid box", ErrUnknownRegion, key)
	}
	return Region{
		Key:   fmt.Sprintf("custom:%g,%g,%g,%g", v[0], v[1], v[2], v[3]),
		Name:  "Custom",
		West:  v[0],
		East:  v[1],
		South: v[2],
		North: v[3],
	}, nil
}

// Regions lists the catalog sorted by key.
func Regions() []Region {
	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
