package domain

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SoundingLevel is one observed level of an upper-air profile.
type SoundingLevel struct {
	Pressure    float64 `json:"pressure"`    // hPa
	Height      float64 `json:"height"`      // m
	Temperature float64 `json:"temperature"` // °C
	Dewpoint    float64 `json:"dewpoint"`    // °C
	WindDir     float64 `json:"wind_dir"`    // degrees
	WindSpeed   float64 `json:"wind_speed"`  // kt
}

// Sounding is a vertical profile observed at one station and time.
type Sounding struct {
	Station     string          `json:"station"`
	StationName string          `json:"station_name"`
	Time        time.Time       `json:"time"`
	Levels      []SoundingLevel `json:"levels"`
}

// SoundingIndices summarises the surface-based parcel of a sounding.
type SoundingIndices struct {
	LCLPressure    float64
	LCLTemperature float64
	CAPE           float64
	CIN            float64
	SurfaceTheta   float64
	SurfaceThetaE  float64
	Parcel         []float64 // °C at each level
}

// uwyoTitleRe matches the University of Wyoming header line, e.g.
// "<H2>72493 OAK Oakland Int Observations at 00Z 02 Jun 2024</H2>".
var uwyoTitleRe = regexp.MustCompile(`<H2>\s*(\d+)\s+(.*?)\s+Observations at (\d{2})Z (\d{2} \w{3} \d{4})\s*</H2>`)

const uwyoColumnWidth = 7

// ParseUWyoText parses a University of Wyoming TEXT:LIST sounding page. Blank
// columns become NaN; levels are returned in file order (see Clean).
func ParseUWyoText(r io.Reader) (Sounding, error) {
	var snd Sounding
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	const (
		seekHeader = iota
		seekRule
		inTable
		done
	)
	state := seekHeader

	for sc.Scan() {
		line := sc.Text()
		if m := uwyoTitleRe.FindStringSubmatch(line); m != nil {
			snd.Station = m[1]
			snd.StationName = strings.TrimSpace(m[2])
			if t, err := time.Parse("15 02 Jan 2006", m[3]+" "+m[4]); err == nil {
				snd.Time = t.UTC()
			}
		}
		switch state {
		case seekHeader:
			if strings.HasPrefix(strings.TrimSpace(line), "PRES") {
				state = seekRule
			}
		case seekRule:
			if strings.HasPrefix(strings.TrimSpace(line), "-----") {
				state = inTable
			}
		case inTable:
			if strings.Contains(line, "</PRE>") || strings.HasPrefix(strings.TrimSpace(line), "-----") {
				state = done
				continue
			}
			lvl, ok := parseUWyoRow(line)
			if ok {
				snd.Levels = append(snd.Levels, lvl)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Sounding{}, fmt.Errorf("read sounding: %w", err)
	}
	if state == seekHeader {
		return Sounding{}, fmt.Errorf("%w: no data table found", ErrInvalidSounding)
	}
	return snd, nil
}

// parseUWyoRow reads the fixed-width PRES HGHT TEMP DWPT RELH MIXR DRCT SKNT columns.
func parseUWyoRow(line string) (SoundingLevel, bool) {
	col := func(i int) float64 {
		start := i * uwyoColumnWidth
		if start >= len(line) {
			return math.NaN()
		}
		end := min(start+uwyoColumnWidth, len(line))
		s := strings.TrimSpace(line[start:end])
		if s == "" {
			return math.NaN()
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}
	lvl := SoundingLevel{
		Pressure:    col(0),
		Height:      col(1),
		Temperature: col(2),
		Dewpoint:    col(3),
		WindDir:     col(6),
		WindSpeed:   col(7),
	}
	if math.IsNaN(lvl.Pressure) {
		return SoundingLevel{}, false
	}
	return lvl, true
}

// Clean returns a copy with unusable levels dropped (missing pressure or
// temperature), sorted by decreasing pressure with duplicate pressures removed
// (first occurrence wins).
func (s Sounding) Clean() (Sounding, error) {
	out := s
	out.Levels = make([]SoundingLevel, 0, len(s.Levels))
	for _, l := range s.Levels {
		if math.IsNaN(l.Pressure) || math.IsNaN(l.Temperature) || l.Pressure <= 0 {
			continue
		}
		out.Levels = append(out.Levels, l)
	}
	sort.SliceStable(out.Levels, func(i, j int) bool { return out.Levels[i].Pressure > out.Levels[j].Pressure })

	dedup := out.Levels[:0]
	for _, l := range out.Levels {
		if len(dedup) > 0 && dedup[len(dedup)-1].Pressure == l.Pressure {
			continue
		}
		dedup = append(dedup, l)
	}
	out.Levels = dedup

	if len(out.Levels) < 2 {
		return Sounding{}, fmt.Errorf("%w: %d usable levels", ErrInvalidSounding, len(out.Levels))
	}
	if math.IsNaN(out.Levels[0].Dewpoint) {
		return Sounding{}, fmt.Errorf("%w: surface dewpoint missing", ErrInvalidSounding)
	}
	return out, nil
}

// Pressures returns the level pressures.
func (s Sounding) Pressures() []float64 {
	out := make([]float64, len(s.Levels))
	for i, l := range s.Levels {
		out[i] = l.Pressure
	}
	return out
}

// Temperatures returns the level temperatures.
func (s Sounding) Temperatures() []float64 {
	out := make([]float64, len(s.Levels))
	for i, l := range s.Levels {
		out[i] = l.Temperature
	}
	return out
}

// Indices lifts the surface parcel of a cleaned sounding.
func (s Sounding) Indices() (SoundingIndices, error) {
	if len(s.Levels) < 2 {
		return SoundingIndices{}, fmt.Errorf("%w: %d levels", ErrInvalidSounding, len(s.Levels))
	}
	sfc := s.Levels[0]
	p := s.Pressures()
	parcel, err := ParcelProfile(p, sfc.Temperature, sfc.Dewpoint)
	if err != nil {
		return SoundingIndices{}, err
	}
	cape, cin, err := CAPECIN(p, s.Temperatures(), parcel)
	if err != nil {
		return SoundingIndices{}, err
	}
	pLCL, tLCL := LCL(sfc.Pressure, sfc.Temperature, sfc.Dewpoint)
	return SoundingIndices{
		LCLPressure:    pLCL,
		LCLTemperature: tLCL,
		CAPE:           cape,
		CIN:            cin,
		SurfaceTheta:   PotentialTemperature(sfc.Pressure, CelsiusToKelvin(sfc.Temperature)),
		SurfaceThetaE:  EquivalentPotentialTemperature(sfc.Pressure, CelsiusToKelvin(sfc.Temperature), CelsiusToKelvin(sfc.Dewpoint)),
		Parcel:         parcel,
	}, nil
}

// SynopticTime floors t to the previous 00Z or 12Z observation time.
func SynopticTime(t time.Time) time.Time {
	t = t.UTC()
	hour := 0
	if t.Hour() >= 12 {
		hour = 12
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC)
}
