package upstream

import (
	"encoding/json"
	"strings"
)

// Parameter maps an availability flag from the station catalog to the dataset
// code the download API expects for that series. The order of the table is
// significant: datastream identifiers are derived from a station's position
// within it, so it is exposed as an immutable ordered slice rather than a map.
type Parameter struct {
	// Key is the flag attribute name in the catalog response, e.g.
	// "mean_daily_flow_available".
	Key string

	// Code is the dataset query-parameter value for the download API.
	Code string
}

// PropertyName derives the observed-property name from the flag key.
func (p Parameter) PropertyName() string {
	name := strings.TrimSuffix(p.Key, "_available")
	return strings.TrimSuffix(name, "_avail")
}

// defaultParameters lists every known availability flag. Several flags appear
// in catalog responses but have never been observed set on a monitored
// station; their dataset codes are unknown.
var defaultParameters = []Parameter{
	{"stage_instantaneous_available", "Instantaneous_Stage"},
	{"flow_instantaneous_available", "Instantaneous_Flow"},
	{"mean_daily_flow_available", "MDF"},
	{"water_temp_max_available", "WTEMP_MAX"},
	{"water_temp_min_available", "WTEMP_MIN"},
	{"water_temp_mean_available", "WTEMP_MEAN"},
	{"water_temp_instantaneous_avail", "WTEMP15"},
	{"water_temp_measurement_avail", "WTEMP_MEASURE"},
	{"measured_flow_available", "Measurements"},
	{"volume_midnight_available", "UNKNOWN"},
	{"stage_midnight_available", "UNKNOWN"},
	{"mean_daily_volume_available", "UNKNOWN"},
	{"mean_daily_stage_available", "UNKNOWN"},
	{"air_temp_instantaneous_avail", "UNKNOWN"},
	{"air_temp_mean_available", "UNKNOWN"},
	{"air_temp_max_available", "UNKNOWN"},
	{"air_temp_min_available", "UNKNOWN"},
	{"precipitation_available", "UNKNOWN"},
}

// DefaultParameters returns a copy of the built-in parameter table.
func DefaultParameters() []Parameter {
	out := make([]Parameter, len(defaultParameters))
	copy(out, defaultParameters)
	return out
}

// StationAttributes is the attribute record of one gauging station. The
// fields the sync engine depends on are typed explicitly; everything else the
// catalog returns is kept verbatim in the raw bag and forwarded unmodified to
// the downstream Thing document.
type StationAttributes struct {
	StationNbr  string
	StationName string
	Longitude   float64
	Latitude    float64
	Elevation   float64

	// Period of record, unix milliseconds, absent for some stations.
	PeriodOfRecordStart *int64
	PeriodOfRecordEnd   *int64

	availability map[string]bool
	raw          map[string]json.RawMessage
}

// UnmarshalJSON decodes the typed fields, collects the availability flags,
// and keeps every attribute in the raw passthrough bag.
func (a *StationAttributes) UnmarshalJSON(data []byte) error {
	var fields struct {
		StationNbr  string  `json:"station_nbr"`
		StationName string  `json:"station_name"`
		Longitude   float64 `json:"longitude_dec"`
		Latitude    float64 `json:"latitude_dec"`
		Elevation   float64 `json:"elevation"`
		RecordStart *int64  `json:"period_of_record_start_date"`
		RecordEnd   *int64  `json:"period_of_record_end_date"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	availability := make(map[string]bool)
	for key, value := range raw {
		if !strings.HasSuffix(key, "_available") && !strings.HasSuffix(key, "_avail") {
			continue
		}
		// The catalog is inconsistent about whether flags come back as
		// numbers or strings.
		s := strings.Trim(string(value), `"`)
		availability[key] = s == "1"
	}

	a.StationNbr = fields.StationNbr
	a.StationName = fields.StationName
	a.Longitude = fields.Longitude
	a.Latitude = fields.Latitude
	a.Elevation = fields.Elevation
	a.PeriodOfRecordStart = fields.RecordStart
	a.PeriodOfRecordEnd = fields.RecordEnd
	a.availability = availability
	a.raw = raw
	return nil
}

// MarshalJSON emits the attribute record exactly as the catalog returned it.
func (a StationAttributes) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

// HasParameter reports whether the station advertises the given availability
// flag as set.
func (a *StationAttributes) HasParameter(key string) bool {
	return a.availability[key]
}

// AvailableParameters filters the parameter table down to the streams this
// station advertises, preserving table order. A datastream's identifier is
// derived from its position in this slice, so the result is stable for a
// given set of availability flags.
func (a *StationAttributes) AvailableParameters(table []Parameter) []Parameter {
	var out []Parameter
	for _, p := range table {
		if a.HasParameter(p.Key) {
			out = append(out, p)
		}
	}
	return out
}

// Properties returns the full attribute bag for the Thing document,
// unrecognized keys included.
func (a *StationAttributes) Properties() map[string]json.RawMessage {
	return a.raw
}

// StationRecord is one feature from the station catalog.
type StationRecord struct {
	Attributes StationAttributes  `json:"attributes"`
	Geometry   map[string]float64 `json:"geometry"`
}

// catalogResponse is the envelope of a catalog query.
type catalogResponse struct {
	Features []StationRecord `json:"features"`
}
