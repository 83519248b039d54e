// Package sta holds the SensorThings entity bodies accepted by the
// downstream observation store and the assembly of upstream station data
// into them.
package sta

import "encoding/json"

// ObservationTypeMeasurement is the O&M observation type for numeric results.
const ObservationTypeMeasurement = "http://www.opengis.net/def/observationType/OGC-OM/2.0/OM_Measurement"

// GeoJSONPoint is a point geometry with [longitude, latitude, elevation]
// coordinates.
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// UnitOfMeasurement describes the unit of a datastream. The unit is only
// known from a fetched series header, so all three fields carry the same
// symbol.
type UnitOfMeasurement struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	Definition string `json:"definition"`
}

// ObservedProperty describes what a datastream measures.
type ObservedProperty struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Definition  string `json:"definition"`
}

// Sensor is the sensor entity attached to a datastream. The upstream
// catalog exposes nothing about the physical instruments.
type Sensor struct {
	ID           int64  `json:"@iot.id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	EncodingType string `json:"encodingType"`
	Metadata     string `json:"metadata"`
}

// Datastream is one measured parameter's series at one station.
//
// PhenomenonTime and ResultTime are set to the same min/max interval of the
// fetched series and omitted entirely for an empty series; the store rejects
// empty-string intervals.
type Datastream struct {
	ID                int64             `json:"@iot.id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	ObservationType   string            `json:"observationType"`
	UnitOfMeasurement UnitOfMeasurement `json:"unitOfMeasurement"`
	ObservedProperty  ObservedProperty  `json:"ObservedProperty"`
	Sensor            Sensor            `json:"Sensor"`
	PhenomenonTime    string            `json:"phenomenonTime,omitempty"`
	ResultTime        string            `json:"resultTime,omitempty"`
}

// Location is the station's fixed position.
type Location struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	EncodingType string       `json:"encodingType"`
	Location     GeoJSONPoint `json:"location"`
}

// Thing is the station entity, carrying its locations, datastreams, and the
// full upstream attribute bag as passthrough properties.
type Thing struct {
	ID          int64                      `json:"@iot.id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Locations   []Location                 `json:"Locations"`
	Datastreams []Datastream               `json:"Datastreams"`
	Properties  map[string]json.RawMessage `json:"properties"`
}

// DatastreamRef references a datastream by identifier.
type DatastreamRef struct {
	ID int64 `json:"@iot.id"`
}

// FeatureOfInterest is a snapshot of the station location taken at insert
// time.
type FeatureOfInterest struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	EncodingType string       `json:"encodingType"`
	Feature      GeoJSONPoint `json:"feature"`
}

// Observation is a single timestamped sample. Result is a pointer: an empty
// value cell upstream is a real null observation, not zero and not an
// omitted row, and it must marshal as JSON null.
type Observation struct {
	ResultTime        string            `json:"resultTime"`
	Result            *float64          `json:"result"`
	Datastream        DatastreamRef     `json:"Datastream"`
	FeatureOfInterest FeatureOfInterest `json:"FeatureOfInterest"`
}
