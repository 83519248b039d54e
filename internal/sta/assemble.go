package sta

import (
	"fmt"
	"strconv"

	"github.com/cgs-earth/hydrosync/internal/upstream"
)

// ThingID derives the Thing identifier from the station number.
func ThingID(stationNbr string) (int64, error) {
	id, err := strconv.ParseInt(stationNbr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("station number %q is not numeric: %w", stationNbr, err)
	}
	return id, nil
}

// DatastreamID derives a datastream identifier by concatenating the station
// number with the zero-based index of the parameter among the station's
// available parameters.
//
// The index is positional within the availability-filtered table, not within
// the full parameter table: a station with only the third table entry
// available gets index 0. Given the same availability flags the result is
// stable across runs, which is what makes re-uploads idempotent upserts
// instead of duplicate inserts.
func DatastreamID(stationNbr string, availIndex int) (int64, error) {
	id, err := strconv.ParseInt(stationNbr+strconv.Itoa(availIndex), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("station number %q is not numeric: %w", stationNbr, err)
	}
	return id, nil
}

func stationPoint(attrs *upstream.StationAttributes) GeoJSONPoint {
	return GeoJSONPoint{
		Type:        "Point",
		Coordinates: []float64{attrs.Longitude, attrs.Latitude, attrs.Elevation},
	}
}

// BuildDatastream maps one available parameter of a station to a datastream
// body. unit comes from the fetched series header; interval is the series'
// min/max timestamp range and must be empty for an empty series, in which
// case the time fields are omitted from the document.
func BuildDatastream(attrs *upstream.StationAttributes, unit, interval string, param upstream.Parameter, availIndex int) (Datastream, error) {
	id, err := DatastreamID(attrs.StationNbr, availIndex)
	if err != nil {
		return Datastream{}, err
	}

	property := param.PropertyName()
	ds := Datastream{
		ID:              id,
		Name:            attrs.StationName + " " + property,
		Description:     property,
		ObservationType: ObservationTypeMeasurement,
		UnitOfMeasurement: UnitOfMeasurement{
			Name:       unit,
			Symbol:     unit,
			Definition: unit,
		},
		ObservedProperty: ObservedProperty{
			Name:        property,
			Description: property,
			Definition:  "Unknown",
		},
		Sensor: Sensor{
			ID:           0,
			Name:         "Unknown",
			Description:  "Unknown",
			EncodingType: "Unknown",
			Metadata:     "Unknown",
		},
	}

	// The store rounds resultTime but not phenomenonTime; both carry the
	// same interval since samples are reported when measured.
	if interval != "" {
		ds.PhenomenonTime = interval
		ds.ResultTime = interval
	}
	return ds, nil
}

// BuildObservation maps one (value, timestamp) sample to an observation body
// referencing the datastream at availIndex.
func BuildObservation(attrs *upstream.StationAttributes, value *float64, timestamp string, availIndex int) (Observation, error) {
	id, err := DatastreamID(attrs.StationNbr, availIndex)
	if err != nil {
		return Observation{}, err
	}
	return Observation{
		ResultTime: timestamp,
		Result:     value,
		Datastream: DatastreamRef{ID: id},
		FeatureOfInterest: FeatureOfInterest{
			Name:         attrs.StationName,
			Description:  attrs.StationName,
			EncodingType: "application/vnd.geo+json",
			Feature:      stationPoint(attrs),
		},
	}, nil
}

// BuildThing maps a station record and its assembled datastreams to the
// Thing document upserted ahead of the observation batch.
func BuildThing(attrs *upstream.StationAttributes, datastreams []Datastream) (Thing, error) {
	id, err := ThingID(attrs.StationNbr)
	if err != nil {
		return Thing{}, err
	}
	return Thing{
		ID:          id,
		Name:        attrs.StationName,
		Description: attrs.StationName,
		Locations: []Location{
			{
				Name:         attrs.StationName,
				Description:  attrs.StationName,
				EncodingType: "application/vnd.geo+json",
				Location:     stationPoint(attrs),
			},
		},
		Datastreams: datastreams,
		Properties:  attrs.Properties(),
	}, nil
}
