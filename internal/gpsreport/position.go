package gpsreport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/digiscripts/internal/routercli"
)

const (
	latitudeFieldConstant     = "gps.0.stats.latitude"
	longitudeFieldConstant    = "gps.0.stats.longitude"
	satellitesFieldConstant   = "gps.0.stats.satellites"
	altitudeFieldConstant     = "gps.0.stats.altitude"
	courseFieldConstant       = "gps.0.stats.course"
	speedKnotsFieldConstant   = "gps.0.stats.speedknots"
	utcTimeFieldConstant      = "gps.0.stats.utctime"
	mibsSeparatorConstant     = "="
	hemisphereCutset          = " NSEW"
	coordinateBitSizeConstant = 64
	coordinateFormatConstant  = 'f'
	shortestPrecisionConstant = -1
	pointPayloadTemplate      = `{"type": "Point", "coordinates": [%s, %s]}`
	coordinatesTemplate       = "[%s, %s]"
	coordinateErrorTemplate   = "parse %s %q: %w"
	latitudeNameConstant      = "latitude"
	longitudeNameConstant     = "longitude"
	missingCoordinateMessage  = "GPS coordinate not reported"
)

// ErrCoordinateMissing indicates the GPS statistics did not include a coordinate.
var ErrCoordinateMissing = errors.New(missingCoordinateMessage)

// Position is a GPS fix read from `at\mibs=gps`.
type Position struct {
	Latitude   float64
	Longitude  float64
	Satellites string
	Altitude   string
	Course     string
	SpeedKnots string
	UTCTime    string
}

// ParsePosition extracts the coordinates and auxiliary statistics from the GPS mibs output.
func ParsePosition(response string) (Position, error) {
	latitude, latitudeError := parseCoordinate(response, latitudeFieldConstant, latitudeNameConstant)
	if latitudeError != nil {
		return Position{}, latitudeError
	}
	longitude, longitudeError := parseCoordinate(response, longitudeFieldConstant, longitudeNameConstant)
	if longitudeError != nil {
		return Position{}, longitudeError
	}

	return Position{
		Latitude:   latitude,
		Longitude:  longitude,
		Satellites: routercli.ParseField(response, satellitesFieldConstant, mibsSeparatorConstant),
		Altitude:   routercli.ParseField(response, altitudeFieldConstant, mibsSeparatorConstant),
		Course:     routercli.ParseField(response, courseFieldConstant, mibsSeparatorConstant),
		SpeedKnots: routercli.ParseField(response, speedKnotsFieldConstant, mibsSeparatorConstant),
		UTCTime:    routercli.ParseField(response, utcTimeFieldConstant, mibsSeparatorConstant),
	}, nil
}

// Coordinates renders the latitude and longitude pair as a bracketed list.
func (position Position) Coordinates() string {
	return fmt.Sprintf(coordinatesTemplate, formatCoordinate(position.Latitude), formatCoordinate(position.Longitude))
}

// GeoJSONPoint renders the position as the GeoJSON point uploaded to Remote Manager.
func (position Position) GeoJSONPoint() string {
	return fmt.Sprintf(pointPayloadTemplate, formatCoordinate(position.Latitude), formatCoordinate(position.Longitude))
}

func parseCoordinate(response string, field string, name string) (float64, error) {
	rawValue := strings.Trim(routercli.ParseField(response, field, mibsSeparatorConstant), hemisphereCutset)
	if len(rawValue) == 0 {
		return 0, fmt.Errorf(coordinateErrorTemplate, name, rawValue, ErrCoordinateMissing)
	}
	value, parseError := strconv.ParseFloat(rawValue, coordinateBitSizeConstant)
	if parseError != nil {
		return 0, fmt.Errorf(coordinateErrorTemplate, name, rawValue, parseError)
	}
	return value, nil
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, coordinateFormatConstant, shortestPrecisionConstant, coordinateBitSizeConstant)
}
