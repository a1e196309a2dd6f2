package domain

import (
	"math"
	"strconv"
	"strings"
)

// Header keys read from a PI_JSON series header.
const (
	HeaderLocationID       = "locationId"
	HeaderParameterID      = "parameterId"
	HeaderStationName      = "stationName"
	HeaderUnits            = "units"
	HeaderLat              = "lat"
	HeaderLon              = "lon"
	HeaderZ                = "z"
	HeaderModuleInstanceID = "moduleInstanceId"
	HeaderTimeStep         = "timeStep"
	HeaderMissVal          = "missVal"
)

// Attribute keys set on each decoded variable.
const (
	AttrLocationID         = "locationId"
	AttrParameterID        = "parameterId"
	AttrStationName        = "stationName"
	AttrUnits              = "units"
	AttrLat                = "lat"
	AttrLon                = "lon"
	AttrZ                  = "z"
	AttrModuleInstanceID   = "moduleInstanceId"
	AttrTimeStepUnit       = "timeStepUnit"
	AttrTimeStepMultiplier = "timeStepMultiplier"
)

// DefaultMissingValue is the missing value sentinel used when a header has no
// usable missVal.
const DefaultMissingValue = -999.0

// SanitizeMetadata returns a copy of v with every '.' in string values
// replaced by '_'. Maps and lists are rebuilt recursively; map keys and
// non-string scalars are left as they are. v is not modified.
func SanitizeMetadata(v any) any {
	switch t := v.(type) {
	case string:
		return strings.ReplaceAll(t, ".", "_")
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = SanitizeMetadata(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = SanitizeMetadata(x)
		}
		return out
	default:
		return v
	}
}

// sanitizeHeader applies SanitizeMetadata to a series header.
func sanitizeHeader(h map[string]any) map[string]any {
	if h == nil {
		return map[string]any{}
	}
	return SanitizeMetadata(h).(map[string]any)
}

// missingValue returns the series sentinel, falling back to
// DefaultMissingValue when missVal is absent or not numeric. An explicit
// "NaN" sentinel is kept; it matches no parsed value.
func missingValue(h map[string]any) float64 {
	switch t := h[HeaderMissVal].(type) {
	case float64:
		return t
	case string:
		if v, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return v
		}
	}
	return DefaultMissingValue
}

// parseFloatOrNaN converts a header scalar to float64, returning NaN for
// anything absent or unparseable.
func parseFloatOrNaN(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		return parseNumber(t)
	default:
		return math.NaN()
	}
}

// parseNumber parses s as float64, returning NaN on failure.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// nested returns key from a nested mapping at h[parent], or nil.
func nested(h map[string]any, parent, key string) any {
	m, ok := h[parent].(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

// seriesAttrs builds the attributes of a decoded variable. Coordinates are
// parsed from the raw header, since sanitizing would turn "52.1" into "52_1";
// everything else comes from the sanitized header.
func seriesAttrs(raw, clean map[string]any) Attrs {
	return Attrs{
		AttrLocationID:         clean[HeaderLocationID],
		AttrParameterID:        clean[HeaderParameterID],
		AttrStationName:        clean[HeaderStationName],
		AttrUnits:              clean[HeaderUnits],
		AttrLat:                parseFloatOrNaN(raw[HeaderLat]),
		AttrLon:                parseFloatOrNaN(raw[HeaderLon]),
		AttrZ:                  parseFloatOrNaN(raw[HeaderZ]),
		AttrModuleInstanceID:   clean[HeaderModuleInstanceID],
		AttrTimeStepUnit:       nested(clean, HeaderTimeStep, "unit"),
		AttrTimeStepMultiplier: nested(clean, HeaderTimeStep, "multiplier"),
	}
}

// variableName picks the data variable name for a sanitized header.
func variableName(clean map[string]any) string {
	if s, ok := clean[HeaderParameterID].(string); ok && s != "" {
		return s
	}
	return UnknownVariable
}
