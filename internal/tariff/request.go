package tariff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Required request fields, in the order they are reported
const (
	FieldFromLatitude  = "from_latitude"
	FieldFromLongitude = "from_longitude"
	FieldToLatitude    = "to_latitude"
	FieldToLongitude   = "to_longitude"
	FieldCourierType   = "courier_type"
	FieldWeight        = "weight"
)

// RequiredFields lists every field a calculate request must carry
func RequiredFields() []string {
	return []string{
		FieldFromLatitude,
		FieldFromLongitude,
		FieldToLatitude,
		FieldToLongitude,
		FieldCourierType,
		FieldWeight,
	}
}

// ParseCalculateRequest decodes a calculate request body.
// A field counts as missing when absent, null, false, empty, zero or not a scalar.
func ParseCalculateRequest(body []byte) (Query, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return Query{}, fmt.Errorf("failed to decode request body: %w", err)
	}

	values := make(map[string]string, len(RequiredFields()))
	var missing []string
	for _, field := range RequiredFields() {
		v, ok := scalarText(raw[field])
		if !ok {
			missing = append(missing, field)
			continue
		}
		values[field] = v
	}
	if len(missing) > 0 {
		return Query{}, &ValidationError{Missing: missing}
	}

	courierType, err := ParseTariffType(values[FieldCourierType])
	if err != nil {
		return Query{}, &ValidationError{Invalid: FieldCourierType}
	}

	return Query{
		FromLatitude:  values[FieldFromLatitude],
		FromLongitude: values[FieldFromLongitude],
		ToLatitude:    values[FieldToLatitude],
		ToLongitude:   values[FieldToLongitude],
		CourierType:   courierType,
		Weight:        values[FieldWeight],
	}, nil
}

// scalarText renders a decoded JSON value as query text, reporting false for
// values that count as missing
func scalarText(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case json.Number:
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil || f == 0 {
			return "", false
		}
		return val.String(), true
	case bool:
		return "true", val
	default:
		return "", false
	}
}
