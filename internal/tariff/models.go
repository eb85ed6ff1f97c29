package tariff

import (
	"errors"
	"fmt"
	"strings"
)

// TariffType is the delivery mode the provider prices against
type TariffType string

const (
	TariffOfficeOffice   TariffType = "OFFICE_OFFICE"
	TariffOfficeDoor     TariffType = "OFFICE_DOOR"
	TariffDoorOffice     TariffType = "DOOR_OFFICE"
	TariffDoorDoor       TariffType = "DOOR_DOOR"
	TariffOfficePostamat TariffType = "OFFICE_POSTAMAT"
	TariffDoorPostamat   TariffType = "DOOR_POSTAMAT"
)

// AllTariffTypes returns the supported tariff types in display order
func AllTariffTypes() []TariffType {
	return []TariffType{
		TariffOfficeOffice,
		TariffOfficeDoor,
		TariffDoorOffice,
		TariffDoorDoor,
		TariffOfficePostamat,
		TariffDoorPostamat,
	}
}

var ErrUnknownTariffType = errors.New("unknown tariff type")

// ParseTariffType validates s against the known tariff types
func ParseTariffType(s string) (TariffType, error) {
	for _, t := range AllTariffTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTariffType, s)
}

// Query holds the caller-supplied values of a tariff calculation.
// Coordinates and weight keep the literal text the caller sent.
type Query struct {
	FromLatitude  string
	FromLongitude string
	ToLatitude    string
	ToLongitude   string
	CourierType   TariffType
	Weight        string
}

var ErrValidation = errors.New("validation failed")

// ValidationError describes caller input that cannot be sent upstream
type ValidationError struct {
	Missing []string // required fields that were absent or empty
	Invalid string   // field present but holding an unsupported value
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return "invalid value for " + e.Invalid
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
