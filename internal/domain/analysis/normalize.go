package analysis

import "strings"

// RawExtraction is the engine's unvalidated output. Field types are loose on
// purpose: backends echo back whatever the underlying model produced and the
// normalizer decides what survives.
type RawExtraction struct {
	Title         string         `json:"title"`
	DrawingNumber string         `json:"drawing_number"`
	Dimensions    []RawDimension `json:"dimensions"`
	Parts         []RawPart      `json:"parts"`
	Materials     []RawMaterial  `json:"materials"`
}

type RawDimension struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Type  string  `json:"type"`
}

type RawPart struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Material       string `json:"material"`
	Specifications string `json:"specifications"`
}

type RawMaterial struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Specifications string `json:"specifications"`
}

// NormalizeReport counts what the normalizer dropped.
type NormalizeReport struct {
	DroppedDimensions int
	DroppedParts      int
	DroppedMaterials  int
}

// Dropped returns the total number of discarded entries.
func (r NormalizeReport) Dropped() int {
	return r.DroppedDimensions + r.DroppedParts + r.DroppedMaterials
}

// unitAliases maps common spellings the engine emits to canonical units.
var unitAliases = map[string]Unit{
	"mm": UnitMM, "millimeter": UnitMM, "millimeters": UnitMM,
	"cm": UnitCM, "centimeter": UnitCM, "centimeters": UnitCM,
	"m": UnitM, "meter": UnitM, "meters": UnitM,
	"inch": UnitInch, "in": UnitInch, "inches": UnitInch, `"`: UnitInch,
}

// Normalize validates a raw extraction into the stored result shape,
// discarding malformed entries instead of propagating them.
func Normalize(raw *RawExtraction) (dims []Dimension, parts []Part, materials []Material, report NormalizeReport) {
	dims = make([]Dimension, 0, len(raw.Dimensions))
	for _, rd := range raw.Dimensions {
		d := Dimension{
			Label: strings.TrimSpace(rd.Label),
			Value: rd.Value,
			Unit:  canonicalUnit(rd.Unit),
			Type:  DimensionType(strings.ToLower(strings.TrimSpace(rd.Type))),
		}
		if d.Validate() != nil {
			report.DroppedDimensions++
			continue
		}
		dims = append(dims, d)
	}

	parts = make([]Part, 0, len(raw.Parts))
	for _, rp := range raw.Parts {
		p := Part{
			Name:           strings.TrimSpace(rp.Name),
			Quantity:       rp.Quantity,
			Material:       strings.TrimSpace(rp.Material),
			Specifications: strings.TrimSpace(rp.Specifications),
		}
		if p.Validate() != nil {
			report.DroppedParts++
			continue
		}
		parts = append(parts, p)
	}

	materials = make([]Material, 0, len(raw.Materials))
	for _, rm := range raw.Materials {
		m := Material{
			Name:           strings.TrimSpace(rm.Name),
			Type:           strings.TrimSpace(rm.Type),
			Specifications: strings.TrimSpace(rm.Specifications),
		}
		if m.Validate() != nil {
			report.DroppedMaterials++
			continue
		}
		materials = append(materials, m)
	}

	return dims, parts, materials, report
}

func canonicalUnit(raw string) Unit {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return u
	}
	return Unit(strings.ToLower(strings.TrimSpace(raw)))
}
