package analysis

import (
	"fmt"
	"time"
)

// Unit is the measurement unit of an extracted dimension.
type Unit string

const (
	UnitMM   Unit = "mm"
	UnitCM   Unit = "cm"
	UnitM    Unit = "m"
	UnitInch Unit = "inch"
)

// DimensionType classifies what an extracted dimension measures.
type DimensionType string

const (
	DimLength   DimensionType = "length"
	DimWidth    DimensionType = "width"
	DimHeight   DimensionType = "height"
	DimRadius   DimensionType = "radius"
	DimDiameter DimensionType = "diameter"
)

// ResultStatus is the terminal outcome recorded on a result.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
)

// Dimension is a single measurement extracted from a drawing.
type Dimension struct {
	Label string        `json:"label"`
	Value float64       `json:"value"`
	Unit  Unit          `json:"unit"`
	Type  DimensionType `json:"type"`
}

// Part is one entry of the extracted parts list.
type Part struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Material       string `json:"material,omitempty"`
	Specifications string `json:"specifications,omitempty"`
}

// Material is one material called out on the drawing.
type Material struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Specifications string `json:"specifications,omitempty"`
}

// AnalysisResult is the structured extraction for one drawing. Created only
// on job completion or failure; immutable afterwards except through
// UpdateFields.
type AnalysisResult struct {
	ID            string       `json:"id"`
	FileID        string       `json:"file_id"`
	JobID         string       `json:"job_id"`
	Dimensions    []Dimension  `json:"dimensions"`
	PartsList     []Part       `json:"parts_list"`
	Materials     []Material   `json:"materials"`
	Title         string       `json:"title"`
	DrawingNumber string       `json:"drawing_number"`
	AnalyzedAt    time.Time    `json:"analyzed_at"`
	Status        ResultStatus `json:"status"`
	Error         string       `json:"error,omitempty"`
}

func validUnit(u Unit) bool {
	switch u {
	case UnitMM, UnitCM, UnitM, UnitInch:
		return true
	}
	return false
}

func validDimensionType(t DimensionType) bool {
	switch t {
	case DimLength, DimWidth, DimHeight, DimRadius, DimDiameter:
		return true
	}
	return false
}

// Validate checks the constraints a dimension must satisfy to be stored or
// exported.
func (d Dimension) Validate() error {
	if d.Label == "" {
		return fmt.Errorf("%w: dimension label is required", ErrValidation)
	}
	if d.Value < 0 {
		return fmt.Errorf("%w: dimension %q has negative value", ErrValidation, d.Label)
	}
	if !validUnit(d.Unit) {
		return fmt.Errorf("%w: dimension %q has unknown unit %q", ErrValidation, d.Label, d.Unit)
	}
	if !validDimensionType(d.Type) {
		return fmt.Errorf("%w: dimension %q has unknown type %q", ErrValidation, d.Label, d.Type)
	}
	return nil
}

// Validate checks part constraints.
func (p Part) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: part name is required", ErrValidation)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: part %q has negative quantity", ErrValidation, p.Name)
	}
	return nil
}

// Validate checks material constraints.
func (m Material) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: material name is required", ErrValidation)
	}
	return nil
}
