package analysis

import "testing"

func TestNormalizeCanonicalizesUnits(t *testing.T) {
	tests := []struct {
		raw  string
		want Unit
	}{
		{"mm", UnitMM},
		{"Millimeters", UnitMM},
		{"CM", UnitCM},
		{"meter", UnitM},
		{"in", UnitInch},
		{"inches", UnitInch},
		{`"`, UnitInch},
	}

	for _, tt := range tests {
		raw := &RawExtraction{
			Dimensions: []RawDimension{{Label: "width", Value: 10, Unit: tt.raw, Type: "width"}},
		}
		dims, _, _, report := Normalize(raw)
		if report.Dropped() != 0 {
			t.Errorf("unit %q: dropped %d entries, want 0", tt.raw, report.Dropped())
			continue
		}
		if dims[0].Unit != tt.want {
			t.Errorf("unit %q canonicalized to %q, want %q", tt.raw, dims[0].Unit, tt.want)
		}
	}
}

func TestNormalizeDropsMalformedEntries(t *testing.T) {
	raw := &RawExtraction{
		Title: "Bracket Assembly",
		Dimensions: []RawDimension{
			{Label: "length", Value: 120, Unit: "mm", Type: "length"},
			{Label: "", Value: 10, Unit: "mm", Type: "width"},         // missing label
			{Label: "depth", Value: -5, Unit: "mm", Type: "height"},   // negative value
			{Label: "bore", Value: 12, Unit: "furlong", Type: "diameter"}, // unknown unit
			{Label: "angle", Value: 45, Unit: "mm", Type: "angle"},    // unknown type
		},
		Parts: []RawPart{
			{Name: "Base Plate", Quantity: 2, Material: "steel"},
			{Name: "", Quantity: 1},              // missing name
			{Name: "Washer", Quantity: -3},       // negative quantity
		},
		Materials: []RawMaterial{
			{Name: "S355", Type: "structural steel"},
			{Name: ""}, // missing name
		},
	}

	dims, parts, materials, report := Normalize(raw)

	if len(dims) != 1 || dims[0].Label != "length" {
		t.Errorf("dims = %v, want single length entry", dims)
	}
	if len(parts) != 1 || parts[0].Name != "Base Plate" {
		t.Errorf("parts = %v, want single Base Plate entry", parts)
	}
	if len(materials) != 1 || materials[0].Name != "S355" {
		t.Errorf("materials = %v, want single S355 entry", materials)
	}
	if report.DroppedDimensions != 4 {
		t.Errorf("DroppedDimensions = %d, want 4", report.DroppedDimensions)
	}
	if report.DroppedParts != 2 {
		t.Errorf("DroppedParts = %d, want 2", report.DroppedParts)
	}
	if report.DroppedMaterials != 1 {
		t.Errorf("DroppedMaterials = %d, want 1", report.DroppedMaterials)
	}
	if report.Dropped() != 7 {
		t.Errorf("Dropped() = %d, want 7", report.Dropped())
	}
}

func TestNormalizeTrimsWhitespace(t *testing.T) {
	raw := &RawExtraction{
		Dimensions: []RawDimension{{Label: "  width  ", Value: 30, Unit: " mm ", Type: " Width "}},
		Parts:      []RawPart{{Name: "  Flange  ", Quantity: 4, Material: " alu "}},
	}

	dims, parts, _, report := Normalize(raw)
	if report.Dropped() != 0 {
		t.Fatalf("dropped %d entries, want 0", report.Dropped())
	}
	if dims[0].Label != "width" || dims[0].Type != DimWidth {
		t.Errorf("dimension not trimmed: %+v", dims[0])
	}
	if parts[0].Name != "Flange" || parts[0].Material != "alu" {
		t.Errorf("part not trimmed: %+v", parts[0])
	}
}

func TestNormalizeEmptyExtraction(t *testing.T) {
	dims, parts, materials, report := Normalize(&RawExtraction{})
	if dims == nil || parts == nil || materials == nil {
		t.Error("collections must be empty, not nil")
	}
	if len(dims)+len(parts)+len(materials) != 0 || report.Dropped() != 0 {
		t.Errorf("unexpected output from empty extraction")
	}
}

func TestUpdateFieldsValidate(t *testing.T) {
	title := "Edited"
	valid := UpdateFields{
		Title:      &title,
		Dimensions: []Dimension{{Label: "width", Value: 5, Unit: UnitMM, Type: DimWidth}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid update rejected: %v", err)
	}

	invalid := UpdateFields{
		PartsList: []Part{{Name: "", Quantity: 1}},
	}
	if err := invalid.Validate(); err == nil {
		t.Error("invalid part accepted")
	}
}
