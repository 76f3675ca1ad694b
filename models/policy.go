package models

// FieldType is the declared type a raw value must cast to.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeDate    FieldType = "date"
)

// FieldSpec names a mandatory field and its target type.
type FieldSpec struct {
	Name string    `yaml:"name" validate:"required"`
	Type FieldType `yaml:"type" validate:"oneof=string integer date"`
}

// NullPolicy decides what the cleaner does with rows that carry null mandatory fields.
type NullPolicy string

const (
	// NullRetain keeps every row and only reports nulls.
	NullRetain NullPolicy = "retain"
	// NullDrop removes rows with any null mandatory field.
	NullDrop NullPolicy = "drop"
	// NullImpute drops rows without a patient id, fills age with the median
	// and diagnosis date with the latest date seen.
	NullImpute NullPolicy = "impute"
)

// Policy is the immutable configuration consumed by every pipeline component.
// Pass it by value.
type Policy struct {
	MandatoryFields []FieldSpec
	NullPolicy      NullPolicy

	TopN      int
	SeniorAge int

	AgeBucketFloor  int
	AgeBucketWidth  int
	AgeBucketCount  int
	BelowRangeLabel string
}

// DefaultMandatoryFields is the six-field schema of a healthcare event.
func DefaultMandatoryFields() []FieldSpec {
	return []FieldSpec{
		{Name: FieldPatientID, Type: TypeString},
		{Name: FieldAge, Type: TypeInteger},
		{Name: FieldGender, Type: TypeString},
		{Name: FieldDiagnosisCode, Type: TypeString},
		{Name: FieldDiagnosisDescription, Type: TypeString},
		{Name: FieldDiagnosisDate, Type: TypeDate},
	}
}

// DefaultPolicy returns the policy the daily job runs with when nothing is overridden.
func DefaultPolicy() Policy {
	return Policy{
		MandatoryFields: DefaultMandatoryFields(),
		NullPolicy:      NullRetain,
		TopN:            3,
		SeniorAge:       60,
		AgeBucketFloor:  30,
		AgeBucketWidth:  10,
		AgeBucketCount:  4,
		BelowRangeLabel: "minors",
	}
}

// FieldNames returns the mandatory field names in declaration order.
func (p Policy) FieldNames() []string {
	names := make([]string, len(p.MandatoryFields))
	for i, f := range p.MandatoryFields {
		names[i] = f.Name
	}
	return names
}
