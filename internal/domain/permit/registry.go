package permit

import "time"

// Kind is the declared filter type of a canonical field.
type Kind int

// Field kinds.
const (
	// String fields accept equality and set membership.
	String Kind = iota
	// Number fields accept equality and range comparisons.
	Number
	// Bool fields accept equality only.
	Bool
	// Date fields accept equality and range comparisons on ISO-8601 values.
	Date
)

// String implements fmt.Stringer for diagnostics.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Date:
		return "date"
	default:
		return "unknown"
	}
}

// FieldSpec describes one filterable canonical field and how to project its
// value out of a Record for indexing.
type FieldSpec struct {
	Name string
	Kind Kind

	str  func(*Record) string
	num  func(*Record) *float64
	flag func(*Record) *bool
	date func(*Record) *time.Time
}

// FieldRegistry is the immutable set of filterable fields. Both the filter
// compiler and the index schema are derived from it, so a field accepted at
// compile time is guaranteed to exist in the FT index.
type FieldRegistry struct {
	ordered []FieldSpec
	byName  map[string]FieldSpec
}

// NewFieldRegistry builds a registry from field specs.
func NewFieldRegistry(specs []FieldSpec) FieldRegistry {
	byName := make(map[string]FieldSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	return FieldRegistry{ordered: specs, byName: byName}
}

// Kind returns the declared kind of a field.
func (r FieldRegistry) Kind(name string) (Kind, bool) {
	s, ok := r.byName[name]
	return s.Kind, ok
}

// Fields returns all field specs in declaration order.
func (r FieldRegistry) Fields() []FieldSpec { return r.ordered }

// TagValue projects a string-representable field value for tag indexing.
// Bool fields render as "true"/"false". Returns ok=false when absent.
func (r FieldRegistry) TagValue(s FieldSpec, rec *Record) (string, bool) {
	switch s.Kind {
	case String:
		v := s.str(rec)
		return v, v != ""
	case Bool:
		b := s.flag(rec)
		if b == nil {
			return "", false
		}
		if *b {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// NumericValue projects a numeric field value for numeric indexing.
// Date fields render as unix seconds. Returns ok=false when absent.
func (r FieldRegistry) NumericValue(s FieldSpec, rec *Record) (float64, bool) {
	switch s.Kind {
	case Number:
		v := s.num(rec)
		if v == nil {
			return 0, false
		}
		return *v, true
	case Date:
		t := s.date(rec)
		if t == nil {
			return 0, false
		}
		return float64(t.Unix()), true
	default:
		return 0, false
	}
}

func intField(get func(*Record) *int) func(*Record) *float64 {
	return func(rec *Record) *float64 {
		v := get(rec)
		if v == nil {
			return nil
		}
		f := float64(*v)
		return &f
	}
}

// DefaultRegistry returns the filterable-field registry for the Austin
// permit corpus.
func DefaultRegistry() FieldRegistry {
	return NewFieldRegistry([]FieldSpec{
		{Name: "permit_number", Kind: String, str: func(r *Record) string { return r.Permit.PermitNumber }},
		{Name: "project_id", Kind: String, str: func(r *Record) string { return r.Project.ProjectID }},
		{Name: "master_permit_number", Kind: String, str: func(r *Record) string { return r.Project.MasterPermitNumber }},
		{Name: "permit_type", Kind: String, str: func(r *Record) string { return r.Permit.PermitType }},
		{Name: "permit_class", Kind: String, str: func(r *Record) string { return r.Permit.PermitClass }},
		{Name: "permit_class_mapped", Kind: String, str: func(r *Record) string { return r.Permit.PermitClassMapped }},
		{Name: "work_class", Kind: String, str: func(r *Record) string { return r.Permit.WorkClass }},
		{Name: "status", Kind: String, str: func(r *Record) string { return r.Permit.Status }},
		{Name: "city", Kind: String, str: func(r *Record) string { return r.Location.City }},
		{Name: "state", Kind: String, str: func(r *Record) string { return r.Location.State }},
		{Name: "zip_code", Kind: String, str: func(r *Record) string { return r.Location.ZipCode }},
		{Name: "jurisdiction", Kind: String, str: func(r *Record) string { return r.Location.Jurisdiction }},
		{Name: "contractor_company", Kind: String, str: func(r *Record) string { return r.Contractor.Company }},
		{Name: "contractor_trade", Kind: String, str: func(r *Record) string { return r.Contractor.Trade }},
		{Name: "applicant_name", Kind: String, str: func(r *Record) string { return r.Applicant.Name }},
		{Name: "applicant_organization", Kind: String, str: func(r *Record) string { return r.Applicant.Organization }},

		{Name: "council_district", Kind: Number, num: intField(func(r *Record) *int { return r.Location.CouncilDistrict })},
		{Name: "calendar_year_issued", Kind: Number, num: intField(func(r *Record) *int { return r.Dates.CalendarYearIssued })},
		{Name: "fiscal_year_issued", Kind: Number, num: intField(func(r *Record) *int { return r.Dates.FiscalYearIssued })},
		{Name: "latitude", Kind: Number, num: func(r *Record) *float64 { return r.Location.Latitude }},
		{Name: "longitude", Kind: Number, num: func(r *Record) *float64 { return r.Location.Longitude }},
		{Name: "total_lot_sqft", Kind: Number, num: func(r *Record) *float64 { return r.Location.TotalLotSqft }},
		{Name: "total_job_valuation", Kind: Number, num: func(r *Record) *float64 { return r.Valuation.TotalJobValuation }},
		{Name: "total_new_addition_sqft", Kind: Number, num: func(r *Record) *float64 { return r.Valuation.TotalNewAdditionSqft }},
		{Name: "total_existing_building_sqft", Kind: Number, num: func(r *Record) *float64 { return r.Valuation.TotalExistingBuildingSqft }},
		{Name: "remodel_repair_sqft", Kind: Number, num: func(r *Record) *float64 { return r.Valuation.RemodelRepairSqft }},
		{Name: "number_of_floors", Kind: Number, num: intField(func(r *Record) *int { return r.Valuation.NumberOfFloors })},
		{Name: "housing_units", Kind: Number, num: intField(func(r *Record) *int { return r.Valuation.HousingUnits })},

		{Name: "condominium", Kind: Bool, flag: func(r *Record) *bool { return r.Flags.Condominium }},
		{Name: "certificate_of_occupancy", Kind: Bool, flag: func(r *Record) *bool { return r.Flags.CertificateOfOccupancy }},
		{Name: "recently_issued", Kind: Bool, flag: func(r *Record) *bool { return r.Flags.RecentlyIssued }},

		{Name: "applied_date", Kind: Date, date: func(r *Record) *time.Time { return r.Dates.AppliedDate }},
		{Name: "issue_date", Kind: Date, date: func(r *Record) *time.Time { return r.Dates.IssueDate }},
		{Name: "expires_date", Kind: Date, date: func(r *Record) *time.Time { return r.Dates.ExpiresDate }},
		{Name: "completed_date", Kind: Date, date: func(r *Record) *time.Time { return r.Dates.CompletedDate }},
	})
}
