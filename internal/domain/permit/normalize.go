package permit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizationError reports a raw row that cannot become a canonical record
// because its identity fields are missing. Malformed optional fields never
// produce this error; they are nulled and counted as warnings instead.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("cannot normalize record: field %q %s", e.Field, e.Reason)
}

// Normalizer converts raw open-data rows, keyed by the upstream portal's
// legacy column names, into canonical records stamped with the current
// schema version.
type Normalizer struct {
	schemas SchemaRegistry
}

// NewNormalizer builds a normalizer writing records at the registry's
// current schema version.
func NewNormalizer(schemas SchemaRegistry) Normalizer {
	return Normalizer{schemas: schemas}
}

// dateLayouts covers the portal's floating timestamps and plain dates.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Normalize maps a raw row into a canonical record. The row must carry a
// permit number and project id; everything else is optional. Unknown columns
// are dropped but counted in RawFieldCount.
func (n Normalizer) Normalize(raw map[string]any) (*Record, error) {
	permitNumber := rawString(raw, "permit_number")
	if permitNumber == "" {
		return nil, &NormalizationError{Field: "permit_number", Reason: "is missing"}
	}
	projectID := rawString(raw, "project_id")
	if projectID == "" {
		return nil, &NormalizationError{Field: "project_id", Reason: "is missing"}
	}

	rec := &Record{
		RecordID:      permitNumber + "_" + projectID,
		SchemaVersion: n.schemas.CurrentVersion(),
		RawFieldCount: len(raw),
	}

	rec.Permit = Classification{
		PermitNumber:          permitNumber,
		PermitType:            rawString(raw, "permittype"),
		PermitTypeDescription: rawString(raw, "permit_type_desc"),
		PermitClass:           rawString(raw, "permit_class"),
		PermitClassMapped:     rawString(raw, "permit_class_mapped"),
		WorkClass:             rawString(raw, "work_class"),
		Status:                rawString(raw, "status_current"),
		IssueMethod:           rawString(raw, "issue_method"),
	}

	rec.Location = Location{
		Address:          rawString(raw, "permit_location"),
		City:             rawString(raw, "original_city"),
		State:            rawString(raw, "original_state"),
		ZipCode:          rawString(raw, "original_zip"),
		Jurisdiction:     rawString(raw, "jurisdiction"),
		LegalDescription: rawString(raw, "legal_description"),
		CouncilDistrict:  rec.intField(raw, "council_district"),
		Latitude:         rec.floatField(raw, "latitude"),
		Longitude:        rec.floatField(raw, "longitude"),
		TotalLotSqft:     rec.floatField(raw, "total_lot_sq_ft"),
	}

	rec.Dates = Dates{
		AppliedDate:        rec.dateField(raw, "applieddate"),
		IssueDate:          rec.dateField(raw, "issue_date"),
		ExpiresDate:        rec.dateField(raw, "expiresdate"),
		CompletedDate:      rec.dateField(raw, "completed_date"),
		CalendarYearIssued: rec.intField(raw, "calendar_year_issued"),
		FiscalYearIssued:   rec.intField(raw, "fiscal_year_issued"),
	}
	if rec.Dates.CalendarYearIssued == nil && rec.Dates.IssueDate != nil {
		year := rec.Dates.IssueDate.Year()
		rec.Dates.CalendarYearIssued = &year
	}

	rec.Valuation = Valuation{
		TotalJobValuation:         rec.floatField(raw, "total_job_valuation"),
		TotalNewAdditionSqft:      rec.floatField(raw, "total_new_add_sqft"),
		TotalExistingBuildingSqft: rec.floatField(raw, "total_existing_bldg_sqft"),
		RemodelRepairSqft:         rec.floatField(raw, "remodel_repair_sqft"),
		NumberOfFloors:            rec.intField(raw, "number_of_floors"),
		HousingUnits:              rec.intField(raw, "housing_units"),
	}

	rec.Contractor = Contractor{
		Company:  rawString(raw, "contractor_company_name"),
		Trade:    rawString(raw, "contractor_trade"),
		FullName: rawString(raw, "contractor_full_name"),
		Phone:    rawString(raw, "contractor_phone"),
		City:     rawString(raw, "contractor_city"),
		Zip:      rawString(raw, "contractor_zip"),
	}

	rec.Applicant = Applicant{
		Name:         rawString(raw, "applicant_full_name"),
		Organization: rawString(raw, "applicant_org"),
		Phone:        rawString(raw, "applicant_phone"),
		City:         rawString(raw, "applicant_city"),
		Zip:          rawString(raw, "applicantzip"),
	}

	rec.Project = Project{
		ProjectID:          projectID,
		MasterPermitNumber: rawString(raw, "masterpermitnum"),
		Description:        rawString(raw, "description"),
		Link:               rawLink(raw["link"]),
	}

	rec.Flags = Flags{
		Condominium:            rec.boolField(raw, "condominium"),
		CertificateOfOccupancy: rec.boolField(raw, "certificate_of_occupancy"),
		RecentlyIssued:         rec.boolField(raw, "issued_in_last_30_days"),
	}

	return rec, nil
}

// rawString reads a trimmed string value; non-string and empty values read
// as absent.
func rawString(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return strings.TrimSpace(s)
}

// rawLink accepts the portal's two link shapes, a bare URL string or an
// object with a url member.
func rawLink(v any) string {
	switch link := v.(type) {
	case string:
		return strings.TrimSpace(link)
	case map[string]any:
		u, _ := link["url"].(string)
		return strings.TrimSpace(u)
	default:
		return ""
	}
}

func (rec *Record) floatField(raw map[string]any, key string) *float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			rec.Warnings++
			return nil
		}
		return &f
	default:
		rec.Warnings++
		return nil
	}
}

func (rec *Record) intField(raw map[string]any, key string) *int {
	f := rec.floatField(raw, key)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

func (rec *Record) boolField(raw map[string]any, key string) *bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	if b, ok := v.(bool); ok {
		return &b
	}
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "y":
		b := true
		return &b
	case "no", "false", "0", "n":
		b := false
		return &b
	case "":
		return nil
	default:
		rec.Warnings++
		return nil
	}
}

func (rec *Record) dateField(raw map[string]any, key string) *time.Time {
	s := rawString(raw, key)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	rec.Warnings++
	return nil
}
