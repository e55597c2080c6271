// Package permit holds the canonical building-permit record, the registry of
// filterable fields, and the schema-versioned normalization pipeline that
// produces canonical records from raw open-data rows.
package permit

import "time"

// Record is the canonical, schema-versioned representation of a permit.
// Optional numerics, booleans, and dates are pointers; nil means the source
// did not provide a usable value. Records are immutable after normalization
// except through SchemaRegistry.Migrate.
type Record struct {
	RecordID      string `json:"record_id"`
	SchemaVersion int    `json:"schema_version"`

	// RawFieldCount is the number of fields on the source row, retained for
	// audit even though unknown fields are dropped.
	RawFieldCount int `json:"raw_field_count"`
	// Warnings counts malformed optional fields nulled during normalization.
	Warnings int `json:"warnings,omitempty"`

	Permit     Classification `json:"permit"`
	Location   Location       `json:"location"`
	Dates      Dates          `json:"dates"`
	Valuation  Valuation      `json:"valuation"`
	Contractor Contractor     `json:"contractor"`
	Applicant  Applicant      `json:"applicant"`
	Project    Project        `json:"project"`
	Flags      Flags          `json:"flags"`
}

// Classification identifies and classifies the permit.
type Classification struct {
	PermitNumber          string `json:"permit_number"`
	PermitType            string `json:"permit_type,omitempty"`
	PermitTypeDescription string `json:"permit_type_description,omitempty"`
	PermitClass           string `json:"permit_class,omitempty"`
	PermitClassMapped     string `json:"permit_class_mapped,omitempty"`
	WorkClass             string `json:"work_class,omitempty"`
	Status                string `json:"status,omitempty"`
	IssueMethod           string `json:"issue_method,omitempty"`
}

// Location describes the permitted property.
type Location struct {
	Address          string   `json:"address,omitempty"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	ZipCode          string   `json:"zip_code,omitempty"`
	Jurisdiction     string   `json:"jurisdiction,omitempty"`
	LegalDescription string   `json:"legal_description,omitempty"`
	CouncilDistrict  *int     `json:"council_district,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	TotalLotSqft     *float64 `json:"total_lot_sqft,omitempty"`
}

// Dates holds the permit lifecycle dates.
type Dates struct {
	AppliedDate        *time.Time `json:"applied_date,omitempty"`
	IssueDate          *time.Time `json:"issue_date,omitempty"`
	ExpiresDate        *time.Time `json:"expires_date,omitempty"`
	CompletedDate      *time.Time `json:"completed_date,omitempty"`
	CalendarYearIssued *int       `json:"calendar_year_issued,omitempty"`
	FiscalYearIssued   *int       `json:"fiscal_year_issued,omitempty"`
}

// Valuation holds job valuations and square footage.
type Valuation struct {
	TotalJobValuation         *float64 `json:"total_job_valuation,omitempty"`
	TotalNewAdditionSqft      *float64 `json:"total_new_addition_sqft,omitempty"`
	TotalExistingBuildingSqft *float64 `json:"total_existing_building_sqft,omitempty"`
	RemodelRepairSqft         *float64 `json:"remodel_repair_sqft,omitempty"`
	NumberOfFloors            *int     `json:"number_of_floors,omitempty"`
	HousingUnits              *int     `json:"housing_units,omitempty"`
}

// Contractor describes the contracted company.
type Contractor struct {
	Company  string `json:"company,omitempty"`
	Trade    string `json:"trade,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	City     string `json:"city,omitempty"`
	Zip      string `json:"zip,omitempty"`
}

// Applicant describes the permit applicant.
type Applicant struct {
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
	Phone        string `json:"phone,omitempty"`
	City         string `json:"city,omitempty"`
	Zip          string `json:"zip,omitempty"`
}

// Project links the permit to its construction project.
type Project struct {
	ProjectID          string `json:"project_id"`
	MasterPermitNumber string `json:"master_permit_number,omitempty"`
	Description        string `json:"description,omitempty"`
	Link               string `json:"link,omitempty"`
}

// Flags holds the boolean permit markers.
type Flags struct {
	Condominium            *bool `json:"condominium,omitempty"`
	CertificateOfOccupancy *bool `json:"certificate_of_occupancy,omitempty"`
	RecentlyIssued         *bool `json:"recently_issued,omitempty"`
}
