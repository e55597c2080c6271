// Package ingest loads permit rows from the city open-data API, normalizes
// them, and writes embedded records into the search index.
package ingest

import (
	"fmt"
	"strings"

	"github.com/constructiq/permitsearch/internal/domain/permit"
)

// BuildContent renders a record into the natural-language block the
// embedding model sees. Sentences are ordered by search relevance:
// description first, classification, location, then supporting detail.
func BuildContent(rec *permit.Record) string {
	var sentences []string
	add := func(s string) { sentences = append(sentences, s) }

	if d := rec.Project.Description; d != "" {
		add("The project involves " + strings.ToLower(d))
	}

	var classParts []string
	for _, p := range []string{
		rec.Permit.PermitTypeDescription,
		rec.Permit.PermitType,
		rec.Permit.WorkClass,
		rec.Permit.PermitClass,
	} {
		if p != "" {
			classParts = append(classParts, strings.ToLower(p))
		}
	}
	if len(classParts) > 0 {
		add("This is a " + strings.Join(classParts, " ") + " permit")
	}
	if s := rec.Permit.Status; s != "" {
		add("The permit status is currently " + strings.ToLower(s))
	}
	if m := rec.Permit.IssueMethod; m != "" {
		add("The permit was issued through " + strings.ToLower(m))
	}

	var locParts []string
	if rec.Location.Address != "" {
		locParts = append(locParts, "located at "+rec.Location.Address)
	}
	if rec.Location.City != "" {
		locParts = append(locParts, "in "+rec.Location.City)
	}
	if rec.Location.State != "" {
		locParts = append(locParts, rec.Location.State)
	}
	if rec.Location.ZipCode != "" {
		locParts = append(locParts, "ZIP code "+rec.Location.ZipCode)
	}
	if len(locParts) > 0 {
		add("The property is " + strings.Join(locParts, ", "))
	}
	if d := rec.Location.CouncilDistrict; d != nil {
		add(fmt.Sprintf("The property is located in Council District %d", *d))
	}
	if j := rec.Location.Jurisdiction; j != "" {
		add("The project falls under " + j + " jurisdiction")
	}

	if c := rec.Contractor.Company; c != "" {
		add("The contractor for this project is " + c)
		if t := rec.Contractor.Trade; t != "" {
			add("The contractor specializes in " + strings.ToLower(t) + " work")
		}
		if n := rec.Contractor.FullName; n != "" {
			add("The primary contact person is " + n)
		}
	}
	if a := rec.Applicant.Name; a != "" {
		add("The permit applicant is " + a)
		if org := rec.Applicant.Organization; org != "" {
			add("The applicant represents " + org)
		}
	}

	if v := rec.Valuation.TotalJobValuation; v != nil && *v > 0 {
		add(fmt.Sprintf("The total project value is $%.0f", *v))
	}
	var sqft []string
	if v := rec.Valuation.TotalNewAdditionSqft; v != nil && *v > 0 {
		sqft = append(sqft, fmt.Sprintf("%.0f square feet of new addition", *v))
	}
	if v := rec.Valuation.TotalExistingBuildingSqft; v != nil && *v > 0 {
		sqft = append(sqft, fmt.Sprintf("%.0f square feet of existing building", *v))
	}
	if v := rec.Valuation.RemodelRepairSqft; v != nil && *v > 0 {
		sqft = append(sqft, fmt.Sprintf("%.0f square feet of remodel and repair work", *v))
	}
	if len(sqft) > 0 {
		add("The project includes " + strings.Join(sqft, ", "))
	}
	if f := rec.Valuation.NumberOfFloors; f != nil && *f > 0 {
		add(fmt.Sprintf("The building has %d %s", *f, plural(*f, "floor")))
	}
	if u := rec.Valuation.HousingUnits; u != nil && *u > 0 {
		add(fmt.Sprintf("The project includes %d %s", *u, plural(*u, "housing unit")))
	}
	if l := rec.Location.TotalLotSqft; l != nil && *l > 0 {
		add(fmt.Sprintf("The lot size is %.0f square feet", *l))
	}

	if d := rec.Dates.AppliedDate; d != nil {
		add("The permit application was submitted on " + d.Format("2006-01-02"))
	}
	if d := rec.Dates.IssueDate; d != nil {
		add("The permit was issued on " + d.Format("2006-01-02"))
	}
	if d := rec.Dates.ExpiresDate; d != nil {
		add("The permit expires on " + d.Format("2006-01-02"))
	}
	if d := rec.Dates.CompletedDate; d != nil {
		add("The project was completed on " + d.Format("2006-01-02"))
	}
	if y := rec.Dates.CalendarYearIssued; y != nil {
		add(fmt.Sprintf("This permit was processed in %d", *y))
	}

	if m := rec.Project.MasterPermitNumber; m != "" {
		add("This permit is associated with master permit " + m)
	}

	var conditions []string
	if f := rec.Flags.Condominium; f != nil && *f {
		conditions = append(conditions, "This is a condominium project")
	}
	if f := rec.Flags.CertificateOfOccupancy; f != nil && *f {
		conditions = append(conditions, "A certificate of occupancy is required")
	}
	if f := rec.Flags.RecentlyIssued; f != nil && *f {
		conditions = append(conditions, "This permit was recently issued")
	}
	if len(conditions) > 0 {
		add("Special conditions include: " + strings.Join(conditions, ", "))
	}

	return strings.Join(sentences, ". ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
