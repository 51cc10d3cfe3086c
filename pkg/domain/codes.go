package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "suvidha/pkg/domain-errors"
)

// OfficerCode is the generated officer identifier in the byte-stable format
// {DEPT}_{SUBDEPT}_{YEAR}_{SEQ}, e.g. WATER_BILLING_2026_0007. The trailing
// sequence is zero-padded to four digits and strictly increasing within a
// department/sub-department/year prefix.
type OfficerCode string

func (c OfficerCode) IsZero() bool   { return c == "" }
func (c OfficerCode) String() string { return string(c) }

// OfficerCodePrefix returns the prefix shared by all officers created for the
// same department, sub-department and year, including the trailing underscore.
func OfficerCodePrefix(dept DepartmentID, sub SubDepartmentID, year int) string {
	return fmt.Sprintf("%s_%s_%d_", dept, sub, year)
}

// FormatOfficerCode renders an officer code for the given prefix parts and
// sequence number.
func FormatOfficerCode(dept DepartmentID, sub SubDepartmentID, year, seq int) OfficerCode {
	return OfficerCode(fmt.Sprintf("%s%04d", OfficerCodePrefix(dept, sub, year), seq))
}

// NextOfficerCode computes the successor of the lexicographically greatest
// existing code for a prefix. An empty current code yields sequence 1.
func NextOfficerCode(dept DepartmentID, sub SubDepartmentID, year int, current OfficerCode) (OfficerCode, error) {
	if current.IsZero() {
		return FormatOfficerCode(dept, sub, year, 1), nil
	}
	prefix := OfficerCodePrefix(dept, sub, year)
	tail, ok := strings.CutPrefix(string(current), prefix)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInternal, "officer code %q does not match prefix %q", current, prefix)
	}
	seq, err := strconv.Atoi(tail)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeInternal, "officer code %q has malformed sequence", current)
	}
	return FormatOfficerCode(dept, sub, year, seq+1), nil
}

// ParseOfficerCode validates external input shaped like an officer code.
func ParseOfficerCode(s string) (OfficerCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	parts := strings.Split(s, "_")
	if len(parts) != 4 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid officer code")
	}
	for _, p := range parts {
		if p == "" {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid officer code")
		}
	}
	if _, err := strconv.Atoi(parts[3]); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid officer code sequence")
	}
	return OfficerCode(s), nil
}

// ComplaintNumber is the citizen-facing complaint identifier in the
// byte-stable format SUV{YEAR}{SEQ}, with a six digit sequence, e.g.
// SUV2026000123. Sequences restart each year.
type ComplaintNumber string

func (n ComplaintNumber) IsZero() bool   { return n == "" }
func (n ComplaintNumber) String() string { return string(n) }

// FormatComplaintNumber renders a complaint number for a year and sequence.
func FormatComplaintNumber(year, seq int) ComplaintNumber {
	return ComplaintNumber(fmt.Sprintf("SUV%d%06d", year, seq))
}

// ParseComplaintNumber validates external input shaped like a complaint number.
func ParseComplaintNumber(s string) (ComplaintNumber, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "SUV") || len(s) != len("SUV")+4+6 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid complaint number")
	}
	if _, err := strconv.Atoi(s[3:]); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid complaint number")
	}
	return ComplaintNumber(s), nil
}
