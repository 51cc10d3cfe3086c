package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "suvidha/pkg/domain-errors"
)

// TestOfficerCodeFormat pins the byte-stable identifier format; existing
// records depend on it.
func TestOfficerCodeFormat(t *testing.T) {
	t.Run("zero-pads sequence to four digits", func(t *testing.T) {
		code := FormatOfficerCode("WATER", "BILLING", 2026, 7)
		assert.Equal(t, OfficerCode("WATER_BILLING_2026_0007"), code)
	})

	t.Run("first code for a prefix starts at 1", func(t *testing.T) {
		code, err := NextOfficerCode("WATER", "BILLING", 2026, "")
		require.NoError(t, err)
		assert.Equal(t, OfficerCode("WATER_BILLING_2026_0001"), code)
	})

	t.Run("increments the trailing sequence", func(t *testing.T) {
		code, err := NextOfficerCode("WATER", "BILLING", 2026, "WATER_BILLING_2026_0041")
		require.NoError(t, err)
		assert.Equal(t, OfficerCode("WATER_BILLING_2026_0042"), code)
	})

	t.Run("sequence grows past four digits without truncation", func(t *testing.T) {
		code, err := NextOfficerCode("WATER", "BILLING", 2026, "WATER_BILLING_2026_9999")
		require.NoError(t, err)
		assert.Equal(t, OfficerCode("WATER_BILLING_2026_10000"), code)
	})

	t.Run("rejects code from a different prefix", func(t *testing.T) {
		_, err := NextOfficerCode("WATER", "BILLING", 2026, "ROADS_POTHOLE_2026_0001")
		require.Error(t, err)
	})
}

func TestParseOfficerCode(t *testing.T) {
	t.Run("accepts well-formed code", func(t *testing.T) {
		code, err := ParseOfficerCode("water_billing_2026_0007")
		require.NoError(t, err)
		assert.Equal(t, OfficerCode("WATER_BILLING_2026_0007"), code)
	})

	t.Run("rejects missing parts", func(t *testing.T) {
		_, err := ParseOfficerCode("WATER_2026_0007")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-numeric sequence", func(t *testing.T) {
		_, err := ParseOfficerCode("WATER_BILLING_2026_00AB")
		require.Error(t, err)
	})
}

func TestComplaintNumberFormat(t *testing.T) {
	t.Run("renders SUV year and six digit sequence", func(t *testing.T) {
		assert.Equal(t, ComplaintNumber("SUV2026000123"), FormatComplaintNumber(2026, 123))
	})

	t.Run("round-trips through parse", func(t *testing.T) {
		n, err := ParseComplaintNumber("SUV2026000123")
		require.NoError(t, err)
		assert.Equal(t, FormatComplaintNumber(2026, 123), n)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseComplaintNumber("SUV202600123")
		require.Error(t, err)
	})
}
