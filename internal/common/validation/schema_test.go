package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentSchema() JSONSchema {
	return JSONSchema{
		Type:     "object",
		Required: []string{"installmentId", "amount", "reference"},
		Properties: map[string]Property{
			"installmentId": {Type: "string", MinLength: IntPtr(1)},
			"amount":        {Type: "string", Pattern: `^\d+(\.\d{1,2})?$`},
			"reference":     {Type: "string", MinLength: IntPtr(1), MaxLength: IntPtr(64)},
			"channel":       {Type: "string", Enum: []string{"BANK_TRANSFER", "CARD"}},
		},
		AdditionalProperties: BoolPtr(false),
	}
}

func TestValidate_Valid(t *testing.T) {
	res, err := Validate([]byte(`{"installmentId":"i-1","amount":"250.00","reference":"r-1"}`), paymentSchema())
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidate_ReportsEachViolation(t *testing.T) {
	res, err := Validate([]byte(`{"installmentId":"i-1","amount":"2.505","channel":"CASH","extra":1}`), paymentSchema())
	require.NoError(t, err)
	assert.False(t, res.Valid)

	assert.True(t, res.HasErrors("reference"))
	assert.True(t, res.HasErrors("amount"))
	assert.True(t, res.HasErrors("channel"))

	codes := map[string]bool{}
	for _, e := range res.Errors {
		codes[e.Code] = true
	}
	assert.True(t, codes["REQUIRED_FIELD_MISSING"])
	assert.True(t, codes["PATTERN_MISMATCH"])
	assert.True(t, codes["INVALID_ENUM_VALUE"])
	assert.True(t, codes["EXTRA_FIELD"])
	assert.Len(t, res.GetErrorMessages(), len(res.Errors))
}

func TestValidate_NotJSON(t *testing.T) {
	res, err := Validate([]byte(`{oops`), paymentSchema())
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "PARSE_ERROR", res.Errors[0].Code)
}

func TestValidateInput_Map(t *testing.T) {
	res := ValidateInput(map[string]interface{}{"installmentId": "i-1", "amount": 12, "reference": "r"}, paymentSchema())
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("amount"))
}
