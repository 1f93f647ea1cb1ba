package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
)

func TestAmount_MarshalJSON(t *testing.T) {
	cases := map[string]string{
		"0.00":                   "0",
		"10.50":                  "10.5",
		"23.84":                  "23.84",
		"90000000000000.07":      "90000000000000.07",
		"0.12345678901234567890": "0.1234567890123456789",
		"-1.10":                  "-1.1",
	}
	for in, want := range cases {
		raw, err := json.Marshal(entity.NewAmount(decimal.RequireFromString(in)))
		require.NoError(t, err, in)
		assert.Equal(t, want, string(raw), "monto %s", in)
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var a entity.Amount
	require.NoError(t, json.Unmarshal([]byte(`90000000000000.07`), &a))
	assert.True(t, a.Equal(decimal.RequireFromString("90000000000000.07")), "sin pasar por float64")

	require.NoError(t, json.Unmarshal([]byte(`"12.30"`), &a))
	assert.True(t, a.Equal(decimal.RequireFromString("12.3")))

	assert.Error(t, json.Unmarshal([]byte(`"doce"`), &a))
}
