package dte_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

func TestValidateDUI(t *testing.T) {
	tests := []struct {
		name    string
		dui     string
		wantErr bool
	}{
		{"con guion", "01234567-8", false},
		{"sin guion", "012345678", false},
		{"digito incorrecto", "01234567-9", true},
		{"longitud corta", "1234567-8", true},
		{"vacio", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dte.ValidateDUI(tt.dui)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeNIT(t *testing.T) {
	nit, err := dte.NormalizeNIT("0614-010190-101-3")
	require.NoError(t, err)
	assert.Equal(t, "06140101901013", nit)

	nit, err = dte.NormalizeNIT("01234567-8")
	require.NoError(t, err, "un DUI homologado es un NIT válido")
	assert.Equal(t, "012345678", nit)

	_, err = dte.NormalizeNIT("123")
	assert.Error(t, err)
}
