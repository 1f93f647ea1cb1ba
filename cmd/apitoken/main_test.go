package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/facturacion-dte/pkg/jwt"
)

func TestValidate(t *testing.T) {
	ok := jwt.Identity{TenantID: "t-1", Role: jwt.RoleConsulta}
	assert.NoError(t, validate(ok, "s"))

	assert.Error(t, validate(ok, ""), "sin secreto")
	assert.Error(t, validate(jwt.Identity{Role: jwt.RoleAdmin}, "s"), "sin tenant")
	assert.Error(t, validate(jwt.Identity{TenantID: "t-1", Role: "root"}, "s"), "rol desconocido")
}
