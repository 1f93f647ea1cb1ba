// apitoken emite un token de API (Bearer) para operar la API de DTE.
//
// Uso: go run ./cmd/apitoken -tenant <id> [-user <id>] [-role emisor] [-ttl 60m]
// Firma con JWT_SECRET y JWT_ISSUER; sin -ttl usa JWT_EXPIRATION_MINUTES.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/facturacion-dte/pkg/config"
	"github.com/jhoicas/facturacion-dte/pkg/jwt"
)

func main() {
	cfg := config.Read()
	tenant := flag.String("tenant", cfg.DTE.TenantID, "tenant emisor")
	user := flag.String("user", "", "usuario (por defecto un UUID nuevo)")
	role := flag.String("role", jwt.RoleEmisor, "admin | emisor | consulta")
	ttl := flag.Duration("ttl", time.Duration(cfg.JWT.Expiration)*time.Minute, "vigencia del token")
	flag.Parse()

	id := jwt.Identity{UserID: *user, TenantID: *tenant, Role: *role}
	if err := validate(id, cfg.JWT.Secret); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(2)
	}
	if id.UserID == "" {
		id.UserID = uuid.NewString()
	}

	tok, err := jwt.Generate(cfg.JWT.Secret, id, cfg.JWT.Issuer, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func validate(id jwt.Identity, secret string) error {
	switch {
	case secret == "":
		return fmt.Errorf("JWT_SECRET no está definido")
	case id.TenantID == "":
		return fmt.Errorf("indique -tenant o DTE_TENANT_ID")
	case !jwt.KnownRole(id.Role):
		return fmt.Errorf("rol desconocido %q", id.Role)
	}
	return nil
}
