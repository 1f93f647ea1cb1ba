// seed_credentials genera el SQL que registra el certificado de firma de un tenant.
// La contraseña se cifra con DTE_MASTER_KEY, la misma llave que usa la API.
//
// Uso: go run ./cmd/seed_credentials -tenant <id> -cert firma.p12 -password <clave> [-out archivo.sql]
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/secrets"
	"github.com/jhoicas/facturacion-dte/pkg/config"
)

func main() {
	cfg := config.Read()
	tenant := flag.String("tenant", cfg.DTE.TenantID, "tenant dueño del certificado")
	certPath := flag.String("cert", cfg.DTE.CertPath, "ruta del .p12")
	password := flag.String("password", cfg.DTE.CertPassword, "contraseña del .p12 en claro")
	out := flag.String("out", "", "archivo de salida (vacío = stdout)")
	flag.Parse()

	if *tenant == "" || *certPath == "" {
		fmt.Fprintln(os.Stderr, "uso: seed_credentials -tenant <id> -cert <ruta.p12> -password <clave>")
		os.Exit(2)
	}
	if cfg.Crypto.MasterKey == "" {
		fmt.Fprintln(os.Stderr, "DTE_MASTER_KEY es obligatoria: una llave efímera dejaría la contraseña irrecuperable")
		os.Exit(1)
	}

	cipher, err := secrets.NewEncryptionService(cfg.Crypto.MasterKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Llave maestra: %v\n", err)
		os.Exit(1)
	}
	p12, err := os.ReadFile(*certPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer certificado: %v\n", err)
		os.Exit(1)
	}
	cert, err := signer.ParsePKCS12(p12, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Certificado: %v\n", err)
		os.Exit(1)
	}
	enc, err := cipher.Encrypt(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cifrar contraseña: %v\n", err)
		os.Exit(1)
	}

	info := cert.Info()
	sql := credentialUpsertSQL(&entity.SigningCredential{
		TenantID:     *tenant,
		Certificate:  p12,
		PasswordEnc:  enc,
		Subject:      info.Subject,
		SerialNumber: info.SerialNumber,
		ValidTo:      info.ValidTo,
		UpdatedAt:    time.Now().UTC(),
	})

	if *out == "" {
		fmt.Print(sql)
		return
	}
	if err := os.WriteFile(*out, []byte(sql), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Escrito %s (serie %s, vence %s)\n", *out, info.SerialNumber, info.ValidTo.Format(time.DateOnly))
}

// credentialUpsertSQL sentencia equivalente a SigningCredentialRepo.Upsert.
func credentialUpsertSQL(c *entity.SigningCredential) string {
	var b strings.Builder
	b.WriteString("-- Generado por seed_credentials. Contiene el certificado y la contraseña cifrada.\n")
	b.WriteString("INSERT INTO signing_credentials\n")
	b.WriteString("    (tenant_id, certificate, password_enc, subject, serial_number, valid_to, updated_at)\n")
	fmt.Fprintf(&b, "VALUES\n    (%s, decode('%s', 'hex'), %s, %s, %s, %s, %s)\n",
		quote(c.TenantID),
		hex.EncodeToString(c.Certificate),
		quote(c.PasswordEnc),
		quote(c.Subject),
		quote(c.SerialNumber),
		quote(c.ValidTo.UTC().Format(time.RFC3339)),
		quote(c.UpdatedAt.UTC().Format(time.RFC3339)),
	)
	b.WriteString("ON CONFLICT (tenant_id) DO UPDATE SET\n")
	b.WriteString("    certificate   = EXCLUDED.certificate,\n")
	b.WriteString("    password_enc  = EXCLUDED.password_enc,\n")
	b.WriteString("    subject       = EXCLUDED.subject,\n")
	b.WriteString("    serial_number = EXCLUDED.serial_number,\n")
	b.WriteString("    valid_to      = EXCLUDED.valid_to,\n")
	b.WriteString("    updated_at    = EXCLUDED.updated_at;\n")
	return b.String()
}

// quote literal SQL con comillas simples escapadas.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
