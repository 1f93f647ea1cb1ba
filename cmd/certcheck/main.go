// certcheck diagnostica un certificado de firma (.p12, o .crt + .key PEM).
//
// Uso: go run ./cmd/certcheck [-cert ruta] [-key ruta] [-password clave]
// Sin flags usa DTE_CERT_PATH, DTE_CERT_KEY_PATH y DTE_CERT_PASSWORD; si la
// contraseña está cifrada se descifra con DTE_MASTER_KEY.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/secrets"
	"github.com/jhoicas/facturacion-dte/pkg/config"
)

func main() {
	cfg := config.Read()
	certPath := flag.String("cert", cfg.DTE.CertPath, "ruta del certificado (.p12 o .crt/.pem)")
	keyPath := flag.String("key", cfg.DTE.CertKeyPath, "ruta de la llave privada PEM (opcional)")
	password := flag.String("password", cfg.DTE.CertPassword, "contraseña del .p12 (en claro o cifrada)")
	flag.Parse()

	if *certPath == "" {
		fmt.Fprintln(os.Stderr, "indique -cert o DTE_CERT_PATH")
		os.Exit(2)
	}

	fmt.Println("🔍 DIAGNÓSTICO DE CERTIFICADO DE FIRMA")
	fmt.Println("--------------------------------------")
	fmt.Printf("📂 Archivo: %s\n", *certPath)

	// 1. Archivo legible
	st, err := os.Stat(*certPath)
	if err != nil {
		fail("ERROR DE ARCHIVO", err)
	}
	fmt.Printf("✅ Archivo encontrado. Tamaño: %d bytes\n", st.Size())

	// 2. Contraseña cifrada
	pw := *password
	if secrets.IsEncrypted(pw) {
		fmt.Println("\n🔑 La contraseña parece cifrada, descifrando con DTE_MASTER_KEY...")
		if cfg.Crypto.MasterKey == "" {
			fail("SIN LLAVE MAESTRA", fmt.Errorf("DTE_MASTER_KEY es necesaria para descifrar la contraseña"))
		}
		cipher, err := secrets.NewEncryptionService(cfg.Crypto.MasterKey)
		if err != nil {
			fail("LLAVE MAESTRA INVÁLIDA", err)
		}
		if pw, err = cipher.Decrypt(pw); err != nil {
			fail("NO SE PUDO DESCIFRAR LA CONTRASEÑA", err)
		}
		fmt.Printf("✅ Contraseña descifrada (%s)\n", secrets.Mask(pw, 2))
	}

	// 3. Certificado y llave
	fmt.Println("\n🔐 Abriendo certificado...")
	cert, err := signer.LoadFiles(*certPath, *keyPath, pw)
	if err != nil {
		fail("ERROR DE CONTRASEÑA O FORMATO", err)
	}
	info := cert.Info()
	fmt.Printf("   Sujeto:     %s\n", info.Subject)
	fmt.Printf("   Emisor:     %s\n", info.Issuer)
	fmt.Printf("   Serie:      %s\n", info.SerialNumber)
	if info.TaxID != "" {
		fmt.Printf("   NIT:        %s\n", info.TaxID)
	}
	fmt.Printf("   Vigencia:   %s → %s\n", info.ValidFrom.Format(time.DateOnly), info.ValidTo.Format(time.DateOnly))
	fmt.Printf("   Algoritmo:  %s\n", info.Algorithm)
	fmt.Printf("   Huella:     %s\n", info.Thumbprint)

	// 4. Vigencia
	if !cert.ValidAt(time.Now()) {
		fmt.Println("\n⚠️  El certificado NO está vigente: se puede cargar, pero no firmará documentos.")
		os.Exit(1)
	}
	fmt.Println("\n✨ ¡ÉXITO! El certificado y la contraseña son correctos.")
}

func fail(title string, err error) {
	fmt.Printf("\n❌ %s:\n   %v\n", title, err)
	os.Exit(1)
}
