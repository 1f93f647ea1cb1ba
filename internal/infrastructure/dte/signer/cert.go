// Carga de certificado de firma desde .p12 (PKCS#12) o par PEM.

package signer

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturacion-dte/internal/domain"
)

// CertificateInfo metadatos públicos del certificado activo.
type CertificateInfo struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serialNumber"`
	TaxID        string    `json:"nit,omitempty"`
	ValidFrom    time.Time `json:"validFrom"`
	ValidTo      time.Time `json:"validTo"`
	Algorithm    string    `json:"algorithm"`
	Thumbprint   string    `json:"thumbprintSha256"`
}

// Certificate certificado hoja más su llave privada, listo para instalarse
// en el Service. La llave no se expone.
type Certificate struct {
	leaf   *x509.Certificate
	chain  []*x509.Certificate
	key    crypto.PrivateKey
	public crypto.PublicKey
	method jwt.SigningMethod
	header string
	info   CertificateInfo
}

// Info metadatos del certificado.
func (c *Certificate) Info() CertificateInfo { return c.info }

// ValidAt indica si t está dentro de la ventana notBefore/notAfter.
func (c *Certificate) ValidAt(t time.Time) bool {
	return !t.Before(c.leaf.NotBefore) && !t.After(c.leaf.NotAfter)
}

// ParsePKCS12 decodifica un contenedor .p12/.pfx. El certificado hoja es el
// que corresponde a la llave privada; el resto se conserva como cadena.
// Un certificado vencido se acepta: la vigencia se consulta con ValidAt.
func ParsePKCS12(data []byte, password string) (*Certificate, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: contenedor PKCS#12 vacío", domain.ErrCertificate)
	}
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, fmt.Errorf("%w: contraseña incorrecta", domain.ErrCertificate)
		}
		return nil, fmt.Errorf("%w: decodificar p12: %v", domain.ErrCertificate, err)
	}

	var (
		key   crypto.PrivateKey
		certs []*x509.Certificate
	)
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			if key != nil {
				return nil, fmt.Errorf("%w: el p12 contiene más de una llave privada", domain.ErrCertificate)
			}
			if key, err = parsePrivateKey(b.Bytes); err != nil {
				return nil, err
			}
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: parsear certificado: %v", domain.ErrCertificate, err)
			}
			certs = append(certs, c)
		}
	}
	return newCertificate(key, certs)
}

// ParsePEM construye el certificado desde PEM. keyPEM puede ir vacío si la
// llave viene en el mismo bloque que el certificado.
func ParsePEM(certPEM, keyPEM []byte) (*Certificate, error) {
	if len(keyPEM) == 0 {
		keyPEM = certPEM
	}
	var certs []*x509.Certificate
	for rest := certPEM; ; {
		var b *pem.Block
		b, rest = pem.Decode(rest)
		if b == nil {
			break
		}
		if b.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parsear certificado: %v", domain.ErrCertificate, err)
		}
		certs = append(certs, c)
	}
	var key crypto.PrivateKey
	for rest := keyPEM; key == nil; {
		var b *pem.Block
		b, rest = pem.Decode(rest)
		if b == nil {
			break
		}
		if !strings.HasSuffix(b.Type, "PRIVATE KEY") {
			continue
		}
		k, err := parsePrivateKey(b.Bytes)
		if err != nil {
			return nil, err
		}
		key = k
	}
	return newCertificate(key, certs)
}

// LoadFiles lee el certificado desde disco. Con keyPath vacío certPath es un
// .p12 protegido con password; si no, es un par PEM certificado/llave.
func LoadFiles(certPath, keyPath, password string) (*Certificate, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: leer %s: %v", domain.ErrCertificate, certPath, err)
	}
	if keyPath == "" {
		if bytes.HasPrefix(bytes.TrimSpace(certData), []byte("-----BEGIN")) {
			return ParsePEM(certData, nil)
		}
		return ParsePKCS12(certData, password)
	}
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: leer %s: %v", domain.ErrCertificate, keyPath, err)
	}
	return ParsePEM(certData, keyData)
}

// parsePrivateKey pkcs12.ToPEM entrega "PRIVATE KEY" con PKCS#1 (RSA) o SEC1 (EC);
// los archivos PEM suelen traer PKCS#8.
func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(der); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: formato de llave privada no reconocido", domain.ErrCertificate)
	}
	return k, nil
}

func newCertificate(key crypto.PrivateKey, certs []*x509.Certificate) (*Certificate, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: no se encontró la llave privada", domain.ErrCertificate)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no se encontró el certificado", domain.ErrCertificate)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: tipo de llave %T no soportado", domain.ErrCertificate, key)
	}
	method, err := signingMethod(key)
	if err != nil {
		return nil, err
	}

	var leaf *x509.Certificate
	chain := make([]*x509.Certificate, 0, len(certs))
	for _, c := range certs {
		if leaf == nil && publicKeyMatches(c.PublicKey, signer.Public()) {
			leaf = c
			continue
		}
		chain = append(chain, c)
	}
	if leaf == nil {
		return nil, fmt.Errorf("%w: ningún certificado corresponde a la llave privada", domain.ErrCertificate)
	}

	digest := sha256.Sum256(leaf.Raw)
	thumbprint := base64.RawURLEncoding.EncodeToString(digest[:])
	serial := strings.ToUpper(leaf.SerialNumber.Text(16))
	header, err := encodeHeader(Header{
		Algorithm:  method.Alg(),
		Type:       TokenType,
		KeyID:      serial,
		Thumbprint: thumbprint,
	})
	if err != nil {
		return nil, err
	}

	return &Certificate{
		leaf:   leaf,
		chain:  chain,
		key:    key,
		public: leaf.PublicKey,
		method: method,
		header: header,
		info: CertificateInfo{
			Subject:      leaf.Subject.String(),
			Issuer:       leaf.Issuer.String(),
			SerialNumber: serial,
			TaxID:        leaf.Subject.SerialNumber,
			ValidFrom:    leaf.NotBefore.UTC(),
			ValidTo:      leaf.NotAfter.UTC(),
			Algorithm:    method.Alg(),
			Thumbprint:   thumbprint,
		},
	}, nil
}

// signingMethod elige el algoritmo por el tipo de la llave: RSA firma con
// RS512, ECDSA con la curva correspondiente y Ed25519 con EdDSA.
func signingMethod(key crypto.PrivateKey) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS512, nil
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jwt.SigningMethodES256, nil
		case elliptic.P384():
			return jwt.SigningMethodES384, nil
		case elliptic.P521():
			return jwt.SigningMethodES512, nil
		}
		return nil, fmt.Errorf("%w: curva %s no soportada", domain.ErrCertificate, k.Curve.Params().Name)
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	}
	return nil, fmt.Errorf("%w: tipo de llave %T no soportado", domain.ErrCertificate, key)
}

func publicKeyMatches(certKey, keyPublic crypto.PublicKey) bool {
	k, ok := certKey.(interface{ Equal(crypto.PublicKey) bool })
	return ok && k.Equal(keyPublic)
}

// zeroize sobrescribe el material privado en memoria. Es de mejor esfuerzo:
// el runtime puede haber copiado o precalculado valores derivados.
func (c *Certificate) zeroize() {
	switch k := c.key.(type) {
	case *rsa.PrivateKey:
		k.D.SetInt64(0)
		for _, p := range k.Primes {
			p.SetInt64(0)
		}
	case *ecdsa.PrivateKey:
		k.D.SetInt64(0)
	case ed25519.PrivateKey:
		clear(k)
	}
	c.key = nil
}
