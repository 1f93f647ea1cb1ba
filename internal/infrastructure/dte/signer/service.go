// Servicio de firma de DTE: mantiene el certificado activo y produce/verifica
// tokens JWS compactos (header.payload.firma).

package signer

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

var (
	_ dte.Signer   = (*Service)(nil)
	_ dte.Verifier = (*Service)(nil)
)

// state del servicio: unloaded (inicial) o loaded con el certificado activo.
type state interface{ isState() }

type unloaded struct{}

type loaded struct{ cert *Certificate }

func (unloaded) isState() {}
func (loaded) isState()   {}

// Service firma y verifica con un único certificado activo.
// LoadCertificate toma acceso exclusivo y reemplaza el certificado; Sign,
// Verify y las consultas de estado toman acceso compartido.
type Service struct {
	mu    sync.RWMutex
	state state
	now   func() time.Time
}

// NewService crea el servicio sin certificado. clock nil usa time.Now.
func NewService(clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{state: unloaded{}, now: clock}
}

// LoadCertificate decodifica un .p12 y lo instala como certificado activo.
// Un certificado vencido se carga igual; consulte IsCertificateValid.
func (s *Service) LoadCertificate(data []byte, password string) (CertificateInfo, error) {
	c, err := ParsePKCS12(data, password)
	if err != nil {
		return CertificateInfo{}, err
	}
	return s.Install(c), nil
}

// LoadCertificatePEM instala un par certificado/llave en PEM.
func (s *Service) LoadCertificatePEM(certPEM, keyPEM []byte) (CertificateInfo, error) {
	c, err := ParsePEM(certPEM, keyPEM)
	if err != nil {
		return CertificateInfo{}, err
	}
	return s.Install(c), nil
}

// Install reemplaza el certificado activo y borra de memoria la llave anterior.
func (s *Service) Install(c *Certificate) CertificateInfo {
	s.mu.Lock()
	prev := s.state
	s.state = loaded{cert: c}
	s.mu.Unlock()

	if p, ok := prev.(loaded); ok && p.cert != c {
		p.cert.zeroize()
	}
	return c.Info()
}

// Close borra la llave activa. Solo debe llamarse al apagar el proceso.
func (s *Service) Close() {
	s.mu.Lock()
	prev := s.state
	s.state = unloaded{}
	s.mu.Unlock()

	if p, ok := prev.(loaded); ok {
		p.cert.zeroize()
	}
}

// IsCertificateLoaded indica si hay un certificado activo.
func (s *Service) IsCertificateLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.(loaded)
	return ok
}

// IsCertificateValid indica si hay certificado activo y la hora actual está
// dentro de su vigencia.
func (s *Service) IsCertificateValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.(loaded)
	return ok && l.cert.ValidAt(s.now())
}

// CertificateInfo metadatos del certificado activo.
func (s *Service) CertificateInfo() (CertificateInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.(loaded)
	if !ok {
		return CertificateInfo{}, domain.ErrCertificateNotLoaded
	}
	return l.cert.Info(), nil
}

// Sign canoniza payload a JSON y lo firma con la llave activa.
// Requiere un certificado cargado y vigente.
func (s *Service) Sign(payload any) (string, error) {
	body, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.(loaded)
	if !ok {
		return "", notLoaded()
	}
	c := l.cert
	if !c.ValidAt(s.now()) {
		return "", fmt.Errorf("%w: %w (vigencia %s a %s)", domain.ErrPrecondition, domain.ErrCertificateExpired,
			c.info.ValidFrom.Format(time.DateOnly), c.info.ValidTo.Format(time.DateOnly))
	}

	signingInput := c.header + "." + segmentEncoding.EncodeToString(body)
	sig, err := c.method.Sign(signingInput, c.key)
	if err != nil {
		return "", fmt.Errorf("%w: firmar: %v", domain.ErrCertificate, err)
	}
	return signingInput + "." + segmentEncoding.EncodeToString(sig), nil
}

// Verify comprueba el token con la llave pública del certificado activo.
// Una firma que no coincide devuelve Valid=false sin error; solo un token
// estructuralmente inválido devuelve domain.ErrMalformedToken.
// No exige vigencia: un documento firmado antes del vencimiento sigue siendo verificable.
func (s *Service) Verify(token string) (dte.VerificationResult, error) {
	s.mu.RLock()
	l, ok := s.state.(loaded)
	s.mu.RUnlock()
	if !ok {
		return dte.VerificationResult{}, notLoaded()
	}
	c := l.cert

	parts, err := splitToken(token)
	if err != nil {
		return dte.VerificationResult{}, err
	}
	header, err := decodeHeaderSegment(parts[0])
	if err != nil {
		return dte.VerificationResult{}, err
	}
	payload, err := segmentEncoding.DecodeString(parts[1])
	if err != nil {
		return dte.VerificationResult{}, fmt.Errorf("%w: payload no es base64url", domain.ErrMalformedToken)
	}
	sig, err := segmentEncoding.DecodeString(parts[2])
	if err != nil {
		return dte.VerificationResult{}, fmt.Errorf("%w: firma no es base64url", domain.ErrMalformedToken)
	}

	// Una codificación no canónica de la firma (bits de relleno alterados)
	// decodifica a los mismos bytes; se trata como alteración.
	if segmentEncoding.EncodeToString(sig) != parts[2] || header.Algorithm != c.method.Alg() {
		return dte.VerificationResult{Valid: false}, nil
	}
	if err := c.method.Verify(parts[0]+"."+parts[1], sig, c.public); err != nil {
		return dte.VerificationResult{Valid: false}, nil
	}
	if !json.Valid(payload) {
		return dte.VerificationResult{}, fmt.Errorf("%w: payload no es JSON", domain.ErrMalformedToken)
	}
	return dte.VerificationResult{Valid: true, Payload: payload}, nil
}

func notLoaded() error {
	return fmt.Errorf("%w: %w", domain.ErrPrecondition, domain.ErrCertificateNotLoaded)
}
