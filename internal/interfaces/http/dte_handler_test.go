package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/internal/application/billing"
	"github.com/jhoicas/facturacion-dte/internal/application/dto"
	domaindte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/dte/signer"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/secrets"
	apphttp "github.com/jhoicas/facturacion-dte/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/facturacion-dte/pkg/jwt"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servidor de prueba
// ──────────────────────────────────────────────────────────────────────────────

const (
	certPassword = "Prueba2024"
	masterKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

var vigente = time.Date(2027, 6, 1, 12, 0, 0, 0, time.UTC)

type memDocuments struct {
	mu   sync.Mutex
	docs map[string]*entity.IssuedDocument
}

func (m *memDocuments) Save(_ context.Context, d *entity.IssuedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string]*entity.IssuedDocument{}
	}
	m.docs[d.TenantID+"|"+d.GenerationCode] = d
	return nil
}

func (m *memDocuments) GetByGenerationCode(_ context.Context, tenantID, code string) (*entity.IssuedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[tenantID+"|"+code], nil
}

type fakePDF struct{}

func (fakePDF) GenerateDocumentPDF(_ context.Context, doc *entity.TaxDocument) ([]byte, error) {
	return []byte("%PDF-1.4 " + doc.Identification.ControlNumber), nil
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "infrastructure", "dte", "signer", "testdata", name))
	require.NoError(t, err)
	return data
}

// newServer arma el router completo con dependencias en memoria.
// certFile vacío deja el firmador sin certificado.
func newServer(t *testing.T, certFile string) (*fiber.App, *signer.Service) {
	t.Helper()
	sig := signer.NewService(func() time.Time { return vigente })
	if certFile != "" {
		_, err := sig.LoadCertificate(fixture(t, certFile), certPassword)
		require.NoError(t, err)
	}
	enc, err := secrets.NewEncryptionService(masterKeyHex)
	require.NoError(t, err)

	asm := domaindte.NewAssembler(domaindte.AssemblerConfig{Clock: func() time.Time { return vigente }})
	owner := billing.NewCertificateOwner("")
	issue := billing.NewIssueDocumentUseCase(asm, sig, nil, &memDocuments{}, logger.Nop()).WithCertificateOwner(owner)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		IssueUC:       issue,
		CredentialsUC: billing.NewCredentialsUseCase(nil, enc, sig, logger.Nop()).WithCertificateOwner(owner),
		PDFUC:         billing.NewPDFUseCase(sig, fakePDF{}),
		Signer:        sig,
		Environment:   "00",
		JWTSecret:     testJWTSecret,
		JWTIssuer:     testIssuer,
	})
	return app, sig
}

func send(t *testing.T, app *fiber.App, method, path, role string, body any) (*http.Response, []byte) {
	t.Helper()
	auth := ""
	if role != "" {
		auth = tokenForRole(t, role)
	}
	return sendAuth(t, app, method, path, auth, body)
}

func sendAuth(t *testing.T, app *fiber.App, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func facturaBody() map[string]any {
	return map[string]any{
		"issuer": map[string]any{
			"nit":  "06141234567890",
			"nrc":  "1234567",
			"name": "EMPRESA DE PRUEBAS SA DE CV",
		},
		"establishment_code": "0001",
		"sequence":           42,
		"items": []map[string]any{
			{"description": "Servicio mensual", "quantity": "2", "unit_price": "10.55", "tax_category": "gravado"},
		},
	}
}

func ccfBody() map[string]any {
	b := facturaBody()
	b["recipient"] = map[string]any{
		"nit":           "06149876543210",
		"nrc":           "765432",
		"name":          "CLIENTE CONTRIBUYENTE SA DE CV",
		"activity_code": "46900",
		"activity_desc": "Venta al por mayor",
		"address":       map[string]any{"department": "05", "municipality": "01", "complement": "Santa Tecla"},
		"email":         "compras@cliente.com.sv",
	}
	return b
}

func issueFactura(t *testing.T, app *fiber.App) dto.IssueDocumentResponse {
	t.Helper()
	resp, body := send(t, app, http.MethodPost, "/api/dte/facturas", pkgjwt.RoleEmisor, facturaBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out dto.IssueDocumentResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Emisión
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateFactura_Firmada(t *testing.T) {
	app, sig := newServer(t, "firma_rsa.p12")
	out := issueFactura(t, app)

	id := out.Document.Identification
	assert.Equal(t, "DTE-01-00000001-000000000000042", id.ControlNumber)
	assert.Equal(t, "00", id.Environment, "ambiente por defecto de la configuración")
	assert.Equal(t, "VEINTITRES 84/100 DOLARES", out.Document.Summary.TotalInWords)
	assert.Len(t, strings.Split(out.Token, "."), 3, "firma JWS compacta")

	res, err := sig.Verify(out.Token)
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestCreateCCF_Firmado(t *testing.T) {
	app, _ := newServer(t, "firma_ec.p12")
	resp, body := send(t, app, http.MethodPost, "/api/dte/ccf", pkgjwt.RoleAdmin, ccfBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	doc := out["documento"].(map[string]any)
	assert.Equal(t, "03", doc["identificacion"].(map[string]any)["tipoDte"])
	assert.Equal(t, "06149876543210", doc["receptor"].(map[string]any)["nit"])
}

func TestCreateCCF_SinReceptor400(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")
	resp, body := send(t, app, http.MethodPost, "/api/dte/ccf", pkgjwt.RoleEmisor, facturaBody())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "VALIDATION", e.Code)
	assert.Contains(t, e.Field, "receptor", "el error indica el campo")
}

func TestCreateFactura_Errores(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")

	noItems := facturaBody()
	delete(noItems, "items")
	resp, _ := send(t, app, http.MethodPost, "/api/dte/facturas", pkgjwt.RoleEmisor, noItems)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "sin líneas")

	badEnv := facturaBody()
	badEnv["environment"] = "07"
	resp, _ = send(t, app, http.MethodPost, "/api/dte/facturas", pkgjwt.RoleEmisor, badEnv)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "ambiente fuera de catálogo")

	req := httptest.NewRequest(http.MethodPost, "/api/dte/facturas", strings.NewReader("{no es json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, pkgjwt.RoleEmisor))
	r, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode, "cuerpo inválido")

	resp, _ = send(t, app, http.MethodPost, "/api/dte/facturas", pkgjwt.RoleConsulta, facturaBody())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "consulta no emite")

	resp, _ = send(t, app, http.MethodPost, "/api/dte/facturas", "", facturaBody())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateFactura_SinCertificado412(t *testing.T) {
	app, _ := newServer(t, "")
	resp, body := send(t, app, http.MethodPost, "/api/dte/facturas", pkgjwt.RoleEmisor, facturaBody())
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Contains(t, string(body), "CERTIFICATE_NOT_LOADED")
}

func TestCreateFactura_CertificadoVencido412(t *testing.T) {
	app, _ := newServer(t, "firma_vencida.p12")
	resp, body := send(t, app, http.MethodPost, "/api/dte/facturas", pkgjwt.RoleEmisor, facturaBody())
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Contains(t, string(body), "CERTIFICATE_EXPIRED")
}

// ──────────────────────────────────────────────────────────────────────────────
// Verificación, decodificación, PDF y bitácora
// ──────────────────────────────────────────────────────────────────────────────

func TestVerify(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")
	out := issueFactura(t, app)

	resp, body := send(t, app, http.MethodPost, "/api/dte/verify", pkgjwt.RoleConsulta, dto.TokenRequest{Token: out.Token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ok dto.VerifyResponse
	require.NoError(t, json.Unmarshal(body, &ok))
	assert.True(t, ok.Valid)
	assert.Contains(t, string(ok.Payload), out.Document.Identification.GenerationCode)

	resp, body = send(t, app, http.MethodPost, "/api/dte/verify", pkgjwt.RoleConsulta, dto.TokenRequest{Token: tamperSignature(out.Token)})
	require.Equal(t, http.StatusOK, resp.StatusCode, "firma alterada no es error HTTP")
	var bad dto.VerifyResponse
	require.NoError(t, json.Unmarshal(body, &bad))
	assert.False(t, bad.Valid)
	assert.Empty(t, bad.Payload)

	resp, _ = send(t, app, http.MethodPost, "/api/dte/verify", pkgjwt.RoleConsulta, dto.TokenRequest{Token: "a.b"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "token mal formado")

	resp, _ = send(t, app, http.MethodPost, "/api/dte/verify", pkgjwt.RoleConsulta, dto.TokenRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "token vacío")
}

func TestVerify_SinCertificado412(t *testing.T) {
	app, _ := newServer(t, "")
	resp, _ := send(t, app, http.MethodPost, "/api/dte/verify", pkgjwt.RoleConsulta, dto.TokenRequest{Token: "a.b.c"})
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestDecode_NoVerifica(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")
	out := issueFactura(t, app)

	resp, body := send(t, app, http.MethodPost, "/api/dte/decode", pkgjwt.RoleConsulta, dto.TokenRequest{Token: out.Token})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dec struct {
		Header   map[string]any  `json:"header"`
		Payload  json.RawMessage `json:"payload"`
		Verified bool            `json:"verified"`
	}
	require.NoError(t, json.Unmarshal(body, &dec))
	assert.False(t, dec.Verified, "decodificar nunca marca como verificado")
	assert.Equal(t, "RS512", dec.Header["alg"])
	assert.Equal(t, "1A2B3C4D", dec.Header["kid"])
	assert.Contains(t, string(dec.Payload), "DTE-01-00000001-000000000000042")
}

func TestPDF(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")
	out := issueFactura(t, app)

	resp, body := send(t, app, http.MethodPost, "/api/dte/pdf", pkgjwt.RoleConsulta, dto.TokenRequest{Token: out.Token})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "DTE-01-00000001-000000000000042.pdf")
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, _ = send(t, app, http.MethodPost, "/api/dte/pdf", pkgjwt.RoleConsulta, dto.TokenRequest{Token: tamperSignature(out.Token)})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "firma inválida no genera PDF")
}

// tamperSignature cambia el primer carácter de la firma.
func tamperSignature(token string) string {
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	return parts[0] + "." + parts[1] + "." + string(sig)
}

func TestGetByCode(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")
	out := issueFactura(t, app)
	code := out.Document.Identification.GenerationCode

	resp, body := send(t, app, http.MethodGet, "/api/dte/"+strings.ToLower(code), pkgjwt.RoleConsulta, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var got dto.IssuedDocumentResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, out.Token, got.Token)
	assert.Equal(t, "23.84", got.TotalPayable.StringFixed(2))

	resp, _ = send(t, app, http.MethodGet, "/api/dte/00000000-0000-4000-8000-000000000000", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Certificado
// ──────────────────────────────────────────────────────────────────────────────

func multipartCert(t *testing.T, file []byte, password string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "firma.p12")
	require.NoError(t, err)
	_, err = fw.Write(file)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("password", password))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func uploadCert(t *testing.T, app *fiber.App, role string, file []byte, password string) (*http.Response, []byte) {
	t.Helper()
	return uploadCertAuth(t, app, tokenForRole(t, role), file, password)
}

func uploadCertAuth(t *testing.T, app *fiber.App, auth string, file []byte, password string) (*http.Response, []byte) {
	t.Helper()
	body, ct := multipartCert(t, file, password)
	req := httptest.NewRequest(http.MethodPost, "/api/certificate", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestCertificate_GetSinCertificado404(t *testing.T) {
	app, _ := newServer(t, "")
	resp, body := send(t, app, http.MethodGet, "/api/certificate", pkgjwt.RoleConsulta, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "CERTIFICATE_NOT_LOADED")
}

func TestCertificate_Get(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")
	resp, body := send(t, app, http.MethodGet, "/api/certificate", pkgjwt.RoleConsulta, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info dto.CertificateResponse
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "1A2B3C4D", info.SerialNumber)
	assert.Equal(t, "RS512", info.Algorithm)
	assert.Equal(t, "06141234567890", info.TaxID)
	assert.True(t, info.Valid)
}

func TestCertificate_UploadReemplazaActivo(t *testing.T) {
	app, sig := newServer(t, "firma_rsa.p12")

	resp, body := uploadCert(t, app, pkgjwt.RoleAdmin, fixture(t, "firma_ec.p12"), certPassword)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var info dto.CertificateResponse
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "ES256", info.Algorithm)
	assert.True(t, info.Valid)

	active, err := sig.CertificateInfo()
	require.NoError(t, err)
	assert.Equal(t, "ES256", active.Algorithm, "el certificado subido queda activo")
}

func TestCertificate_UploadErrores(t *testing.T) {
	app, sig := newServer(t, "firma_rsa.p12")

	resp, _ := uploadCert(t, app, pkgjwt.RoleAdmin, fixture(t, "firma_ec.p12"), "incorrecta")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "contraseña incorrecta")

	resp, _ = uploadCert(t, app, pkgjwt.RoleEmisor, fixture(t, "firma_ec.p12"), certPassword)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "solo admin sube certificados")

	active, err := sig.CertificateInfo()
	require.NoError(t, err)
	assert.Equal(t, "RS512", active.Algorithm, "un intento fallido no reemplaza el certificado")
}

func TestCertificate_OtroTenant403(t *testing.T) {
	app, sig := newServer(t, "")
	otro := pkgjwt.Identity{UserID: testUserID, TenantID: "00000000-0000-0000-0000-000000000003", Role: pkgjwt.RoleAdmin}
	otroAuth := signToken(t, otro, testIssuer, time.Hour)

	resp, body := uploadCert(t, app, pkgjwt.RoleAdmin, fixture(t, "firma_rsa.p12"), certPassword)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = uploadCertAuth(t, app, otroAuth, fixture(t, "firma_ec.p12"), certPassword)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, string(body))
	active, err := sig.CertificateInfo()
	require.NoError(t, err)
	assert.Equal(t, "RS512", active.Algorithm, "sigue activo el certificado del primer tenant")

	resp, _ = sendAuth(t, app, http.MethodGet, "/api/certificate", otroAuth, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = sendAuth(t, app, http.MethodPost, "/api/dte/facturas", otroAuth, facturaBody())
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode, string(body))

	resp, body = send(t, app, http.MethodPost, "/api/dte/facturas", pkgjwt.RoleAdmin, facturaBody())
	assert.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestHealth(t *testing.T) {
	app, _ := newServer(t, "firma_rsa.p12")
	resp, body := send(t, app, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","certificate":true}`, string(body))
}
