package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
)

// PDFUseCase genera la versión legible (PDF) de un DTE firmado.
// Solo se genera si la firma verifica con el certificado activo.
type PDFUseCase struct {
	verifier  dte.Verifier
	generator DocumentPDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando sus dependencias.
func NewPDFUseCase(verifier dte.Verifier, generator DocumentPDFGenerator) *PDFUseCase {
	return &PDFUseCase{verifier: verifier, generator: generator}
}

// Render verifica el token y genera el PDF del documento firmado.
//
// Retorna:
//   - (pdfBytes, filename, nil)   si todo sale bien.
//   - domain.ErrMalformedToken    token estructuralmente inválido o payload que no es un DTE.
//   - domain.ErrInvalidSignature  la firma no corresponde al certificado activo.
//   - domain.ErrPrecondition      no hay certificado cargado.
func (uc *PDFUseCase) Render(ctx context.Context, token string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Verificar firma ────────────────────────────────────────────────────
	res, err := uc.verifier.Verify(token)
	if err != nil {
		return nil, "", err
	}
	if !res.Valid {
		return nil, "", domain.ErrInvalidSignature
	}

	// ── 2. Decodificar documento ──────────────────────────────────────────────
	var doc entity.TaxDocument
	if err := json.Unmarshal(res.Payload, &doc); err != nil {
		return nil, "", fmt.Errorf("%w: el payload no es un DTE: %v", domain.ErrMalformedToken, err)
	}
	if doc.Identification.GenerationCode == "" || doc.Identification.ControlNumber == "" {
		return nil, "", fmt.Errorf("%w: el payload no tiene identificación de DTE", domain.ErrMalformedToken)
	}

	// ── 3. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.GenerateDocumentPDF(ctx, &doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, doc.Identification.ControlNumber + ".pdf", nil
}
