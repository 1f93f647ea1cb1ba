package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	domaindte "github.com/jhoicas/facturacion-dte/internal/domain/dte"
	"github.com/jhoicas/facturacion-dte/internal/domain/entity"
	"github.com/jhoicas/facturacion-dte/internal/domain/repository"
	"github.com/jhoicas/facturacion-dte/pkg/dte"
	"github.com/jhoicas/facturacion-dte/pkg/logger"
)

// IssuedDocument resultado de una emisión: el documento y su token firmado.
type IssuedDocument struct {
	Document    entity.TaxDocument
	SignedToken string
}

// IssueDocumentUseCase ensambla y firma un DTE:
//
//	correlativo (opcional) → ensamblado → firma → bitácora (opcional)
//
// La transmisión al Ministerio de Hacienda no forma parte de este caso de uso.
type IssueDocumentUseCase struct {
	assembler DocumentAssembler
	signer    dte.Signer
	sequences repository.SequenceRepository      // nil: el llamador envía el correlativo
	documents repository.IssuedDocumentRepository // nil: no se guarda bitácora
	tx        IssueTxRunner                       // nil: sin transacción
	owner     *CertificateOwner                   // nil: cualquier tenant firma
	log       *logger.Logger
	now       func() time.Time
}

// NewIssueDocumentUseCase construye el caso de uso. sequences y documents pueden ser nil.
func NewIssueDocumentUseCase(
	assembler DocumentAssembler,
	signer dte.Signer,
	sequences repository.SequenceRepository,
	documents repository.IssuedDocumentRepository,
	log *logger.Logger,
) *IssueDocumentUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &IssueDocumentUseCase{
		assembler: assembler,
		signer:    signer,
		sequences: sequences,
		documents: documents,
		log:       log,
		now:       time.Now,
	}
}

// WithTxRunner hace que correlativo y bitácora se confirmen en una sola transacción.
func (uc *IssueDocumentUseCase) WithTxRunner(tx IssueTxRunner) *IssueDocumentUseCase {
	uc.tx = tx
	return uc
}

// WithCertificateOwner restringe la emisión al tenant dueño del certificado activo.
func (uc *IssueDocumentUseCase) WithCertificateOwner(o *CertificateOwner) *IssueDocumentUseCase {
	uc.owner = o
	return uc
}

// Issue emite el documento para el tenant. Si req no trae correlativo y hay
// repositorio de secuencias, se asigna el siguiente del establecimiento.
//
// Retorna:
//   - domain.ErrValidation    datos de negocio inválidos (indica el campo).
//   - domain.ErrPrecondition  no hay certificado cargado, está vencido o es
//     de otro tenant.
func (uc *IssueDocumentUseCase) Issue(ctx context.Context, tenantID string, req domaindte.Request) (*IssuedDocument, error) {
	if req == nil {
		return nil, domain.NewValidationError("", "solicitud nula")
	}
	if uc.owner != nil && !uc.owner.Owns(tenantID) {
		uc.log.WithTenant(tenantID).Warn().Msg("emisión rechazada: el certificado activo es de otro tenant")
		return nil, fmt.Errorf("%w: el certificado activo no pertenece al tenant", domain.ErrPrecondition)
	}
	if uc.tx == nil {
		return uc.issue(ctx, tenantID, req, uc.sequences, uc.documents)
	}
	var out *IssuedDocument
	err := uc.tx.RunIssue(ctx, func(sequences repository.SequenceRepository, documents repository.IssuedDocumentRepository) error {
		var err error
		out, err = uc.issue(ctx, tenantID, req, sequences, documents)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *IssueDocumentUseCase) issue(
	ctx context.Context,
	tenantID string,
	req domaindte.Request,
	sequences repository.SequenceRepository,
	documents repository.IssuedDocumentRepository,
) (*IssuedDocument, error) {
	// ── 1. Correlativo ────────────────────────────────────────────────────────
	in := req.Input()
	if in.Sequence == 0 && sequences != nil {
		if tenantID == "" {
			return nil, fmt.Errorf("%w: tenant requerido para asignar correlativo", domain.ErrInvalidInput)
		}
		estab, err := domaindte.NormalizeEstablishment(in.EstablishmentCode)
		if err != nil {
			return nil, err
		}
		seq, err := sequences.Next(ctx, tenantID, req.DocumentType(), estab)
		if err != nil {
			return nil, fmt.Errorf("dte: asignar correlativo: %w", err)
		}
		req = domaindte.WithSequence(req, seq)
	}

	// ── 2. Ensamblado ─────────────────────────────────────────────────────────
	doc, err := uc.assembler.Assemble(req)
	if err != nil {
		return nil, err
	}
	log := uc.log.WithTenant(tenantID).WithDocument(doc.Identification.ControlNumber, doc.Identification.GenerationCode)
	log.Debug().Str("total_pagar", doc.Summary.TotalPayable.StringFixed(2)).Msg("DTE ensamblado")

	// ── 3. Firma ──────────────────────────────────────────────────────────────
	token, err := uc.signer.Sign(doc)
	if err != nil {
		log.Warn().Err(err).Msg("no se pudo firmar el DTE")
		return nil, err
	}
	log.Info().Str("tipo_dte", doc.Identification.DocumentType).Msg("DTE firmado")

	// ── 4. Bitácora ───────────────────────────────────────────────────────────
	if documents != nil {
		rec := &entity.IssuedDocument{
			GenerationCode: doc.Identification.GenerationCode,
			TenantID:       tenantID,
			ControlNumber:  doc.Identification.ControlNumber,
			DocumentType:   doc.Identification.DocumentType,
			TotalPayable:   doc.Summary.TotalPayable.Decimal,
			SignedToken:    token,
			EmittedAt:      uc.now().UTC(),
		}
		if err := documents.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("dte: guardar documento: %w", err)
		}
		log.Debug().Msg("DTE registrado en bitácora")
	}

	return &IssuedDocument{Document: doc, SignedToken: token}, nil
}

// Get recupera un documento emitido por su código de generación.
// Retorna domain.ErrNotFound si no existe o no hay bitácora configurada.
func (uc *IssueDocumentUseCase) Get(ctx context.Context, tenantID, generationCode string) (*entity.IssuedDocument, error) {
	if uc.documents == nil {
		return nil, domain.ErrNotFound
	}
	doc, err := uc.documents.GetByGenerationCode(ctx, tenantID, strings.ToUpper(strings.TrimSpace(generationCode)))
	if err != nil {
		return nil, fmt.Errorf("dte: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}
