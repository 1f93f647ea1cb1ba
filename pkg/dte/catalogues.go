// Package dte contiene catálogos y utilidades alineados a la Normativa de
// Cumplimiento de Documentos Tributarios Electrónicos del Ministerio de
// Hacienda de El Salvador.
package dte

// =============================================================================
// CAT-002 - Tipo de Documento
// =============================================================================

const (
	DocumentTypeFactura = "01" // Factura (consumidor final)
	DocumentTypeCCF     = "03" // Comprobante de Crédito Fiscal
)

// DocumentVersions versión del esquema JSON vigente por tipo de documento.
var DocumentVersions = map[string]int{
	DocumentTypeFactura: 1,
	DocumentTypeCCF:     3,
}

// DocumentTypeNames nombre legible por tipo de documento (versión legible / PDF).
var DocumentTypeNames = map[string]string{
	DocumentTypeFactura: "FACTURA",
	DocumentTypeCCF:     "COMPROBANTE DE CRÉDITO FISCAL",
}

// =============================================================================
// CAT-001 - Ambiente de destino
// =============================================================================

const (
	EnvironmentTest       = "00" // Modo prueba
	EnvironmentProduction = "01" // Modo producción
)

// ValidEnvironments ambientes aceptados.
var ValidEnvironments = map[string]bool{
	EnvironmentTest:       true,
	EnvironmentProduction: true,
}

// =============================================================================
// CAT-003 / CAT-004 - Modelo de facturación y tipo de transmisión
// =============================================================================

const (
	ModelPrevious      = 1 // Modelo facturación previo
	TransmissionNormal = 1 // Transmisión normal
)

// =============================================================================
// CAT-011 - Tipo de ítem
// =============================================================================

const (
	ItemKindGoods    = 1 // Bienes
	ItemKindServices = 2 // Servicios
	ItemKindBoth     = 3 // Ambos (bienes y servicios)
)

// ValidItemKinds tipos de ítem aceptados en cuerpoDocumento.
var ValidItemKinds = map[int]bool{ItemKindGoods: true, ItemKindServices: true, ItemKindBoth: true}

// =============================================================================
// CAT-014 - Unidad de medida (uso frecuente)
// =============================================================================

const (
	UnitOther = 99 // Otra
	UnitUnit  = 59 // Unidad
)

// =============================================================================
// CAT-015 - Tributos
// =============================================================================

const (
	TaxCodeIVA        = "20" // Impuesto al Valor Agregado 13%
	TaxDescriptionIVA = "Impuesto al Valor Agregado 13%"
)

// =============================================================================
// CAT-016 - Condición de la operación
// =============================================================================

const (
	OperationCash   = 1 // Contado
	OperationCredit = 2 // A crédito
)

// =============================================================================
// CAT-022 - Tipo de documento de identificación del receptor
// =============================================================================

const (
	IDTypeNIT      = "36" // NIT
	IDTypeDUI      = "13" // DUI
	IDTypePassport = "03" // Pasaporte
	IDTypeOther    = "37" // Otro
)

// ValidRecipientIDTypes tipos de documento de identificación aceptados.
var ValidRecipientIDTypes = map[string]bool{
	IDTypeNIT: true, IDTypeDUI: true, IDTypePassport: true, IDTypeOther: true,
}

// CurrencyUSD moneda de curso legal.
const CurrencyUSD = "USD"
