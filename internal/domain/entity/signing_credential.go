package entity

import "time"

// SigningCredential certificado de firma de un tenant tal como se persiste.
// PasswordEnc es un EncryptedBlob: la contraseña nunca se guarda en claro.
type SigningCredential struct {
	TenantID     string
	Certificate  []byte // contenedor PKCS#12
	PasswordEnc  string
	Subject      string
	SerialNumber string
	ValidTo      time.Time
	UpdatedAt    time.Time
}
