// Package secrets cifra secretos en reposo (contraseñas de certificados,
// credenciales de proveedores) con AES-256-GCM y una llave derivada por
// llamada con PBKDF2-HMAC-SHA512.
//
// Formato del EncryptedBlob (antes de base64):
//
//	salt (32) ‖ iv (16) ‖ tag (16) ‖ ciphertext (≥1)
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jhoicas/facturacion-dte/internal/domain"
)

const (
	saltLen       = 32
	ivLen         = 16
	tagLen        = 16
	keyLen        = 32
	masterKeyHex  = 2 * keyLen
	kdfIterations = 100_000

	// MinBlobLen longitud mínima decodificada de un EncryptedBlob válido.
	MinBlobLen = saltLen + ivLen + tagLen + 1
)

// EncryptionService cifrado autenticado de secretos. Es seguro para uso concurrente.
type EncryptionService struct {
	masterKey []byte
	ephemeral bool
	random    io.Reader
}

// NewEncryptionService recibe la llave maestra en hexadecimal (64 caracteres).
// Si masterKeyHex está vacío genera una llave aleatoria que solo vive en memoria:
// lo cifrado con ella es irrecuperable tras reiniciar el proceso, no apto para producción.
func NewEncryptionService(masterKeyHex string) (*EncryptionService, error) {
	masterKeyHex = strings.TrimSpace(masterKeyHex)
	if masterKeyHex == "" {
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("%w: generar llave efímera: %v", domain.ErrConfiguration, err)
		}
		return &EncryptionService{masterKey: key, ephemeral: true, random: rand.Reader}, nil
	}
	key, err := ParseMasterKey(masterKeyHex)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{masterKey: key, random: rand.Reader}, nil
}

// ParseMasterKey valida y decodifica una llave maestra de 64 caracteres hexadecimales.
func ParseMasterKey(s string) ([]byte, error) {
	if len(s) != masterKeyHex {
		return nil, fmt.Errorf("%w: la llave maestra debe tener %d caracteres hexadecimales, tiene %d",
			domain.ErrConfiguration, masterKeyHex, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: la llave maestra no es hexadecimal válido", domain.ErrConfiguration)
	}
	return key, nil
}

// Ephemeral indica si la llave maestra fue generada en memoria.
func (s *EncryptionService) Ephemeral() bool { return s.ephemeral }

// Encrypt devuelve el EncryptedBlob en base64. Un texto vacío se devuelve sin cambios.
func (s *EncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	buf := make([]byte, saltLen+ivLen, saltLen+ivLen+tagLen+len(plaintext))
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("%w: generar salt/iv", domain.ErrEncryption)
	}
	salt, iv := buf[:saltLen], buf[saltLen:saltLen+ivLen]

	gcm, err := s.aead(salt)
	if err != nil {
		return "", fmt.Errorf("%w: inicializar AES-GCM", domain.ErrEncryption)
	}
	// Seal produce ciphertext ‖ tag; el blob guarda tag ‖ ciphertext.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagLen], sealed[len(sealed)-tagLen:]

	buf = append(buf, tag...)
	buf = append(buf, ct...)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt recupera el texto plano. Un valor vacío se devuelve sin cambios.
// Cualquier fallo (formato, longitud, tag) es domain.ErrDecryption sin detalles
// del contenido.
func (s *EncryptionService) Decrypt(blob string) (string, error) {
	if blob == "" {
		return blob, nil
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: el valor no es base64", domain.ErrDecryption)
	}
	if len(raw) < MinBlobLen {
		return "", fmt.Errorf("%w: el valor es demasiado corto (%d bytes, mínimo %d)", domain.ErrDecryption, len(raw), MinBlobLen)
	}
	salt := raw[:saltLen]
	iv := raw[saltLen : saltLen+ivLen]
	tag := raw[saltLen+ivLen : saltLen+ivLen+tagLen]
	ct := raw[saltLen+ivLen+tagLen:]

	gcm, err := s.aead(salt)
	if err != nil {
		return "", fmt.Errorf("%w: inicializar AES-GCM", domain.ErrDecryption)
	}
	sealed := make([]byte, 0, len(ct)+tagLen)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: autenticación fallida", domain.ErrDecryption)
	}
	return string(plain), nil
}

func (s *EncryptionService) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.masterKey, salt, kdfIterations, keyLen, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivLen)
}

// IsEncrypted heurística: el valor es base64 y tiene al menos la longitud
// estructural mínima. No es una validación criptográfica.
func IsEncrypted(value string) bool {
	if value == "" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	return err == nil && len(raw) >= MinBlobLen
}

// IsEncrypted ver IsEncrypted.
func (s *EncryptionService) IsEncrypted(value string) bool { return IsEncrypted(value) }

// Mask oculta todo salvo los últimos visible caracteres, solo para mostrar o
// registrar en logs. Si el valor no es más largo que visible devuelve "****"
// para no revelar su longitud.
func Mask(value string, visible int) string {
	if visible < 0 {
		visible = 0
	}
	n := utf8.RuneCountInString(value)
	if n <= visible {
		return "****"
	}
	runes := []rune(value)
	return strings.Repeat("*", n-visible) + string(runes[n-visible:])
}

// Mask ver Mask.
func (s *EncryptionService) Mask(value string, visible int) string { return Mask(value, visible) }
