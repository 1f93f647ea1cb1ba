package secrets_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-dte/internal/domain"
	"github.com/jhoicas/facturacion-dte/internal/infrastructure/secrets"
)

const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newService(t *testing.T) *secrets.EncryptionService {
	t.Helper()
	svc, err := secrets.NewEncryptionService(testMasterKey)
	require.NoError(t, err)
	require.False(t, svc.Ephemeral())
	return svc
}

// ────────────────────────────────────────────────────────────────
// Inicialización
// ────────────────────────────────────────────────────────────────

func TestNewEncryptionService_LlaveInvalida(t *testing.T) {
	cases := map[string]string{
		"corta":         "abcdef",
		"larga":         testMasterKey + "00",
		"no hex":        strings.Repeat("zz", 32),
		"63 caracteres": testMasterKey[:63],
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := secrets.NewEncryptionService(key)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestNewEncryptionService_LlaveEfimera(t *testing.T) {
	a, err := secrets.NewEncryptionService("")
	require.NoError(t, err)
	assert.True(t, a.Ephemeral())

	b, err := secrets.NewEncryptionService("")
	require.NoError(t, err)

	blob, err := a.Encrypt("secreto")
	require.NoError(t, err)
	plain, err := a.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "secreto", plain)

	_, err = b.Decrypt(blob)
	assert.ErrorIs(t, err, domain.ErrDecryption, "dos llaves efímeras no deben coincidir")
}

func TestNewEncryptionService_LlaveMayusculas(t *testing.T) {
	svc, err := secrets.NewEncryptionService(strings.ToUpper(testMasterKey))
	require.NoError(t, err)

	blob, err := newService(t).Encrypt("abc")
	require.NoError(t, err)
	plain, err := svc.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "abc", plain)
}

// ────────────────────────────────────────────────────────────────
// Cifrado / descifrado
// ────────────────────────────────────────────────────────────────

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	svc := newService(t)
	for _, s := range []string{
		"",
		"a",
		"Prueba2024",
		"contraseña con ñ y acentos: áéíóú",
		strings.Repeat("x", 4096),
		"{\"json\":true}",
	} {
		blob, err := svc.Encrypt(s)
		require.NoError(t, err)
		got, err := svc.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestEncrypt_VacioEsNoOp(t *testing.T) {
	svc := newService(t)
	blob, err := svc.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", blob)

	plain, err := svc.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", plain)
}

func TestEncrypt_CifradosDistintos(t *testing.T) {
	svc := newService(t)
	a, err := svc.Encrypt("mismo valor")
	require.NoError(t, err)
	b, err := svc.Encrypt("mismo valor")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salt e IV aleatorios deben producir blobs distintos")
}

func TestEncrypt_Estructura(t *testing.T) {
	svc := newService(t)
	blob, err := svc.Encrypt("x")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)
	assert.Len(t, raw, secrets.MinBlobLen, "salt(32)+iv(16)+tag(16)+1 byte de texto")
	assert.True(t, svc.IsEncrypted(blob))
}

func TestDecrypt_Errores(t *testing.T) {
	svc := newService(t)
	blob, err := svc.Encrypt("Prueba2024")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	flip := func(i int) string {
		b := append([]byte(nil), raw...)
		b[i] ^= 0x01
		return base64.StdEncoding.EncodeToString(b)
	}

	cases := map[string]string{
		"no base64":        "%%%no-es-base64%%%",
		"demasiado corto":  base64.StdEncoding.EncodeToString(raw[:secrets.MinBlobLen-1]),
		"salt alterado":    flip(0),
		"iv alterado":      flip(40),
		"tag alterado":     flip(50),
		"cifrado alterado": flip(len(raw) - 1),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Decrypt(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDecryption)
			assert.NotContains(t, err.Error(), "Prueba2024")
		})
	}
}

func TestDecrypt_OtraLlaveMaestra(t *testing.T) {
	blob, err := newService(t).Encrypt("secreto")
	require.NoError(t, err)

	other, err := secrets.NewEncryptionService(strings.Repeat("ff", 32))
	require.NoError(t, err)
	_, err = other.Decrypt(blob)
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

// ────────────────────────────────────────────────────────────────
// IsEncrypted / Mask
// ────────────────────────────────────────────────────────────────

func TestIsEncrypted(t *testing.T) {
	assert.False(t, secrets.IsEncrypted(""))
	assert.False(t, secrets.IsEncrypted("Prueba2024"))
	assert.False(t, secrets.IsEncrypted(base64.StdEncoding.EncodeToString(make([]byte, secrets.MinBlobLen-1))))
	assert.True(t, secrets.IsEncrypted(base64.StdEncoding.EncodeToString(make([]byte, secrets.MinBlobLen))))
}

func TestMask(t *testing.T) {
	cases := []struct {
		in      string
		visible int
		want    string
	}{
		{"06141234567890", 4, "**********7890"},
		{"abcd", 4, "****"},
		{"ab", 4, "****"},
		{"", 4, "****"},
		{"contraseña", 3, "*******eña"},
		{"abc", 0, "***"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, secrets.Mask(tc.in, tc.visible), tc.in)
	}
}
