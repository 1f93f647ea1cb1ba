package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config opciones del logger.
type Config struct {
	Env     string // development: consola legible; cualquier otro: JSON
	Level   string // nivel de zerolog (trace … error); inválido o vacío => info
	Service string // valor del campo "servicio" en cada línea; vacío => se omite
}

// Logger envuelve zerolog para inyectarlo en casos de uso y handlers.
type Logger struct {
	zl zerolog.Logger
}

// New crea el logger de la aplicación y reemplaza el logger global de zerolog,
// que usan los handlers HTTP para errores inesperados.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	l := build(w, cfg)
	log.Logger = l.zl
	return l
}

// NewWithWriter logger JSON sobre w; no toca el logger global.
func NewWithWriter(w io.Writer, level string) *Logger {
	return build(w, Config{Level: level})
}

// Nop descarta todo. Valor por defecto de los casos de uso en pruebas.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func build(w io.Writer, cfg Config) *Logger {
	ctx := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("servicio", cfg.Service)
	}
	return &Logger{zl: ctx.Logger()}
}

// ParseLevel traduce el nivel configurado; lo desconocido cae en info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// WithDocument sublogger con los identificadores de un DTE.
func (l *Logger) WithDocument(controlNumber, generationCode string) *Logger {
	return &Logger{zl: l.zl.With().
		Str("numero_control", controlNumber).
		Str("codigo_generacion", generationCode).
		Logger()}
}

// WithTenant sublogger con el tenant de la operación.
func (l *Logger) WithTenant(tenantID string) *Logger {
	return &Logger{zl: l.zl.With().Str("tenant_id", tenantID).Logger()}
}

// WithComponent sublogger para un componente (firmador, api, certcheck).
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("componente", name).Logger()}
}
