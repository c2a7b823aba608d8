package cenabast

import (
	"fmt"
	"regexp"
	"strings"
)

// Closed category set for broker failures. New broker messages fall into
// CategoryUnknown until a pattern is added here.
const (
	CategoryInvalidDate    = "FECHA_INVALIDA"
	CategoryForeignKey     = "RELACION_INVALIDA"
	CategoryRequiredNull   = "CAMPO_REQUERIDO_NULL"
	CategoryTypeConversion = "CONVERSION_TIPO_DATOS"
	CategoryTimeout        = "TIMEOUT"
	CategoryUnauthorized   = "NO_AUTORIZADO"
	CategoryNotFound       = "NO_ENCONTRADO"
	CategoryServerError    = "ERROR_SERVIDOR"
	CategoryUnknown        = "ERROR_DESCONOCIDO"
)

type ClassifiedError struct {
	Category    string   `json:"tipo"`
	Message     string   `json:"mensaje"`
	Details     []string `json:"detalles"`
	Suggestions []string `json:"sugerencias"`
	Recoverable bool     `json:"es_recuperable"`
}

var columnNameRe = regexp.MustCompile(`(?i)column ['"]?(\w+)['"]?`)

// extractFieldName pulls the offending column out of SQL Server messages like
// "Cannot insert NULL into column 'fecha_stock'".
func extractFieldName(msg string) string {
	match := columnNameRe.FindStringSubmatch(msg)
	if match == nil {
		return ""
	}
	return "Campo afectado: " + match[1]
}

// Classify maps a broker outcome onto the closed category set. HTTP failures
// and soft failures carrying the same envelope classify identically.
func Classify(o Outcome) ClassifiedError {
	msg := o.ErrorText()

	switch {
	case strings.Contains(msg, "SqlDateTime overflow"):
		return ClassifiedError{
			Category: CategoryInvalidDate,
			Message:  "Una o más fechas son inválidas para SQL Server",
			Details: []string{
				"SQL Server solo acepta fechas entre 1753-01-01 y 9999-12-31",
				"Fechas NULL o vacías causan este error",
				"Verifique campos: fecha_stock, fecha_movimiento, fecha_vencimiento",
			},
			Suggestions: []string{
				"Revise que todas las fechas estén en formato YYYY-MM-DD",
				"Elimine o reemplace fechas NULL con valores válidos",
			},
			Recoverable: true,
		}

	case strings.Contains(msg, "FOREIGN KEY") || strings.Contains(msg, "FK_"):
		return ClassifiedError{
			Category: CategoryForeignKey,
			Message:  "Error de relación con otra tabla (Foreign Key)",
			Details: []string{
				"Un ID de referencia no existe en la tabla relacionada",
				"Verifique: id_relacion, codigo_producto",
			},
			Suggestions: []string{
				"Verifique que el id_relacion exista en CENABAST",
				"Confirme que los códigos de producto sean válidos",
			},
			Recoverable: true,
		}

	case strings.Contains(msg, "Cannot insert NULL") || strings.Contains(msg, "does not allow nulls"):
		details := []string{"Se intentó insertar NULL en un campo requerido"}
		if field := extractFieldName(msg); field != "" {
			details = append(details, field)
		}
		return ClassifiedError{
			Category: CategoryRequiredNull,
			Message:  "Faltan campos obligatorios",
			Details:  details,
			Suggestions: []string{
				"Verifique que todos los campos obligatorios tengan valor",
				"Revise la estructura del payload según la guía CENABAST",
			},
			Recoverable: true,
		}

	case strings.Contains(msg, "Conversion failed") || strings.Contains(msg, "convert"):
		details := []string{"Un campo tiene un tipo de dato incorrecto"}
		if field := extractFieldName(msg); field != "" {
			details = append(details, field)
		}
		return ClassifiedError{
			Category: CategoryTypeConversion,
			Message:  "Error al convertir tipos de datos",
			Details:  details,
			Suggestions: []string{
				"Verifique que los números sean numéricos (no strings)",
				"Revise campos como cantidad_stock, codigo_generico",
			},
			Recoverable: true,
		}

	case strings.Contains(strings.ToLower(msg), "timeout"):
		return ClassifiedError{
			Category: CategoryTimeout,
			Message:  "Tiempo de espera agotado",
			Details: []string{
				"La operación tardó demasiado tiempo",
				"El servidor Mirth/CENABAST no respondió a tiempo",
			},
			Suggestions: []string{
				"Intente enviar menos registros por lote",
				"Reintente la operación",
			},
			Recoverable: true,
		}

	case o.Kind == OutcomeTransportFailure:
		// Connection-level failures are always retryable; the broker may just
		// be restarting a channel.
		return ClassifiedError{
			Category: CategoryServerError,
			Message:  "Error de conexión con Mirth",
			Details:  []string{msg},
			Suggestions: []string{
				"Verifique la conectividad con el servidor Mirth",
				"Reintente la operación",
			},
			Recoverable: true,
		}

	case o.EffectiveStatus() == 401 || strings.Contains(msg, "Unauthorized") || strings.Contains(msg, "token"):
		return ClassifiedError{
			Category: CategoryUnauthorized,
			Message:  "Token de autenticación inválido o expirado",
			Details: []string{
				"El token JWT ha expirado o es inválido",
				"Es necesario obtener un nuevo token",
			},
			Suggestions: []string{
				"El sistema obtendrá un nuevo token automáticamente",
				"Si el problema persiste, verifique las credenciales CENABAST",
			},
			Recoverable: true,
		}

	case o.EffectiveStatus() == 404:
		return ClassifiedError{
			Category: CategoryNotFound,
			Message:  "Recurso no encontrado",
			Details: []string{
				"El endpoint o recurso solicitado no existe",
				"Verifique la configuración de Mirth",
			},
			Suggestions: []string{
				"Verifique que los canales de Mirth estén activos",
				"Confirme la configuración de puertos y rutas",
			},
			Recoverable: false,
		}

	case o.EffectiveStatus() == 500:
		details := []string{"Error en el procesamiento del lado del servidor"}
		if msg != "" {
			details = append(details, truncate(msg, 200))
		}
		return ClassifiedError{
			Category: CategoryServerError,
			Message:  "Error interno del servidor CENABAST/Mirth",
			Details:  details,
			Suggestions: []string{
				"Revise los logs del servidor Mirth para más detalles",
				"Contacte soporte CENABAST si el error persiste",
			},
			Recoverable: true,
		}
	}

	if msg == "" {
		msg = "Error desconocido al comunicarse con CENABAST"
	}
	return ClassifiedError{
		Category: CategoryUnknown,
		Message:  msg,
		Details: []string{
			fmt.Sprintf("Status Code: %d", o.EffectiveStatus()),
			fmt.Sprintf("Kind: %s", o.Kind),
		},
		Suggestions: []string{
			"Revise los logs para más información",
			"Verifique la estructura del payload",
		},
		Recoverable: false,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
