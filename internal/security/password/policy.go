package password

import (
	"strconv"
	"strings"
	"unicode"
)

// DefaultSymbols es el set de símbolos aceptado por defecto.
const DefaultSymbols = "!.,@#$%^&+="

// Policy define los requisitos mínimos de una contraseña.
// Symbols vacío acepta cualquier puntuación o símbolo unicode.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	Symbols       string
}

// DefaultPolicy: 8+ caracteres, mayúscula, minúscula, dígito y símbolo.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
		Symbols:       DefaultSymbols,
	}
}

func (p Policy) isSymbol(r rune) bool {
	if p.Symbols != "" {
		return strings.ContainsRune(p.Symbols, r)
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Validate retorna ok y, si falla, los códigos de cada requisito incumplido.
func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case p.isSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	return len(reasons) == 0, reasons
}

// Describe traduce un código de Validate a un mensaje legible.
func (p Policy) Describe(reason string) string {
	switch reason {
	case "too_short":
		return "password must be at least " + strconv.Itoa(p.MinLength) + " characters long"
	case "missing_upper":
		return "password must contain an uppercase letter"
	case "missing_lower":
		return "password must contain a lowercase letter"
	case "missing_digit":
		return "password must contain a digit"
	case "missing_symbol":
		if p.Symbols != "" {
			return "password must contain one of " + p.Symbols
		}
		return "password must contain a symbol"
	case "blacklisted":
		return "password is too common"
	default:
		return reason
	}
}
