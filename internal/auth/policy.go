package auth

import (
	"fmt"
	"net/http"
	"path"
	"strings"
)

// Decision es el resultado de evaluar un request contra la política.
type Decision int

const (
	Allow Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// rule es un patrón "[METHOD] /path". Segmentos "*" matchean uno; un "**" final
// matchea cero o más segmentos. Sin método matchea cualquiera.
type rule struct {
	raw      string
	method   string
	segments []string
	tail     bool
}

func parseRule(s string) (rule, error) {
	raw := strings.TrimSpace(s)
	method, p := "", raw
	if i := strings.IndexByte(raw, ' '); i > 0 {
		method, p = strings.ToUpper(raw[:i]), strings.TrimSpace(raw[i+1:])
	}
	if !strings.HasPrefix(p, "/") {
		return rule{}, fmt.Errorf("auth: pattern %q must start with /", s)
	}
	r := rule{raw: raw, method: method}
	segs := splitPath(p)
	for i, seg := range segs {
		if seg == "**" {
			if i != len(segs)-1 {
				return rule{}, fmt.Errorf("auth: pattern %q: ** only allowed at the end", s)
			}
			r.tail = true
			segs = segs[:i]
			break
		}
	}
	r.segments = segs
	return r, nil
}

func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func (r rule) matchMethod(method string) bool {
	if r.method == "" || r.method == method {
		return true
	}
	return r.method == http.MethodGet && method == http.MethodHead
}

func (r rule) match(method string, segs []string) bool {
	if !r.matchMethod(method) {
		return false
	}
	if r.tail {
		if len(segs) < len(r.segments) {
			return false
		}
	} else if len(segs) != len(r.segments) {
		return false
	}
	for i, want := range r.segments {
		if want != "*" && want != segs[i] {
			return false
		}
	}
	return true
}

type roleRule struct {
	rule
	role string
}

// Policy es la allow-list de rutas sin identidad más los roles requeridos por ruta.
// Se arma al iniciar y es de solo lectura después.
type Policy struct {
	public []rule
	roles  []roleRule
}

// NewPolicy compila los patrones públicos.
func NewPolicy(patterns []string) (*Policy, error) {
	p := &Policy{}
	for _, s := range patterns {
		if strings.TrimSpace(s) == "" {
			continue
		}
		r, err := parseRule(s)
		if err != nil {
			return nil, err
		}
		p.public = append(p.public, r)
	}
	return p, nil
}

// MustPolicy es NewPolicy que hace panic ante un patrón inválido.
func MustPolicy(patterns []string) *Policy {
	p, err := NewPolicy(patterns)
	if err != nil {
		panic(err)
	}
	return p
}

// RequireRole exige role para las rutas que matcheen pattern. Se llama durante el armado.
func (p *Policy) RequireRole(pattern, role string) error {
	r, err := parseRule(pattern)
	if err != nil {
		return err
	}
	p.roles = append(p.roles, roleRule{rule: r, role: role})
	return nil
}

// IsPublic reporta si el request puede seguir sin identidad.
func (p *Policy) IsPublic(method, urlPath string) bool {
	segs := splitPath(urlPath)
	for _, r := range p.public {
		if r.match(method, segs) {
			return true
		}
	}
	return false
}

// RequiredRole retorna el rol exigido para la ruta, si hay alguno.
func (p *Policy) RequiredRole(method, urlPath string) (string, bool) {
	segs := splitPath(urlPath)
	for _, r := range p.roles {
		if r.match(method, segs) {
			return r.role, true
		}
	}
	return "", false
}

// Decide evalúa el request. Los preflight OPTIONS siempre pasan.
func (p *Policy) Decide(method, urlPath string, id *Identity) Decision {
	if method == http.MethodOptions {
		return Allow
	}
	if id == nil {
		if p.IsPublic(method, urlPath) {
			return Allow
		}
		return Unauthenticated
	}
	if role, ok := p.RequiredRole(method, urlPath); ok && !id.HasRole(role) {
		return Forbidden
	}
	return Allow
}

// Patterns enumera la allow-list tal como fue configurada.
func (p *Policy) Patterns() []string {
	out := make([]string, 0, len(p.public))
	for _, r := range p.public {
		out = append(out, r.raw)
	}
	return out
}

// RolePatterns enumera las reglas de rol como "pattern => role".
func (p *Policy) RolePatterns() []string {
	out := make([]string, 0, len(p.roles))
	for _, r := range p.roles {
		out = append(out, r.raw+" => "+r.role)
	}
	return out
}
