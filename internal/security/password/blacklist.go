package password

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Blacklist son contraseñas comunes rechazadas sin importar mayúsculas.
// Se arma una vez al arrancar y después solo se lee.
type Blacklist struct {
	words map[string]struct{}
}

func blacklistKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NewBlacklist arma la lista a partir de entries.
func NewBlacklist(entries ...string) *Blacklist {
	bl := &Blacklist{words: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if k := blacklistKey(e); k != "" {
			bl.words[k] = struct{}{}
		}
	}
	return bl
}

// ReadBlacklist lee una contraseña por línea; vacías y "#..." se saltean.
func ReadBlacklist(r io.Reader) (*Blacklist, error) {
	var entries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("password: read blacklist: %w", err)
	}
	return NewBlacklist(entries...), nil
}

// LoadBlacklist es ReadBlacklist sobre un archivo. path vacío da una lista vacía.
func LoadBlacklist(path string) (*Blacklist, error) {
	if strings.TrimSpace(path) == "" {
		return NewBlacklist(), nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBlacklist(f)
}

// Contains es nil-safe: una lista nil no contiene nada.
func (b *Blacklist) Contains(pwd string) bool {
	if b == nil {
		return false
	}
	_, ok := b.words[blacklistKey(pwd)]
	return ok
}

func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.words)
}
