package helpers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type ctxClientIPKey struct{}

// WithClientIP guarda la IP de cliente ya resuelta para el resto del request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey{}, ip)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// IPResolver decide la IP de cliente. X-Forwarded-For solo se considera cuando
// el peer directo es un proxy de confianza; en ese caso se recorre de derecha a
// izquierda y gana la primera dirección que no es de confianza. Un resolver nil
// o sin proxies usa siempre RemoteAddr.
type IPResolver struct {
	trusted []netip.Prefix
}

// NewIPResolver acepta CIDRs ("10.0.0.0/8") o IPs sueltas.
func NewIPResolver(proxies []string) (*IPResolver, error) {
	res := &IPResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
			}
			res.trusted = append(res.trusted, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		pfx, err := netip.ParsePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		res.trusted = append(res.trusted, pfx.Masked())
	}
	return res, nil
}

func (x *IPResolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range x.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resuelve la IP de cliente de r.
func (x *IPResolver) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if x == nil || len(x.trusted) == 0 || !x.isTrusted(peer) {
		return peer
	}

	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(h, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !x.isTrusted(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return peer
}
