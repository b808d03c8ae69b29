package config

import (
	"net"
	"strings"

	"github.com/iliyamo/movie-catalog/internal/logger"
)

// LoadTrustedProxies parses TRUSTED_PROXIES, a comma separated list of CIDRs
// or bare addresses of the reverse proxies allowed to set X-Forwarded-For.
// Unparsable entries are logged and skipped. An empty result means the
// client address is always the TCP peer.
func LoadTrustedProxies() []*net.IPNet {
	var out []*net.IPNet
	for _, raw := range envList("TRUSTED_PROXIES", "") {
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				logger.Get().WithField("entry", raw).Warn("ignoring invalid trusted proxy")
				continue
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			logger.Get().WithError(err).WithField("entry", raw).Warn("ignoring invalid trusted proxy")
			continue
		}
		out = append(out, n)
	}
	return out
}
