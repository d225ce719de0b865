package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
)

// AnonymizeIP zeroes the last two bytes of an IP address before storage.
// For IPv4 this drops the last two octets; for IPv6 the last 16 bits.
// Returns "" for unparseable input.
func AnonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	if addr.Is4() {
		b := addr.As4()
		b[2], b[3] = 0, 0
		return netip.AddrFrom4(b).String()
	}
	b := addr.As16()
	b[14], b[15] = 0, 0
	return netip.AddrFrom16(b).Unmap().String()
}

// Fingerprint derives a stable viewer identifier from the anonymized IP and
// user agent. Viewers sharing both are treated as the same session for
// stickiness; that is a deliberate trade of precision for privacy.
func Fingerprint(ip, userAgent string) string {
	h := sha256.New()
	h.Write([]byte("advertising-client-id"))
	h.Write([]byte(AnonymizeIP(ip)))
	h.Write([]byte(userAgent))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
