package httpadapter

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"adserver/internal/core/domain"
)

// Geo and proxy annotation headers. An edge middleware (GeoIP, proxy
// detection) sets these before the request reaches the ad server; the
// handlers only copy them into the request context.
const (
	headerCountry  = "X-Geo-Country"
	headerRegion   = "X-Geo-Region"
	headerMetro    = "X-Geo-Metro"
	headerProxy    = "X-Ip-Proxy"
	headerClientIP = "X-Forwarded-For"
)

// annotate fills the viewer-derived fields of a request context from HTTP
// headers: client IP, user agent, referrer, geo annotations and the mobile
// flag.
func annotate(rc *domain.RequestContext, r *http.Request) {
	rc.IP = clientIP(r)
	rc.UserAgent = r.UserAgent()
	rc.Referrer = r.Referer()

	rc.Country = r.Header.Get(headerCountry)
	rc.StateProvince = r.Header.Get(headerRegion)
	if metro := r.Header.Get(headerMetro); metro != "" {
		rc.Metro, _ = strconv.Atoi(metro)
	}
	rc.IsProxy = r.Header.Get(headerProxy) == "true"
	rc.IsMobile = isMobileUA(rc.UserAgent)
}

// clientIP returns the viewer address, preferring the first hop of
// X-Forwarded-For over the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get(headerClientIP); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isMobileUA(ua string) bool {
	lowered := strings.ToLower(ua)
	for _, marker := range []string{"mobile", "android", "iphone", "ipad"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
