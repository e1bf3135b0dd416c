package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cuentas/internal/core"
)

// trustedProxies defines networks that are trusted to set forwarding
// headers.
var trustedProxies = []*net.IPNet{
	parsecidr("127.0.0.0/8"),
	parsecidr("10.0.0.0/8"),
	parsecidr("172.16.0.0/12"),
	parsecidr("192.168.0.0/16"),
}

func parsecidr(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func isTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP extracts the real client IP, honoring forwarding
// headers only when the direct peer is a trusted proxy.
func extractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			if len(ips) > 0 {
				clientIP := strings.TrimSpace(ips[0])
				if parsedIP := net.ParseIP(clientIP); parsedIP != nil {
					return clientIP
				}
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if parsedIP := net.ParseIP(xri); parsedIP != nil {
				return xri
			}
		}
	}

	return directIP
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// queryBool parses a boolean query parameter, defaulting when absent.
func queryBool(r *http.Request, key string, def bool) bool {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func queryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// requestUser identifies the caller. The API sits behind the house
// proxy which authenticates and stamps the header; the query parameter
// is the dev fallback.
func requestUser(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get("X-User")); u != "" {
		return u
	}
	return queryString(r, "user")
}

func parseFilterOptions(r *http.Request) core.FilterOptions {
	return core.FilterOptions{
		ShowFixed:    queryBool(r, "fixed", true),
		ShowVariable: queryBool(r, "variable", true),
		Category:     queryString(r, "category"),
		Search:       queryString(r, "q"),
	}
}

func parseSortSpec(r *http.Request) core.SortSpec {
	spec := core.DefaultSort()
	if key := queryString(r, "sort"); key != "" {
		spec.Key = core.SortKey(key)
	}
	if dir := queryString(r, "dir"); dir != "" {
		spec.Direction = core.SortDirection(dir)
	}
	return spec
}

func parseGroupOptions(r *http.Request) core.GroupOptions {
	return core.GroupOptions{
		ByCategory: queryBool(r, "group_category", false),
		ByDetail:   queryBool(r, "group_detail", false),
	}
}

func parsePivotOptions(r *http.Request) core.PivotOptions {
	return core.PivotOptions{
		ShowIncome:   queryBool(r, "income", true),
		ShowExpense:  queryBool(r, "expense", true),
		ShowFixed:    queryBool(r, "fixed", true),
		ShowVariable: queryBool(r, "variable", true),
		Year:         queryInt(r, "year", 0),
		Category:     queryString(r, "category"),
		Detail:       queryString(r, "detail"),
	}
}
