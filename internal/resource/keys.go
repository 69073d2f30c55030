package resource

import "strings"

// Cache keys of the resource classes.
const (
	BookiesKey      = "bookies"
	SportsKey       = "deportes"
	CompetitionsKey = "competiciones"

	bySiteKeyPrefix  = "block bookies"
	countryKeyPrefix = "country by ip"
)

// IPPrefix drops the last segment of ip, keeping its own separator: "." for
// IPv4 and ":" for IPv6. An input with no separator is returned whole.
func IPPrefix(ip string) string {
	sep := "."
	if strings.Contains(ip, ":") {
		sep = ":"
	}

	i := strings.LastIndex(ip, sep)
	if i < 0 {
		return ip
	}

	return ip[:i]
}

// BySiteKey groups callers sharing a network prefix for the same site.
func BySiteKey(site, clientIP string) string {
	return bySiteKeyPrefix + " " + site + " " + IPPrefix(clientIP)
}

// CountryKey is keyed by the exact address.
func CountryKey(ip string) string {
	return countryKeyPrefix + " " + ip
}
