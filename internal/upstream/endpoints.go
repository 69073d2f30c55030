package upstream

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Endpoints builds the URL of each upstream endpoint. Every resource URL
// carries the access token and a cache busting timestamp.
type Endpoints struct {
	baseURL string
	now     func() time.Time
}

func NewEndpoints(baseURL string) Endpoints {
	return Endpoints{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// WithClock returns a copy of the builder using now for the timestamp.
func (e Endpoints) WithClock(now func() time.Time) Endpoints {
	e.now = now
	return e
}

// Token is the client-credentials exchange URL.
func (e Endpoints) Token(clientID, clientSecret string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("client_secret", clientSecret)
	q.Set("grant_type", "client_credentials")
	q.Set("scope", "api")

	return e.baseURL + "/oauth/v2/token?" + q.Encode()
}

func (e Endpoints) Bookies(category, domain, accessToken string) string {
	return e.resource(accessToken, "api", "blocks-bookies", category, domain, "listado-bonos-bookies.json")
}

func (e Endpoints) Sports(accessToken string) string {
	return e.resource(accessToken, "api", "deporte", "listado-visible-blogs.json")
}

func (e Endpoints) Competitions(accessToken string) string {
	return e.resource(accessToken, "api", "competicion", "listado.json")
}

func (e Endpoints) BookiesBySite(category, site, ip, accessToken string) string {
	return e.resource(accessToken, "api", "blocks-bookies", category, site, "listado.json", ip)
}

func (e Endpoints) CountryByIP(ip, accessToken string) string {
	return e.resource(accessToken, "api", "geoip", "country-by-ip.json", ip)
}

func (e Endpoints) resource(accessToken string, segments ...string) string {
	var b strings.Builder
	b.WriteString(e.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}

	b.WriteString("/?access_token=")
	b.WriteString(url.QueryEscape(accessToken))
	b.WriteString("&_=")
	b.WriteString(strconv.FormatInt(e.clock().Unix(), 10))

	return b.String()
}

func (e Endpoints) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}

	return e.now()
}
