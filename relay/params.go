package relay

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/form/v4"
)

// FetchParams is the normalized, validated parameter set for an image fetch.
// Both the GET query string and the POST JSON body decode into it, so the
// fetch/sniff/stream pipeline only ever sees this one shape.
type FetchParams struct {
	URL                string
	Auth               string
	Referer            string
	Origin             string
	Headers            []string // raw "Name: Value" lines
	Cookies            []string
	ContentDisposition string // "inline" or "attachment"
	Filename           string
	TimeoutMS          int64 // 0 means absent or non-numeric
	AllowAny           bool
}

var urlSchemeRe = regexp.MustCompile(`(?i)^https?://`)

var queryDecoder = form.NewDecoder()

// queryParams mirrors the raw query string. timeout and allowAny stay strings
// here because malformed values must fall back to defaults, not error out.
type queryParams struct {
	URL                string   `form:"url"`
	Auth               string   `form:"auth"`
	Referer            string   `form:"referer"`
	Origin             string   `form:"origin"`
	Header             []string `form:"header"`
	Cookie             []string `form:"cookie"`
	ContentDisposition string   `form:"contentDisposition"`
	Filename           string   `form:"filename"`
	Timeout            string   `form:"timeout"`
	AllowAny           string   `form:"allowAny"`
}

// imageBody mirrors the POST JSON body. The headers object is flattened into
// the same "Name: Value" lines the query path produces. timeout and allowAny
// accept any JSON scalar for the same reason queryParams keeps them loose.
type imageBody struct {
	URL                string            `json:"url"`
	Auth               string            `json:"auth"`
	Referer            string            `json:"referer"`
	Origin             string            `json:"origin"`
	Headers            map[string]string `json:"headers"`
	Cookie             []string          `json:"cookie"`
	ContentDisposition string            `json:"contentDisposition"`
	Filename           string            `json:"filename"`
	Timeout            interface{}       `json:"timeout"`
	AllowAny           interface{}       `json:"allowAny"`
}

// ParamsFromQuery decodes and validates the GET /image query string.
func ParamsFromQuery(r *http.Request) (FetchParams, error) {
	var q queryParams
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		return FetchParams{}, Wrap(err, ErrInvalidRequest, "malformed query string")
	}

	p := FetchParams{
		URL:                q.URL,
		Auth:               q.Auth,
		Referer:            q.Referer,
		Origin:             q.Origin,
		Headers:            q.Header,
		Cookies:            q.Cookie,
		ContentDisposition: normalizeDisposition(q.ContentDisposition),
		Filename:           q.Filename,
		TimeoutMS:          parseTimeout(q.Timeout),
		AllowAny:           truthy(q.AllowAny),
	}
	return p, p.validate()
}

// ParamsFromJSON decodes and validates the POST /image body.
func ParamsFromJSON(body []byte) (FetchParams, error) {
	var b imageBody
	if err := sonic.Unmarshal(body, &b); err != nil {
		return FetchParams{}, Wrap(err, ErrInvalidRequest, "malformed JSON body")
	}

	p := FetchParams{
		URL:                b.URL,
		Auth:               b.Auth,
		Referer:            b.Referer,
		Origin:             b.Origin,
		Headers:            flattenHeaders(b.Headers),
		Cookies:            b.Cookie,
		ContentDisposition: normalizeDisposition(b.ContentDisposition),
		Filename:           b.Filename,
		TimeoutMS:          coerceTimeout(b.Timeout),
		AllowAny:           coerceBool(b.AllowAny),
	}
	return p, p.validate()
}

func (p FetchParams) validate() error {
	if p.URL == "" {
		return New(ErrInvalidRequest, "missing required parameter: url")
	}
	if !urlSchemeRe.MatchString(p.URL) {
		return Newf(ErrInvalidRequest, "url must start with http:// or https://")
	}
	return nil
}

// flattenHeaders turns the JSON headers object into "Name: Value" lines. The
// map is sorted for deterministic ordering; http.Header canonicalizes names
// anyway, so order only matters for reproducibility.
func flattenHeaders(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(m))
	for _, name := range names {
		lines = append(lines, name+": "+m[name])
	}
	return lines
}

func normalizeDisposition(v string) string {
	if strings.EqualFold(v, "attachment") {
		return "attachment"
	}
	return "inline"
}

func parseTimeout(v string) int64 {
	if v == "" {
		return 0
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms < 0 {
		return 0
	}
	return ms
}

func coerceTimeout(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0
		}
		return int64(t)
	case string:
		return parseTimeout(t)
	default:
		return 0
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

func coerceBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return truthy(t)
	default:
		return false
	}
}
