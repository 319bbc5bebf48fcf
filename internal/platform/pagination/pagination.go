package pagination

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yungbote/coursehub-backend/internal/platform/apierr"
)

const (
	PageParam     = "page"
	PageSizeParam = "page_size"
)

// Params bounds the page size a caller may request.
type Params struct {
	DefaultSize int
	MaxSize     int
}

var (
	Lessons = Params{DefaultSize: 5, MaxSize: 50}
	Courses = Params{DefaultSize: 2, MaxSize: 20}
	Users   = Params{DefaultSize: 10, MaxSize: 100}
)

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

func ErrInvalidPage() *apierr.Error { return apierr.NotFound("invalid_page", "Invalid page.") }

// Parse reads page and page_size. A malformed or non-positive page is an error;
// a malformed page_size falls back to the default and an oversized one is clamped.
func (p Params) Parse(pageRaw, sizeRaw string) (Page, error) {
	pg := Page{Number: 1, Size: p.DefaultSize}
	if s := strings.TrimSpace(pageRaw); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return pg, ErrInvalidPage()
		}
		pg.Number = n
	}
	if s := strings.TrimSpace(sizeRaw); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			pg.Size = n
		}
	}
	if p.MaxSize > 0 && pg.Size > p.MaxSize {
		pg.Size = p.MaxSize
	}
	if pg.Size < 1 {
		pg.Size = 1
	}
	return pg, nil
}

// FromRequest parses the standard query parameters of r.
func (p Params) FromRequest(r *http.Request) (Page, error) {
	q := r.URL.Query()
	return p.Parse(q.Get(PageParam), q.Get(PageSizeParam))
}

// CheckRange rejects pages past the last one. The first page is always valid.
func CheckRange(pg Page, count int64) error {
	if pg.Number == 1 {
		return nil
	}
	if int64(pg.Offset()) >= count {
		return ErrInvalidPage()
	}
	return nil
}

type Envelope[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func NewEnvelope[T any](base *url.URL, pg Page, count int64, results []T) Envelope[T] {
	if results == nil {
		results = []T{}
	}
	env := Envelope[T]{Count: count, Results: results}
	if base == nil {
		return env
	}
	if int64(pg.Number*pg.Size) < count {
		next := pageURL(base, pg.Number+1)
		env.Next = &next
	}
	if pg.Number > 1 {
		prev := pageURL(base, pg.Number-1)
		env.Previous = &prev
	}
	return env
}

// RequestURL reconstructs the absolute URL of r.
func RequestURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			u.Scheme = "https"
		}
	}
	return &u
}

func pageURL(base *url.URL, page int) string {
	u := *base
	q := u.Query()
	if page <= 1 {
		q.Del(PageParam)
	} else {
		q.Set(PageParam, strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
