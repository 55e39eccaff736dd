package shared

import (
	"net/http"
	"strconv"
)

// Page is a limit/offset window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// PageFrom reads limit and offset from the query string. Malformed values are
// reported on v; a limit above maxLimit is clamped.
func PageFrom(r *http.Request, v *Validator, defaultLimit, maxLimit int) Page {
	page := Page{Limit: defaultLimit}
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			v.Add("limit", "must be a positive integer")
		} else {
			page.Limit = min(n, maxLimit)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			v.Add("offset", "must be zero or a positive integer")
		} else {
			page.Offset = n
		}
	}
	return page
}
