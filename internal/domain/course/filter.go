package course

import (
	"net/url"
	"strconv"
)

// Filter is the open set of query parameters of a course list request.
type Filter map[string]string

// Query parameter names with cache semantics.
const (
	ParamSearch   = "search"
	ParamCategory = "category"
)

// Search returns the free-text search term, or "".
func (f Filter) Search() string { return f[ParamSearch] }

// Category returns the category id filter, or "".
func (f Filter) Category() string { return f[ParamCategory] }

// WithSearch returns a copy of f with the search term set.
func (f Filter) WithSearch(term string) Filter {
	return f.with(ParamSearch, term)
}

// WithCategory returns a copy of f restricted to category id.
func (f Filter) WithCategory(id int) Filter {
	return f.with(ParamCategory, strconv.Itoa(id))
}

// IsPlain reports whether f narrows the list neither by search nor by
// category. Only plain requests may be answered from the cache.
func (f Filter) IsPlain() bool {
	return f.Search() == "" && f.Category() == ""
}

// Values converts f into URL query values, skipping empty parameters.
func (f Filter) Values() url.Values {
	if len(f) == 0 {
		return nil
	}
	v := make(url.Values, len(f))
	for k, val := range f {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

func (f Filter) with(key, value string) Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[key] = value
	return out
}
