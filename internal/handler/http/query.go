package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Aimecol/hforher/internal/catalog"
	apperrors "github.com/Aimecol/hforher/pkg/errors"
)

// parseListing reads the product listing query parameters.
func parseListing(r *http.Request) (catalog.Filter, catalog.Sort, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category:     strings.TrimSpace(q.Get("category")),
		Sizes:        list(q, "sizes"),
		Colors:       list(q, "colors"),
		Brands:       list(q, "brands"),
		OnSale:       flag(q, "isOnSale"),
		InStock:      flag(q, "isInStock"),
		FreeShipping: flag(q, "hasFreeShipping"),
	}

	var err error
	if f.MinPrice, err = int64Param(q, "minPrice"); err != nil {
		return f, catalog.Sort{}, err
	}
	if f.MaxPrice, err = int64Param(q, "maxPrice"); err != nil {
		return f, catalog.Sort{}, err
	}
	if raw := q.Get("rating"); raw != "" {
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || v < 0 || v > 5 {
			return f, catalog.Sort{}, apperrors.InvalidInput("rating must be a number between 0 and 5")
		}
		f.MinRating = &v
	}

	sort, err := catalog.ParseSort(q.Get("sortBy"), q.Get("sortOrder"))
	if err != nil {
		return f, catalog.Sort{}, apperrors.InvalidInput(err.Error())
	}
	return f, sort, nil
}

func list(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func flag(q url.Values, key string) bool {
	v, _ := strconv.ParseBool(q.Get(key))
	return v
}

func int64Param(q url.Values, key string) (*int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return &v, nil
}

func limitParam(r *http.Request) int {
	v, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return v
}
