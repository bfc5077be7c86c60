package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageNumber = 1
	defaultPageSize   = 20
	maxPageSize       = 100
)

type QueryParams struct {
	PageNumber int
	PageSize   int
	Search     string
}

// NewQueryParams reads page, limit and search from the request query string.
func NewQueryParams(c echo.Context) *QueryParams {
	p := &QueryParams{
		PageNumber: defaultPageNumber,
		PageSize:   defaultPageSize,
		Search:     c.QueryParam("search"),
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		p.PageNumber = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		p.PageSize = min(v, maxPageSize)
	}
	return p
}

func (p QueryParams) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}
