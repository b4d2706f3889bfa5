package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/roster/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.Ordering
}

// Bind reads `?ordering=weekday,-class_name`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.Ordering{Field: field, Ascending: !descending})
	}
}

// queryInts reads a repeated and/or comma separated int query param, eg. `?period=1&period=2,3`.
func queryInts(ctx echo.Context, name string) ([]int, error) {
	var ints []int
	for _, val := range ctx.QueryParams()[name] {
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: "invalid number: " + s})
			}
			ints = append(ints, n)
		}
	}
	return ints, nil
}

// queryStrings is queryInts for strings.
func queryStrings(ctx echo.Context, name string) []string {
	var strs []string
	for _, val := range ctx.QueryParams()[name] {
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				strs = append(strs, s)
			}
		}
	}
	return strs
}

// queryInt reads an optional int query param; `def` is returned when absent.
func queryInt(ctx echo.Context, name string, def int) (int, error) {
	val := strings.TrimSpace(ctx.QueryParam(name))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "invalid number: " + val})
	}
	return n, nil
}
