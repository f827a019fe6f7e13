package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/riyaaz/core"
)

const orderingParam = "ordering"

// bindOrdering parses `?ordering=field,-field` against the allowed fields.
func bindOrdering(ctx echo.Context, allowed []string) ([]core.DBOrdering, error) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil, nil
	}

	known := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		known[f] = true
	}

	var orderings []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !known[field] {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: orderingParam,
				Error: "cannot order by " + field + "; allowed: " + strings.Join(allowed, ", "),
			})
		}
		orderings = append(orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings, nil
}

type SuccessResponse struct {
	Success string `json:"success"`
}
