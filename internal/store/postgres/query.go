package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// listQuery appends time bounds on tsCol, a descending order and pagination
// from opts to base. base may already carry positional args.
func listQuery(base string, args []any, tsCol string, opts domain.ListOpts) (string, []any) {
	var b strings.Builder
	b.WriteString(base)
	next := len(args) + 1
	hasWhere := strings.Contains(strings.ToUpper(base), " WHERE ")

	cond := func(expr string, v any) {
		if hasWhere {
			b.WriteString(" AND ")
		} else {
			b.WriteString(" WHERE ")
			hasWhere = true
		}
		fmt.Fprintf(&b, expr, next)
		args = append(args, v)
		next++
	}
	if opts.Since != nil {
		cond(tsCol+" >= $%d", *opts.Since)
	}
	if opts.Until != nil {
		cond(tsCol+" <= $%d", *opts.Until)
	}

	fmt.Fprintf(&b, " ORDER BY %s DESC", tsCol)
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", next)
		args = append(args, opts.Limit)
		next++
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET $%d", next)
		args = append(args, opts.Offset)
	}
	return b.String(), args
}
