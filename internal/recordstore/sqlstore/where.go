package sqlstore

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"taskflow/internal/model"
	"taskflow/internal/recordstore"
)

// likeEscaper makes LIKE treat the needle literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere compiles plain conditions and condition groups into one
// expression. It returns nil when nothing filters.
func buildWhere(sc kindSchema, where []recordstore.Condition, groups []recordstore.ConditionGroup) (sq.Sqlizer, error) {
	var all sq.And
	for _, cond := range where {
		expr, err := buildCondition(sc, cond)
		if err != nil {
			return nil, err
		}
		all = append(all, expr)
	}

	for _, group := range groups {
		var parts []sq.Sqlizer
		for _, sub := range group.SubGroups {
			var conds []sq.Sqlizer
			for _, cond := range sub.Conditions {
				expr, err := buildCondition(sc, cond)
				if err != nil {
					return nil, err
				}
				conds = append(conds, expr)
			}
			if len(conds) > 0 {
				parts = append(parts, join(sub.Operator, conds))
			}
		}
		if len(parts) > 0 {
			all = append(all, join(group.Operator, parts))
		}
	}

	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func join(op recordstore.Logic, exprs []sq.Sqlizer) sq.Sqlizer {
	if strings.EqualFold(string(op), string(recordstore.Or)) {
		return sq.Or(exprs)
	}
	return sq.And(exprs)
}

func buildCondition(sc kindSchema, cond recordstore.Condition) (sq.Sqlizer, error) {
	column, ok := sc.columns[cond.FieldName]
	if !ok {
		return nil, fmt.Errorf("unknown field %q for %s", cond.FieldName, sc.kind)
	}
	if len(cond.Values) == 0 {
		return nil, fmt.Errorf("condition on %q has no values", cond.FieldName)
	}

	values := make([]any, len(cond.Values))
	for i, v := range cond.Values {
		values[i] = normalizeValue(v)
	}

	switch cond.Operator {
	case recordstore.EqualTo:
		if len(values) == 1 {
			return sq.Eq{column: values[0]}, nil
		}
		return sq.Eq{column: values}, nil
	case recordstore.NotEqualTo:
		if len(values) == 1 {
			return sq.NotEq{column: values[0]}, nil
		}
		return sq.NotEq{column: values}, nil
	case recordstore.Contains:
		target := "LOWER(" + column + ")"
		if folded, ok := sc.folded[cond.FieldName]; ok {
			target = folded
		}
		var matches sq.Or
		for _, v := range values {
			pattern := "%" + likeEscaper.Replace(fold(fmt.Sprint(v))) + "%"
			matches = append(matches, sq.Expr(target+` LIKE ? ESCAPE '\'`, pattern))
		}
		return matches, nil
	case recordstore.GreaterThan:
		var matches sq.Or
		for _, v := range values {
			matches = append(matches, sq.Gt{column: v})
		}
		return matches, nil
	case recordstore.LessThan:
		var matches sq.Or
		for _, v := range values {
			matches = append(matches, sq.Lt{column: v})
		}
		return matches, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", cond.Operator)
	}
}

// normalizeValue turns JSON floats and lookup objects into integer ids so
// they compare against integer columns.
func normalizeValue(v any) any {
	switch value := v.(type) {
	case float64, map[string]any:
		if id, ok := model.CoerceID(value); ok {
			return id
		}
	}
	return v
}
