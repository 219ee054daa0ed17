// Package filter provides AIP-160 filter expression parsing and SQL
// translation for event listings.
package filter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	apperrors "github.com/roadwars/roadwars/internal/platform/errors"
)

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "territory_id = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// territoryEventDeclarations returns the field declarations for territory
// event filtering.
func territoryEventDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("territory_id", filtering.TypeString),
		filtering.DeclareIdent("contest_id", filtering.TypeString),
		filtering.DeclareIdent("attacker_id", filtering.TypeString),
		filtering.DeclareIdent("defender_id", filtering.TypeString),
		filtering.DeclareIdent("winner_id", filtering.TypeString),
		filtering.DeclareIdent("transferred", filtering.TypeBool),
		filtering.DeclareIdent("ts", filtering.TypeTimestamp),
	)
}

// diplomaticEventDeclarations returns the field declarations for
// diplomatic event filtering.
func diplomaticEventDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("nation_id", filtering.TypeString),
		filtering.DeclareIdent("reason", filtering.TypeString),
		filtering.DeclareIdent("alliance_id", filtering.TypeString),
		filtering.DeclareIdent("contest_id", filtering.TypeString),
		filtering.DeclareIdent("delta", filtering.TypeInt),
		filtering.DeclareIdent("ts", filtering.TypeTimestamp),
	)
}

// territoryEventColumns maps filter field names to SQL column names.
var territoryEventColumns = map[string]string{
	"territory_id": "territory_id",
	"contest_id":   "contest_id",
	"attacker_id":  "attacker_nation_id",
	"defender_id":  "defender_nation_id",
	"winner_id":    "winner_nation_id",
	"transferred":  "transferred",
	"ts":           "occurred_at",
}

// diplomaticEventColumns maps filter field names to SQL column names.
var diplomaticEventColumns = map[string]string{
	"nation_id":   "nation_id",
	"reason":      "reason",
	"alliance_id": "alliance_id",
	"contest_id":  "contest_id",
	"delta":       "delta",
	"ts":          "occurred_at",
}

// ParseTerritoryEventFilter parses an AIP-160 filter expression against the
// territory event fields and returns a SQL condition. Returns an empty
// condition for an empty filter string.
func ParseTerritoryEventFilter(filterStr string) (SQLCondition, error) {
	return parse(filterStr, territoryEventDeclarations, territoryEventColumns)
}

// ParseDiplomaticEventFilter parses an AIP-160 filter expression against
// the diplomatic event fields and returns a SQL condition.
func ParseDiplomaticEventFilter(filterStr string) (SQLCondition, error) {
	return parse(filterStr, diplomaticEventDeclarations, diplomaticEventColumns)
}

func parse(filterStr string, declare func() (*filtering.Declarations, error), columns map[string]string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}

	decls, err := declare()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, apperrors.Wrap(apperrors.CodeInvalidFilter, "filter expression is invalid", err)
	}

	t := translator{columns: columns}
	cond, err := t.expr(parsed.CheckedExpr.Expr)
	if err != nil {
		return SQLCondition{}, apperrors.Wrap(apperrors.CodeInvalidFilter, "filter expression is unsupported", err)
	}
	return cond, nil
}

// translator converts a checked CEL expression into a SQL condition using
// a fixed field-to-column mapping.
type translator struct {
	columns map[string]string
}

func (t translator) expr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return t.call(kind.CallExpr)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func (t translator) call(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return t.logical(call.Args, "AND")
	case "_||_", "OR":
		return t.logical(call.Args, "OR")
	case "_==_", "=":
		return t.comparison(call.Args, "=")
	case "_!=_", "!=":
		return t.comparison(call.Args, "!=")
	case "_<_", "<":
		return t.comparison(call.Args, "<")
	case "_<=_", "<=":
		return t.comparison(call.Args, "<=")
	case "_>_", ">":
		return t.comparison(call.Args, ">")
	case "_>=_", ">=":
		return t.comparison(call.Args, ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func (t translator) logical(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}

	left, err := t.expr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	right, err := t.expr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func (t translator) comparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	column, ok := t.columns[field]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_CallExpr:
		// Handle timestamp("...") function calls.
		if kind.CallExpr.Function == "timestamp" && len(kind.CallExpr.Args) == 1 {
			return extractTimestampValue(kind.CallExpr.Args[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

// extractTimestampValue converts a timestamp("...") argument to the Unix
// millisecond representation event tables store.
func extractTimestampValue(e *expr.Expr) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("nil timestamp argument")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		strVal, ok := kind.ConstExpr.ConstantKind.(*expr.Constant_StringValue)
		if !ok {
			return 0, fmt.Errorf("timestamp argument must be a string")
		}
		ts, err := time.Parse(time.RFC3339, strVal.StringValue)
		if err != nil {
			ts, err = time.Parse(time.RFC3339Nano, strVal.StringValue)
			if err != nil {
				return 0, fmt.Errorf("invalid timestamp format: %s", strVal.StringValue)
			}
		}
		return ts.UTC().UnixMilli(), nil
	default:
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
}
