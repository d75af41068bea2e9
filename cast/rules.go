package cast

import (
	"fmt"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule is a boolean expression over the casted params. When it evaluates to
// false, Message is recorded against Field.
//
// The expression sees every casted field as a top-level variable, the whole
// map as "params", plus whatever extra environment the caller provides. The
// caller's environment wins over a field of the same name, which stays
// reachable through params:
//
//	cast.Rule{Field: "age", Expr: `age >= 18 || action == "create_minor"`, Message: "must be an adult"}
type Rule struct {
	Field   string
	Expr    string
	Message string
}

// Rules is a compiled rule list.
type Rules struct {
	rules    []Rule
	programs []*vm.Program
}

// CompileRules compiles every expression up front so that syntax errors
// surface at registration time.
func CompileRules(rules []Rule) (*Rules, error) {
	rs := &Rules{
		rules:    make([]Rule, 0, len(rules)),
		programs: make([]*vm.Program, 0, len(rules)),
	}
	for i, r := range rules {
		if r.Expr == "" {
			return nil, fmt.Errorf("%w: rule %d has no expression", ErrInvalidSchema, i)
		}
		prog, err := expr.Compile(r.Expr, expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d (%s): %v", ErrInvalidSchema, i, r.Expr, err)
		}
		if r.Message == "" {
			r.Message = "is invalid"
		}
		rs.rules = append(rs.rules, r)
		rs.programs = append(rs.programs, prog)
	}
	return rs, nil
}

// Len returns the number of rules.
func (rs *Rules) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Fields returns the distinct fields the rules are bound to, in rule order.
func (rs *Rules) Fields() []string {
	if rs == nil {
		return nil
	}
	var out []string
	for _, r := range rs.rules {
		if r.Field != "" && !slices.Contains(out, r.Field) {
			out = append(out, r.Field)
		}
	}
	return out
}

// Apply evaluates the rules against rec. Rules bound to a field that is
// absent or already failed are skipped. An expression that fails at run time
// counts as a failed rule.
func (rs *Rules) Apply(rec *Record, env map[string]any) *Record {
	if rs.Len() == 0 {
		return rec
	}

	vars := make(map[string]any, len(env)+len(rec.changes)+1)
	for k, v := range rec.changes {
		vars[k] = v
	}
	for k, v := range env {
		vars[k] = v
	}
	vars["params"] = rec.Changes()

	for i, r := range rs.rules {
		if r.Field != "" && (!rec.has(r.Field) || rec.HasErrorOn(r.Field)) {
			continue
		}

		out, err := expr.Run(rs.programs[i], vars)
		if err != nil {
			rec.AddFieldError(FieldError{
				Field:   r.Field,
				Kind:    KindValidation,
				Type:    rec.types[r.Field],
				Message: r.Message,
				Cause:   err,
			})
			continue
		}
		if ok, _ := out.(bool); !ok {
			rec.AddError(r.Field, r.Message)
		}
	}
	return rec
}
