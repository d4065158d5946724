package querybuilder

import (
	"fmt"
	"strings"
)

// Conjunction joins a condition to the one before it
type Conjunction int

const (
	ConjAnd Conjunction = iota + 1
	ConjOr
)

func (c Conjunction) String() string {
	if c == ConjOr {
		return "OR"
	}
	return "AND"
}

// Condition is either a single clause with its args or a parenthesized group
type Condition struct {
	conj   Conjunction
	clause string
	args   []interface{}
	group  []Condition
}

func clauseCond(conj Conjunction, clause string, args []interface{}) Condition {
	return Condition{conj: conj, clause: clause, args: args}
}

func groupCond(conj Conjunction, group []Condition) Condition {
	return Condition{conj: conj, group: group}
}

func (c Condition) isGroup() bool {
	return c.clause == ""
}

// render joins conditions left to right. Empty groups are dropped along with
// their conjunction.
func render(conditions []Condition) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	for _, cond := range conditions {
		var text string
		if cond.isGroup() {
			if len(cond.group) == 0 {
				continue
			}
			inner, innerArgs := render(cond.group)
			text = fmt.Sprintf("(%s)", inner)
			args = append(args, innerArgs...)
		} else {
			text = cond.clause
			args = append(args, cond.args...)
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
			sb.WriteString(cond.conj.String())
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}
	return sb.String(), args
}
