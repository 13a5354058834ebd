// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package query compiles short search expressions such as
//
//	preset_voltage_v >= 1 AND sample = 'A'
//
// into filter trees that can be evaluated against metadata rows.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/magpierre/measureset/datatable"
	"github.com/magpierre/measureset/internal/filter"
)

// Parser handles parsing of search expressions for a fixed set of columns.
type Parser struct {
	columns map[string]string // lower-case name -> declared name
}

// NewParser creates a parser that accepts the given column names.
func NewParser(columns []string) *Parser {
	m := make(map[string]string, len(columns))
	for _, c := range columns {
		m[strings.ToLower(c)] = c
	}
	return &Parser{columns: m}
}

// Parse compiles a query string. AND binds tighter than OR.
// An empty query yields a filter that passes every row.
func (p *Parser) Parse(queryStr string) (datatable.Filter, error) {
	if strings.TrimSpace(queryStr) == "" {
		return filter.And(), nil
	}

	parts, err := splitByLogicOps(queryStr)
	if err != nil {
		return nil, err
	}

	var (
		alternatives []datatable.Filter
		conjunction  []datatable.Filter
		expectTerm   = true
	)
	for _, part := range parts {
		if part.isOperator {
			if expectTerm {
				return nil, fmt.Errorf("%w: unexpected %s", datatable.ErrInvalidFilter, part.text)
			}
			if part.text == "OR" {
				alternatives = append(alternatives, filter.And(conjunction...))
				conjunction = nil
			}
			expectTerm = true
			continue
		}
		if !expectTerm {
			return nil, fmt.Errorf("%w: missing AND/OR before %q", datatable.ErrInvalidFilter, part.text)
		}
		expr, err := p.parseExpression(part.text)
		if err != nil {
			return nil, err
		}
		conjunction = append(conjunction, expr)
		expectTerm = false
	}
	if expectTerm {
		return nil, fmt.Errorf("%w: query ends with an operator", datatable.ErrInvalidFilter)
	}
	alternatives = append(alternatives, filter.And(conjunction...))

	if len(alternatives) == 1 {
		return alternatives[0], nil
	}
	return filter.Or(alternatives...), nil
}

type queryPart struct {
	text       string
	isOperator bool
}

// splitByLogicOps splits query by AND/OR while preserving the operators.
// Operators inside quotes are left alone.
func splitByLogicOps(query string) ([]queryPart, error) {
	parts := make([]queryPart, 0)
	var current strings.Builder
	var quote byte

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			parts = append(parts, queryPart{text: s})
		}
		current.Reset()
	}

	for i := 0; i < len(query); i++ {
		c := query[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			current.WriteByte(c)
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			current.WriteByte(c)
			continue
		}
		if op, n := logicOpAt(query, i); n > 0 {
			flush()
			parts = append(parts, queryPart{text: op, isOperator: true})
			i += n - 1
			continue
		}
		current.WriteByte(c)
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated quote", datatable.ErrInvalidFilter)
	}
	flush()
	return parts, nil
}

// logicOpAt reports an AND/OR keyword on word boundaries at position i.
func logicOpAt(query string, i int) (string, int) {
	for _, op := range []string{"AND", "OR"} {
		n := len(op)
		if i+n > len(query) || strings.ToUpper(query[i:i+n]) != op {
			continue
		}
		if (i == 0 || isWhitespace(query[i-1])) && (i+n >= len(query) || isWhitespace(query[i+n])) {
			return op, n
		}
	}
	return "", 0
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// parseExpression parses a single expression like "column = value"
func (p *Parser) parseExpression(exprStr string) (datatable.Filter, error) {
	exprStr = strings.TrimSpace(exprStr)

	// Longer symbols first so ">=" is not read as ">"
	operators := []struct {
		op     filter.CompOp
		symbol string
	}{
		{filter.OpGreaterEqual, ">="},
		{filter.OpLessEqual, "<="},
		{filter.OpNotEqual, "!="},
		{filter.OpEqual, "=="},
		{filter.OpEqual, "="},
		{filter.OpGreater, ">"},
		{filter.OpLess, "<"},
		{filter.OpContains, "~"},
	}

	// The leftmost operator wins so quoted values may contain symbols
	for idx := 1; idx < len(exprStr); idx++ {
		for _, opInfo := range operators {
			if !strings.HasPrefix(exprStr[idx:], opInfo.symbol) {
				continue
			}
			name := strings.TrimSpace(exprStr[:idx])
			raw := strings.TrimSpace(exprStr[idx+len(opInfo.symbol):])
			if raw == "" {
				return nil, fmt.Errorf("%w: missing value in %q", datatable.ErrInvalidFilter, exprStr)
			}

			column, exists := p.columns[strings.ToLower(name)]
			if !exists {
				return nil, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, name)
			}
			return filter.Compare(column, opInfo.op, parseLiteral(raw)), nil
		}
	}

	// No operator: search every column for the term
	return &anyColumnContains{term: strings.Trim(exprStr, "\"'")}, nil
}

// parseLiteral turns a query literal into a typed value. Quoted text is
// always a string.
func parseLiteral(raw string) interface{} {
	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
		return raw[1 : len(raw)-1]
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return raw
}

type anyColumnContains struct {
	term string
}

func (f *anyColumnContains) Evaluate(row []datatable.Value, _ []string) (bool, error) {
	term := strings.ToLower(f.term)
	for _, cell := range row {
		if !cell.IsNull && strings.Contains(strings.ToLower(cell.Formatted), term) {
			return true, nil
		}
	}
	return false, nil
}

func (f *anyColumnContains) Description() string {
	return fmt.Sprintf("* ~ %s", f.term)
}
