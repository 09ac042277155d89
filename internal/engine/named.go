package engine

import (
	"database/sql"
	"fmt"
	"regexp"
)

var namedParamRe = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// namedArgs extracts the named parameters a statement actually references
// and binds them from vals. SQLite rejects supplied parameters the
// statement never mentions, and stored specs share one value map across
// statements with different parameter sets.
func namedArgs(stmt string, vals map[string]interface{}) []interface{} {
	seen := make(map[string]bool)
	var args []interface{}
	for _, m := range namedParamRe.FindAllStringSubmatch(stmt, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if v, ok := vals[name]; ok {
			args = append(args, sql.Named(name, v))
		}
	}
	return args
}

// collectRows drains a result set into ordered column maps. Text values
// come back from SQLite as []byte and are normalized to string.
func collectRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns: %w", err)
	}
	out := []map[string]interface{}{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		m := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				m[c] = string(b)
			} else {
				m[c] = vals[i]
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
