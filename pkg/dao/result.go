package dao

// SQLResult is final SQL text plus its positional parameters. The text uses
// `?` placeholders; Params[i] binds to the (i+1)th placeholder.
type SQLResult struct {
	Text   string
	Params []any
}

// NewSQLResult copies params so later changes by the caller are not seen.
func NewSQLResult(text string, params ...any) SQLResult {
	p := make([]any, len(params))
	copy(p, params)
	return SQLResult{Text: text, Params: p}
}

// Descriptor is anything that lowers itself to SQL, such as a fluent query
// builder.
type Descriptor interface {
	ToSQL() (SQLResult, error)
}
