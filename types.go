package pggate

// QueryInput is the input of the query tool.
type QueryInput struct {
	SQL string `json:"sql"`
}

// QueryResult is the shaped result set of a read-only query. Column order
// matches the declared order of the underlying result set; RowCount always
// equals len(Rows).
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ResourceDescriptor advertises one user table as a browsable resource.
// The URI is postgres://<display host>/<table>/schema.
type ResourceDescriptor struct {
	URI         string  `json:"uri"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	MIMEType    string  `json:"mimeType"`
}

// ColumnInfo describes a single column of a table.
type ColumnInfo struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Nullable    bool    `json:"nullable"`
	Description *string `json:"description"`
}

// ConstraintInfo describes a named constraint. Kind is the raw
// single-character pg_constraint.contype code ("p" primary key, "f" foreign
// key, "u" unique, "c" check), passed through unmodified.
type ConstraintInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// SchemaDocument is the detailed schema of one table, serialized as JSON
// for resource reads. Columns are ordered by physical column ordinal.
type SchemaDocument struct {
	Columns     []ColumnInfo     `json:"columns"`
	Constraints []ConstraintInfo `json:"constraints"`
}

// ToolDescriptor is the static description of an exposed tool.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}
