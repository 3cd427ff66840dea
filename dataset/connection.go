package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// DBType names the SQL driver behind a Connection
type DBType string

const (
	// MySQL is selected by mysql:// URLs
	MySQL DBType = "mysql"
	// PostgreSQL is selected by postgres:// and postgresql:// URLs
	PostgreSQL DBType = "postgres"
)

// Connection is a database used as a dataset source
type Connection struct {
	db     *sql.DB
	Type   DBType
	source string
}

// Connect establishes a database connection from a URL string
func Connect(ctx context.Context, dbURL string) (*Connection, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, &DatasetReadError{Source: "database", Err: fmt.Errorf("invalid database URL: %w", err)}
	}

	conn := Connection{source: u.Redacted()}
	var dsn string

	switch u.Scheme {
	case "mysql":
		conn.Type = MySQL
		// Convert URL format to DSN format
		database := strings.TrimPrefix(u.Path, "/")
		dsn = fmt.Sprintf("%s@tcp(%s)/%s", u.User.String(), u.Host, database)
		if u.RawQuery != "" {
			dsn += "?" + u.RawQuery
		}

	case "postgres", "postgresql":
		conn.Type = PostgreSQL
		// PostgreSQL can use the URL directly
		dsn = dbURL

	default:
		return nil, &DatasetReadError{Source: conn.source, Err: fmt.Errorf("unsupported database type: %s", u.Scheme)}
	}

	db, err := sql.Open(string(conn.Type), dsn)
	if err != nil {
		return nil, &DatasetReadError{Source: conn.source, Err: fmt.Errorf("failed to open database connection: %w", err)}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &DatasetReadError{Source: conn.source, Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	conn.db = db
	return &conn, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// TableQuery builds a query selecting every row of table
func (c *Connection) TableQuery(table string) string {
	parts := strings.Split(table, ".")
	for i, part := range parts {
		parts[i] = escapeIdentifier(part, c.Type)
	}
	return fmt.Sprintf("SELECT * FROM %s", strings.Join(parts, "."))
}

// ReadQuery runs query and returns every result row, in result order, with
// values converted to strings. NULL becomes the empty string.
func (c *Connection) ReadQuery(ctx context.Context, query string, args ...any) ([]Row, error) {
	if c.db == nil {
		return nil, &DatasetReadError{Source: c.source, Err: fmt.Errorf("sql: database is closed")}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &DatasetReadError{Source: c.source, Err: fmt.Errorf("failed to run query: %w", err)}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &DatasetReadError{Source: c.source, Err: fmt.Errorf("failed to get columns: %w", err)}
	}

	// Prepare value holders
	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	result := make([]Row, 0)
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, &DatasetReadError{Source: c.source, Err: fmt.Errorf("failed to scan row %d: %w", len(result)+1, err)}
		}

		record := make([]string, len(columns))
		for i, v := range values {
			record[i] = stringify(v)
		}
		row, _ := NewRow(len(result)+1, columns, record)
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, &DatasetReadError{Source: c.source, Err: fmt.Errorf("error iterating rows: %w", err)}
	}

	return result, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

func escapeIdentifier(identifier string, dbType DBType) string {
	switch dbType {
	case MySQL:
		return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
	case PostgreSQL:
		return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
	default:
		return identifier
	}
}
