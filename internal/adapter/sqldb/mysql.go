package sqldb

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

const mysqlSchemaQuery = `
	SELECT
		c.TABLE_NAME,
		c.COLUMN_NAME,
		c.DATA_TYPE,
		IF(c.IS_NULLABLE = 'YES', 1, 0),
		IF(c.COLUMN_KEY = 'PRI', 1, 0)
	FROM information_schema.COLUMNS c
	WHERE c.TABLE_SCHEMA = DATABASE()
	ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

// MySQLEndpoint holds the discrete connection settings of a MySQL sandbox.
type MySQLEndpoint struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Config converts the endpoint into a driver config.
func (e MySQLEndpoint) Config() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	port := e.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = net.JoinHostPort(e.Host, strconv.Itoa(port))
	cfg.User = e.User
	cfg.Passwd = e.Password
	cfg.DBName = e.Database
	return cfg
}

// ParseMySQLDSN parses a go-sql-driver style DSN
// ("user:pass@tcp(host:3306)/db").
func ParseMySQLDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing mysql DSN: %w", err)
	}
	return cfg, nil
}

// NewMySQLRunner returns a runner for a MySQL sandbox. The dial timeout is the
// connect timeout and the socket read timeout is the execution budget.
func NewMySQLRunner(cfg *mysql.Config, maxRows int, connectTimeout, queryTimeout time.Duration) *Runner {
	c := cfg.Clone()
	c.Timeout = connectTimeout
	c.ReadTimeout = queryTimeout
	c.ParseTime = true
	c.MultiStatements = false
	return newRunner("mysql", c.FormatDSN(), mysqlSchemaQuery, maxRows, connectTimeout, queryTimeout)
}
