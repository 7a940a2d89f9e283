package database

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/semmidev/mysqlbackup/internal/config"
	"github.com/semmidev/mysqlbackup/internal/domain"
)

const connectTimeout = 30 * time.Second

type MySQLDatabase struct {
	config *config.MySQLConfig
	openDB func(dsn string) (*sql.DB, error)
}

func NewMySQL(cfg *config.MySQLConfig) *MySQLDatabase {
	return &MySQLDatabase{
		config: cfg,
		openDB: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
}

func (m *MySQLDatabase) Addr() string {
	return net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))
}

func (m *MySQLDatabase) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = m.config.User
	cfg.Passwd = m.config.PlainPassword()
	cfg.Net = "tcp"
	cfg.Addr = m.Addr()
	cfg.DBName = m.config.Database
	cfg.Timeout = connectTimeout
	return cfg.FormatDSN()
}

// Enumerate lists every non-system database with its tables, in server order.
// Databases without tables are left out. One connection is used throughout
// and closed before returning.
func (m *MySQLDatabase) Enumerate(ctx context.Context) (domain.Schema, error) {
	db, err := m.openDB(m.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", m.Addr(), err)
	}
	defer conn.Close()

	names, err := queryColumn(ctx, conn, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	var schema domain.Schema
	for _, name := range names {
		if domain.IsSystemSchema(name) {
			continue
		}

		if _, err := conn.ExecContext(ctx, "USE "+quoteIdentifier(name)); err != nil {
			return nil, fmt.Errorf("failed to switch to database %s: %w", name, err)
		}

		tables, err := queryColumn(ctx, conn, "SHOW TABLES")
		if err != nil {
			return nil, fmt.Errorf("failed to list tables of %s: %w", name, err)
		}
		if len(tables) == 0 {
			continue
		}

		schema = append(schema, domain.Database{Name: name, Tables: tables})
	}

	return schema, nil
}

// Dump runs cmd with its standard output written to cmd.OutputPath. The dump
// only succeeds once the output file is closed cleanly.
func (m *MySQLDatabase) Dump(ctx context.Context, cmd domain.DumpCommand) (err error) {
	out, err := os.Create(cmd.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close dump file: %w", cerr)
		}
	}()

	var stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Stdout = out
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s failed: %w, output: %s", cmd.Program, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

func (m *MySQLDatabase) Ping(ctx context.Context) error {
	db, err := m.openDB(m.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}

	return nil
}

func queryColumn(ctx context.Context, conn *sql.Conn, query string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
