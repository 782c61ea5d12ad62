package migrations

import "embed"

// PostgresFS holds the PostgreSQL schema for runs and estimates.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the ClickHouse schema for the period-record panel.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
