package main

import (
	"time"

	"github.com/guillermoBallester/sqlgym/internal/config"
	"github.com/spf13/pflag"
)

// flagValues holds the raw values of the global flags. Only flags the user
// actually set become overrides.
type flagValues struct {
	fs *pflag.FlagSet

	catalog         string
	logLevel        string
	maxRows         int
	queryTimeout    time.Duration
	connectTimeout  time.Duration
	transport       string
	httpAddr        string
	httpBearerToken string
	foldColumnCase  bool
	otel            bool
	auditLog        string
}

func (v *flagValues) register(fs *pflag.FlagSet) {
	v.fs = fs
	fs.StringVar(&v.catalog, "catalog", "", "path to the databases and exercises YAML file")
	fs.StringVar(&v.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.IntVar(&v.maxRows, "max-rows", 0, "maximum rows returned per query")
	fs.DurationVar(&v.queryTimeout, "query-timeout", 0, "execution budget per query")
	fs.DurationVar(&v.connectTimeout, "connect-timeout", 0, "connection budget per query")
	fs.StringVar(&v.transport, "transport", "", "MCP transport: stdio or http")
	fs.StringVar(&v.httpAddr, "http-addr", "", "listen address for the http transport")
	fs.StringVar(&v.httpBearerToken, "http-bearer-token", "", "bearer token required by the http transport")
	fs.BoolVar(&v.foldColumnCase, "fold-column-case", false, "compare column names case-insensitively when grading")
	fs.BoolVar(&v.otel, "otel", false, "export traces and metrics over OTLP")
	fs.StringVar(&v.auditLog, "audit-log", "", "append every query attempt to this NDJSON file")
}

func (v *flagValues) overrides() config.Overrides {
	o := config.Overrides{
		FoldColumnCase: v.foldColumnCase,
		OTelEnabled:    v.otel,
		AuditLog:       v.auditLog,
	}
	if v.fs.Changed("catalog") {
		o.CatalogFile = &v.catalog
	}
	if v.fs.Changed("log-level") {
		o.LogLevel = &v.logLevel
	}
	if v.fs.Changed("max-rows") {
		o.MaxRows = &v.maxRows
	}
	if v.fs.Changed("query-timeout") {
		o.QueryTimeout = &v.queryTimeout
	}
	if v.fs.Changed("connect-timeout") {
		o.ConnectTimeout = &v.connectTimeout
	}
	if v.fs.Changed("transport") {
		o.Transport = &v.transport
	}
	if v.fs.Changed("http-addr") {
		o.HTTPAddr = &v.httpAddr
	}
	if v.fs.Changed("http-bearer-token") {
		o.HTTPBearerToken = &v.httpBearerToken
	}
	return o
}
