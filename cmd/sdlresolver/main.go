package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jensneuse/abstractlogger"

	"github.com/hanpama/sdlresolver/internal/demo"
	"github.com/hanpama/sdlresolver/internal/eventbus"
	"github.com/hanpama/sdlresolver/internal/logging"
	"github.com/hanpama/sdlresolver/internal/otel"
	"github.com/hanpama/sdlresolver/internal/schema"
	"github.com/hanpama/sdlresolver/internal/server"
)

const rootUsage = `sdlresolver: schema-first GraphQL resolution over content fixtures

USAGE:
  sdlresolver <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL endpoint for the content schema
  print-schema     Validate a schema and print its normalized SDL
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema <file>                 GraphQL SDL file (default: built-in content schema)
  -fixtures <file>               YAML content fixtures (default: built-in fixtures)
  -graphql.introspection <bool>  Enable GraphQL introspection (default: true)
  -graphql.graphiql <bool>       Serve GraphiQL to browsers (default: true)
  -server.addr <addr>            HTTP listen address (default: :8080)
  -server.pretty                 Pretty-print JSON responses
  -server.timeout <duration>     Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>       Maximum request body size; 0 is unlimited (default: 1048576)
  -server.cors <origin>          Allowed CORS origin. Repeatable
  -server.document-cache <n>     Parsed documents to keep; 0 disables (default: 256)
  -server.cache-headers <bool>   Emit Cache-Control, Cache-Tags and ETag (default: true)
  -otel.endpoint <addr>          OTLP collector endpoint
  -otel.service <name>           OpenTelemetry service name (default: sdlresolver)
  -log.level <level>             debug, info, warn or error (default: info)
  -log.development               Human-readable log output
`

const printSchemaUsage = `print-schema FLAGS:
  -schema <file>  GraphQL SDL file (default: built-in content schema)
  -out <file>     Write the SDL to file (default: stdout)
  (Validation always runs; exits non-zero on errors)
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("sdlresolver", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "print-schema":
		return cmdPrintSchema(cmdArgs, stdout)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "print-schema":
		fmt.Fprint(stdout, printSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type serveConfig struct {
	schemaFile    string
	fixturesFile  string
	introspection bool
	graphiql      bool
	addr          string
	pretty        bool
	timeout       time.Duration
	maxBody       int64
	cors          stringListFlag
	documentCache int
	cacheHeaders  bool
	otelEndpoint  string
	otelService   string
	logLevel      string
	logDev        bool
}

func parseServe(args []string) (serveConfig, error) {
	cfg := serveConfig{
		introspection: true,
		graphiql:      true,
		addr:          ":8080",
		timeout:       10 * time.Second,
		maxBody:       1 << 20,
		documentCache: 256,
		cacheHeaders:  true,
		otelService:   "sdlresolver",
		logLevel:      "info",
	}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&cfg.schemaFile, "schema", cfg.schemaFile, "GraphQL SDL file")
	fs.StringVar(&cfg.fixturesFile, "fixtures", cfg.fixturesFile, "YAML content fixtures")
	fs.BoolVar(&cfg.introspection, "graphql.introspection", cfg.introspection, "Enable GraphQL introspection")
	fs.BoolVar(&cfg.graphiql, "graphql.graphiql", cfg.graphiql, "Serve GraphiQL")
	fs.StringVar(&cfg.addr, "server.addr", cfg.addr, "HTTP listen address")
	fs.BoolVar(&cfg.pretty, "server.pretty", cfg.pretty, "Pretty-print JSON responses")
	fs.DurationVar(&cfg.timeout, "server.timeout", cfg.timeout, "Per-request timeout")
	fs.Int64Var(&cfg.maxBody, "server.max-body", cfg.maxBody, "Maximum request body size")
	fs.Var(&cfg.cors, "server.cors", "Allowed CORS origin")
	fs.IntVar(&cfg.documentCache, "server.document-cache", cfg.documentCache, "Parsed documents to keep")
	fs.BoolVar(&cfg.cacheHeaders, "server.cache-headers", cfg.cacheHeaders, "Emit cache headers")
	fs.StringVar(&cfg.otelEndpoint, "otel.endpoint", cfg.otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.otelService, "otel.service", cfg.otelService, "OpenTelemetry service name")
	fs.StringVar(&cfg.logLevel, "log.level", cfg.logLevel, "Log level")
	fs.BoolVar(&cfg.logDev, "log.development", cfg.logDev, "Human-readable log output")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return cfg, err
	}
	return cfg, nil
}

// newHandler loads the schema and fixtures and returns the GraphQL
// handler for cfg.
func newHandler(cfg serveConfig, logger abstractlogger.Logger) (http.Handler, error) {
	sdl, err := readSchema(cfg.schemaFile)
	if err != nil {
		return nil, err
	}
	fixtures, err := demo.LoadFixtures(cfg.fixturesFile)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	app, err := demo.New(sdl, fixtures, logger)
	if err != nil {
		return nil, err
	}

	sopts := []server.Option{
		server.WithTimeout(cfg.timeout),
		server.WithMaxBodyBytes(cfg.maxBody),
		server.WithIntrospection(cfg.introspection),
		server.WithGraphiQL(cfg.graphiql),
		server.WithDocumentCacheSize(cfg.documentCache),
		server.WithCacheHeaders(cfg.cacheHeaders),
		server.WithLogger(logger),
	}
	if cfg.pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.cors) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.cors...))
	}
	h, err := server.New(app.Registry, app.Schema, sopts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}
	return h, nil
}

func cmdServe(args []string) error {
	cfg, err := parseServe(args)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.logLevel, cfg.logDev)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.otelEndpoint, cfg.otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	h, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	srv := &http.Server{Addr: cfg.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	logger.Info("sdlresolver.listening", abstractlogger.String("addr", cfg.addr))
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("sdlresolver.shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func cmdPrintSchema(args []string, stdout io.Writer) error {
	schemaFile := ""
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&outFile, "out", outFile, "Write the SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, printSchemaUsage)
		return err
	}

	sdl, err := readSchema(schemaFile)
	if err != nil {
		return err
	}
	sch, err := schema.BuildFromSDL(sdl)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	out := schema.Render(sch)
	if outFile == "" {
		fmt.Fprint(stdout, out)
		return nil
	}
	return os.WriteFile(outFile, []byte(out), 0644)
}

func readSchema(path string) (string, error) {
	if path == "" {
		return demo.SchemaSDL, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	return string(b), nil
}
