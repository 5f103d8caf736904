package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"stayhub/internal/pkg/config"

	"ariga.io/atlas-go-sdk/atlasexec"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// migrate applies migrations/ declaratively: atlas diffs the live database
// against the schema files and executes the difference.
func main() {
	var (
		schema = flag.String("schema", "file://migrations", "desired schema URL")
		devURL = flag.String("dev-url", "docker://postgres/17/dev", "dev database used by atlas to normalize the schema")
		dryRun = flag.Bool("dry-run", false, "print planned statements without executing them")
		binary = flag.String("atlas", "atlas", "path to the atlas binary")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env", "error", err)
	}
	var dbCfg config.DBConfig
	if err := envconfig.Process("", &dbCfg); err != nil {
		logger.Error("failed to read database config", "error", err)
		os.Exit(1)
	}

	client, err := atlasexec.NewClient(".", *binary)
	if err != nil {
		logger.Error("failed to initialize atlas client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := client.SchemaApply(ctx, &atlasexec.SchemaApplyParams{
		URL:         dbCfg.BuildDSN(),
		To:          *schema,
		DevURL:      *devURL,
		DryRun:      *dryRun,
		AutoApprove: true,
	})
	if err != nil {
		logger.Error("schema apply failed", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		logger.Info("planned changes", "statements", res.Changes.Pending)
		return
	}
	logger.Info("schema applied", "statements", len(res.Changes.Applied))
}
