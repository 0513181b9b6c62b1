package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/adapter"
	"github.com/m-mizutani/kotae/pkg/repository"
	"github.com/m-mizutani/kotae/pkg/service/mcp"
	"github.com/m-mizutani/kotae/pkg/service/policy"
	"github.com/m-mizutani/kotae/pkg/tool"
	"github.com/m-mizutani/kotae/pkg/tool/qa"
	"github.com/m-mizutani/kotae/pkg/usecase/pipeline"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	dataDir  string
	project  string
	database string

	// Gemini
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Extensions
	bucket    string
	mcpConfig string
	policyDir string

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "Directory for local JSON storage (overrides Firestore)",
			Sources:     cli.EnvVars("KOTAE_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KOTAE_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// extensionFlags returns flags for the optional response archive, MCP
// tool servers and ingest policy.
func extensionFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for the response archive",
			Sources:     cli.EnvVars("KOTAE_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "mcp-config",
			Usage:       "Path to MCP server configuration file",
			Sources:     cli.EnvVars("KOTAE_MCP_CONFIG"),
			Destination: &cfg.mcpConfig,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego policies gating document ingestion",
			Sources:     cli.EnvVars("KOTAE_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// loggerContext builds the logger from the configured level and attaches
// it to the context.
func (cfg *config) loggerContext(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.dataDir != "" {
		repo, err := repository.NewLocal(cfg.dataDir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create local repository")
		}
		return repo, nil
	}

	if cfg.project == "" {
		return nil, goerr.New("either data-dir or project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.geminiModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
	}
	return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
}

// runtime bundles everything a command needs to process queries.
type runtime struct {
	pipeline  *pipeline.Pipeline
	registry  *tool.Registry
	repo      repository.Repository
	mcpClient *mcp.Client
}

// newRuntime wires the repository, model, tool catalog and optional
// extensions into a ready pipeline.
func (cfg *config) newRuntime(ctx context.Context) (*runtime, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	gate, err := policy.New(ctx, cfg.policyDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load ingest policy")
	}

	client := &tool.Client{Repo: repo, Gemini: gemini}
	registry := tool.New(qa.New(client, gate)...)

	mcpClient, bridged, err := mcp.LoadAndConnect(ctx, cfg.mcpConfig)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect MCP servers")
	}
	for _, t := range bridged {
		registry.Register(t)
	}

	var opts []pipeline.Option
	if cfg.bucket != "" {
		archive, err := adapter.NewStorage(ctx, cfg.bucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create response archive")
		}
		opts = append(opts, pipeline.WithArchive(archive))
	}

	return &runtime{
		pipeline:  pipeline.New(gemini, repo, registry, opts...),
		registry:  registry,
		repo:      repo,
		mcpClient: mcpClient,
	}, nil
}

func (r *runtime) close() {
	if r.mcpClient != nil {
		if err := r.mcpClient.Close(); err != nil {
			logging.Default().Warn("failed to close MCP client", "error", err)
		}
	}
}
