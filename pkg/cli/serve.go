package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "127.0.0.1:8192",
			Sources:     cli.EnvVars("KOTAE_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, extensionFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggerContext(ctx)

			rt, err := cfg.newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			server := &http.Server{
				Addr:              addr,
				Handler:           newHandler(rt),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(net.Listener) context.Context {
					return ctx
				},
			}

			logger := logging.From(ctx)
			logger.Info("starting HTTP API", "addr", addr)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shut down server")
				}
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return goerr.Wrap(err, "server failed")
			}
		},
	}
}

func newHandler(rt *runtime) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("POST /api/query", handleQuery(rt))
	mux.HandleFunc("POST /api/documents", handleStoreDocument(rt))
	mux.HandleFunc("GET /api/stats", handleStats(rt))
	return mux
}

type queryRequest struct {
	Query   string         `json:"query"`
	Profile *model.Profile `json:"profile,omitempty"`
}

func handleQuery(rt *runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		response, err := rt.pipeline.Execute(r.Context(), req.Query, req.Profile)
		if err != nil {
			logging.From(r.Context()).Error("query processing failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to process query")
			return
		}
		writeJSON(w, http.StatusOK, response)
	}
}

type storeDocumentRequest struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func handleStoreDocument(rt *runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storeDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title == "" || req.Content == "" {
			writeError(w, http.StatusBadRequest, "title and content are required")
			return
		}

		args := map[string]any{
			"title":   req.Title,
			"content": req.Content,
			"url":     req.URL,
		}
		if len(req.Metadata) > 0 {
			meta := make(map[string]any, len(req.Metadata))
			for k, v := range req.Metadata {
				meta[k] = v
			}
			args["metadata"] = meta
		}

		result, err := rt.registry.Execute(r.Context(), "store_document", args)
		if err != nil {
			logging.From(r.Context()).Error("document storage failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store document")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleStats(rt *runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := rt.registry.Execute(r.Context(), "get_statistics", map[string]any{})
		if err != nil {
			logging.From(r.Context()).Error("statistics collection failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to collect statistics")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Default().Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
