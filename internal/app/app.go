// Package app provides application initialization and dependency wiring.
//
// App is the container that orchestrates all components: Genkit,
// the database pool, the vector store, the backup coordinator, and
// the agent workflow. Setup builds everything in dependency order;
// Close releases resources in reverse.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lexicon-id/putusan/internal/agent"
	"github.com/lexicon-id/putusan/internal/backup"
	"github.com/lexicon-id/putusan/internal/cases"
	"github.com/lexicon-id/putusan/internal/config"
	"github.com/lexicon-id/putusan/internal/knowledge"
	"github.com/lexicon-id/putusan/internal/metrics"
	"github.com/lexicon-id/putusan/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool
	Store    knowledge.Store
	Cases    *cases.Store
	Gate     *backup.Gate
	Backup   *backup.Coordinator
	Sessions *session.Store
	Agent    *agent.Agent
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	otelCleanup func()
}

// Close gracefully shuts down all resources in reverse setup order.
func (a *App) Close() error {
	a.logger().Info("shutting down application")

	if a.Backup != nil {
		a.Backup.Stop()
	}
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.logger().Warn("closing vector store", "error", err)
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.logger().Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
