// Package container wires openskills services using go.uber.org/dig.
package container

import (
	"time"

	"github.com/openskills/openskills/pkg/catalog"
	"github.com/openskills/openskills/pkg/config"
	"github.com/openskills/openskills/pkg/ingest"
	"github.com/openskills/openskills/pkg/recommend"
	"github.com/openskills/openskills/pkg/server"
	"github.com/openskills/openskills/pkg/skillfs"
	"github.com/pkg/errors"
	"go.uber.org/dig"
)

// Container resolves services on first use, so a command only pays for (and
// only fails on) the services it needs. Callers use the typed getters and
// never import dig directly.
type Container struct {
	d *dig.Container
}

// New registers every service constructor for cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		newCatalog,
		newRepository,
		newStore,
		newRecommender,
		newServer,
		newGitHubClient,
		newSyncer,
	}
	for _, provide := range providers {
		if err := d.Provide(provide); err != nil {
			return nil, errors.Wrap(err, "failed to register service")
		}
	}

	return &Container{d: d}, nil
}

// Catalog returns the catalog loaded from the configured catalog file.
func (c *Container) Catalog() (*catalog.Catalog, error) {
	return resolve[*catalog.Catalog](c)
}

// Store returns the skill directory store.
func (c *Container) Store() (*skillfs.Store, error) {
	return resolve[*skillfs.Store](c)
}

// Recommender returns the prompt recommender.
func (c *Container) Recommender() (*recommend.Recommender, error) {
	return resolve[*recommend.Recommender](c)
}

// Server returns the HTTP API server.
func (c *Container) Server() (*server.Server, error) {
	return resolve[*server.Server](c)
}

// Syncer returns the GitHub skill syncer.
func (c *Container) Syncer() (*ingest.Syncer, error) {
	return resolve[*ingest.Syncer](c)
}

func resolve[T any](c *Container) (T, error) {
	var result T
	err := c.d.Invoke(func(v T) { result = v })
	if err != nil {
		// dig wraps constructor failures; surface the root cause.
		return result, dig.RootCause(err)
	}
	return result, nil
}

func newCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	return catalog.LoadFile(cfg.CatalogPath)
}

func newRepository(c *catalog.Catalog) catalog.Repository {
	return c
}

func newStore(cfg *config.Config) (*skillfs.Store, error) {
	return skillfs.NewStore(cfg.SkillsRoot, skillfs.WithExcludePatterns(cfg.Files.Exclude...))
}

func newRecommender(repo catalog.Repository, store *skillfs.Store) *recommend.Recommender {
	return recommend.NewRecommender(repo, store)
}

func newServer(cfg *config.Config, repo catalog.Repository, store *skillfs.Store, recommender *recommend.Recommender) (*server.Server, error) {
	return server.NewServer(&server.ServerConfig{
		Host:        cfg.Serve.Host,
		Port:        cfg.Serve.Port,
		CORSOrigins: cfg.Serve.CORSOrigins,
	}, repo, store, recommender)
}

func newGitHubClient(cfg *config.Config) *ingest.Client {
	return ingest.NewClient(ingest.ClientConfig{
		APIURL: cfg.GitHub.APIURL,
		Token:  cfg.GitHub.Token,
		Retry: ingest.RetryConfig{
			Attempts:     cfg.Sync.Retry.Attempts,
			InitialDelay: time.Duration(cfg.Sync.Retry.InitialDelay) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.Sync.Retry.MaxDelay) * time.Millisecond,
			BackoffType:  cfg.Sync.Retry.BackoffType,
		},
	})
}

func newSyncer(client *ingest.Client, cfg *config.Config) *ingest.Syncer {
	return ingest.NewSyncer(client, cfg.SkillsRoot)
}
