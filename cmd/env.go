package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/portops/triage-cli/internal/analyzer"
	"github.com/portops/triage-cli/internal/errmatch"
	"github.com/portops/triage-cli/internal/llm"
	"github.com/portops/triage-cli/internal/resilience"
	"github.com/portops/triage-cli/internal/store"
	"github.com/portops/triage-cli/internal/ticketing"
	"github.com/portops/triage-cli/pkg/jira"
	sfpkg "github.com/portops/triage-cli/pkg/salesforce"
	"github.com/portops/triage-cli/pkg/servicenow"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "triage.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		var poolCfg *store.PoolConfig
		if cfg.Store.PoolMaxConns > 0 || cfg.Store.PoolMinConns > 0 {
			poolCfg = &store.PoolConfig{
				MaxConns: cfg.Store.PoolMaxConns,
				MinConns: cfg.Store.PoolMinConns,
			}
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore initializes the configured store and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func llmSettings() llm.Settings {
	return llm.Settings{
		Provider:        cfg.Model.Provider,
		AzureAPIKey:     cfg.Azure.APIKey,
		AzureEndpoint:   cfg.Azure.Endpoint,
		AzureDeployment: cfg.Azure.Deployment,
		AzureAPIVersion: cfg.Azure.APIVersion,
		AnthropicAPIKey: cfg.Anthropic.APIKey,
		AnthropicModel:  cfg.Anthropic.Model,
	}
}

// newAnalyzer wires the full triage flow over st: the retrying provider
// client, relevance-ranked corpus selection, known-error enrichment, and
// usage tracking. An unconfigured provider degrades every analysis to the
// rule-based path rather than failing construction.
func newAnalyzer(st store.Store) *analyzer.Analyzer {
	client := llm.WithRetry(llm.New(llmSettings()), resilience.DefaultRetryConfig())
	return analyzer.New(client, st,
		analyzer.WithLimits(cfg.Scoring.TrainingLimit, cfg.Scoring.KnowledgeLimit),
		analyzer.WithUsageReporter(st),
		analyzer.WithEnricher(errmatch.NewMatcher(st)),
	)
}

// initTicketing builds the ticketing service for the named backend, or
// for cfg.Ticketing.Backend when name is empty.
func initTicketing(name string) (*ticketing.Service, error) {
	if name == "" {
		name = cfg.Ticketing.Backend
	}

	switch name {
	case "", "local":
		return ticketing.NewService(ticketing.NewLocalBackend()), nil
	case "jira":
		jc := cfg.Ticketing.Jira
		client := jira.NewClient(jc.BaseURL, jc.Username, jc.Token)
		return ticketing.NewService(ticketing.NewJiraBackend(client, jc.Project, jc.IssueType)), nil
	case "servicenow":
		sc := cfg.Ticketing.ServiceNow
		client := servicenow.NewClient(sc.Instance, sc.Username, sc.Password)
		return ticketing.NewService(ticketing.NewServiceNowBackend(client, sc.Category)), nil
	case "salesforce":
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return ticketing.NewService(ticketing.NewSalesforceBackend(client)), nil
	default:
		return nil, eris.Errorf("unsupported ticketing backend: %s", name)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	sc := cfg.Ticketing.Salesforce
	if sc.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (TRIAGE_TICKETING_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(sc.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         sc.LoginURL,
		Username:       sc.Username,
		ConsumerKey:    sc.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}
