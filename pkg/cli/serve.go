package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/smartreview-app/smartreview/pkg/cli/config"
	controller "github.com/smartreview-app/smartreview/pkg/controller/http"
	"github.com/smartreview-app/smartreview/pkg/domain/interfaces"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
	"github.com/smartreview-app/smartreview/pkg/infra/githubapp"
	"github.com/smartreview-app/smartreview/pkg/infra/llm"
	"github.com/smartreview-app/smartreview/pkg/infra/notify"
	"github.com/smartreview-app/smartreview/pkg/infra/repository"
	"github.com/smartreview-app/smartreview/pkg/infra/vault"
	"github.com/smartreview-app/smartreview/pkg/usecase"
	"github.com/smartreview-app/smartreview/pkg/utils/async"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		githubCfg config.GitHub
		llmCfg    config.LLM
		vaultCfg  config.Vault
		notifyCfg config.Notify
		policyCfg config.Policy
	)

	flags := serverCfg.Flags()
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, vaultCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting smartreview server",
				slog.String("addr", serverCfg.Addr),
				slog.String("vault_backend", vaultCfg.Backend),
				slog.String("llm_model", llmCfg.Model),
			)

			// Credential vault
			key, err := vaultCfg.Key()
			if err != nil {
				return err
			}
			repo, repoCloser, err := buildRepository(ctx, &vaultCfg)
			if err != nil {
				return err
			}
			if repoCloser != nil {
				defer repoCloser.Close()
			}
			credVault, err := vault.New(key, repo)
			if err != nil {
				return err
			}

			// GitHub App identity and REST client
			pem, err := githubCfg.PrivateKeyPEM()
			if err != nil {
				return err
			}
			idOpts := []githubapp.IdentityOption{
				githubapp.WithRefreshMargin(githubCfg.RefreshMargin),
			}
			if githubCfg.APIBaseURL != "" {
				idOpts = append(idOpts, githubapp.WithBaseURL(githubCfg.APIBaseURL))
			}
			identity, err := githubapp.NewIdentity(githubCfg.AppID, pem, idOpts...)
			if err != nil {
				return err
			}

			var chOpts []githubapp.ClientOption
			if githubCfg.APIBaseURL != "" {
				chOpts = append(chOpts, githubapp.WithAPIBaseURL(githubCfg.APIBaseURL))
			}
			codeHost := githubapp.NewClient(chOpts...)

			// Review pipeline
			policy, err := policyCfg.Load()
			if err != nil {
				return err
			}
			pipeline := usecase.NewReviewPipeline(codeHost, llm.NewOpenAIFactory(llmCfg.Model), policy)

			// Operator notification and error reporting
			var notifier interfaces.Notifier = notify.Noop{}
			if notifyCfg.SlackWebhookURL != "" {
				notifier = notify.NewSlack(notifyCfg.SlackWebhookURL)
			}

			var poolOpts []async.Option
			if notifyCfg.SentryDSN != "" {
				if err := sentry.Init(sentry.ClientOptions{
					Dsn:     notifyCfg.SentryDSN,
					Release: types.ServiceName + "@" + types.Version,
				}); err != nil {
					return goerr.Wrap(err, "failed to initialize Sentry")
				}
				defer sentry.Flush(2 * time.Second)

				poolOpts = append(poolOpts, async.WithErrorHook(func(ctx context.Context, err error) {
					sentry.CaptureException(err)
				}))
			}

			pool := async.NewPool(int(serverCfg.Workers), int(serverCfg.QueueSize), poolOpts...)

			webhookUC := usecase.NewWebhook(pool, credVault, identity, pipeline, notifier,
				usecase.WithRunTimeout(serverCfg.RunTimeout),
			)

			server, err := controller.NewServer(
				ctx,
				webhookUC,
				credVault,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithAPIToken(serverCfg.APIToken),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown: stop intake first, then drain workers.
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := pool.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Worker pool did not drain before timeout", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

// buildRepository creates the credential repository for the configured
// backend. The returned closer is nil for the memory backend.
func buildRepository(ctx context.Context, cfg *config.Vault) (interfaces.CredentialRepository, io.Closer, error) {
	switch cfg.Backend {
	case config.VaultBackendSQLite:
		repo, err := repository.NewSQLite(cfg.DBPath, 0)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil

	case config.VaultBackendFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required for the firestore backend")
		}
		repo, err := repository.NewFirestore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil

	case config.VaultBackendMemory:
		ctxlog.From(ctx).Warn("memory vault backend keeps credentials only until restart; dev only")
		return repository.NewMemory(), nil, nil

	default:
		return nil, nil, goerr.New("unknown vault backend", goerr.V("backend", cfg.Backend))
	}
}
