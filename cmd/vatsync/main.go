package main

import (
	"context"
	"log/slog"
	"os"

	"dubaivat/config"
	"dubaivat/internal/delivery"
	"dubaivat/internal/delivery/http"
	"dubaivat/internal/delivery/http/middleware"
	"dubaivat/internal/delivery/http/router/handler"
	sharedmiddleware "dubaivat/internal/delivery/middleware"
	"dubaivat/internal/domain/service"
	"dubaivat/internal/errors"
	"dubaivat/internal/infra/auth"
	"dubaivat/internal/infra/gateway"
	logs "dubaivat/internal/infra/log"
	"dubaivat/internal/infra/metrics"
	"dubaivat/internal/infra/persistence/postgres"
	"dubaivat/internal/usecase"
	"dubaivat/internal/usecase/impl"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

type runSessionParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Session usecase.SessionUsecase
	Logger  *slog.Logger
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			runSession,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		fx.Annotate(
			metrics.NewRegistry,
			fx.As(new(prometheus.Registerer), new(prometheus.Gatherer)),
		),
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
			auth.NewLocalIdentityProvider,
			func(provider *auth.LocalIdentityProvider) service.IdentityProvider { return provider },
			gateway.NewProfileGateway,
			fx.Annotate(
				metrics.NewCollector,
				fx.As(new(service.SyncMetrics)),
			),
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewProfileSyncService,
			impl.NewSessionService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
			sharedmiddleware.NewRequestIDMiddleware,
			sharedmiddleware.NewLoggerMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewSessionHandler,
			handler.NewOnboardingHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// runSession drives the session machine for the lifetime of the app. A machine
// that stops on its own shuts the app down.
func runSession(params runSessionParams) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)

				err := params.Session.Run(ctx)
				if ctx.Err() != nil {
					return
				}
				params.Logger.Error("Session machine stopped", slog.Any("error", err))
				_ = params.Shutdowner.Shutdown(fx.ExitCode(1))
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()

			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return errors.Wrap(stopCtx.Err(), "session machine did not stop")
			}
		},
	})
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
