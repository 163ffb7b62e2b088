package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/cache"
	"alphamonitor/src/handler"
	"alphamonitor/src/refresher"
	"alphamonitor/src/repository"
	"alphamonitor/src/service"
	"alphamonitor/src/ws"
)

// changes couples cache invalidation with post-write rebroadcast so write
// handlers need a single dependency.
type changes struct {
	data *service.DataService
	ref  *refresher.Refresher
}

func (c changes) Invalidate(table string) {
	c.data.Invalidate(table)
}

func (c changes) NotifyChanged(ctx context.Context, table string) {
	c.ref.NotifyChanged(ctx, table)
}

// StartServer wires the repositories, cache, WebSocket hub and refresh loop
// into the chi router and runs until SIGINT/SIGTERM.
func StartServer(port string) {
	users := repository.NewUserRepository()
	orders := repository.NewOrderRepository()
	assets := repository.NewAssetRepository()
	strategies := repository.NewStrategyRepository()
	trades := repository.NewTradeRepository()
	tracking := repository.NewTrackingRepository()
	bindings := repository.NewUserStrategyRepository()
	loginStatuses := repository.NewLoginStatusRepository()
	stats := repository.NewStatsRepository()

	store := cache.New(cache.DefaultSweepInterval)
	store.Start()
	defer store.Stop()

	data := service.New(store, users, orders, assets, strategies, trades, tracking, stats)

	hub := ws.NewHub()
	hub.Start()

	refresherConfig := refresher.GetConfig()
	loop := refresher.New(data, hub, time.Duration(refresherConfig.IntervalSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop.Start(ctx)
	defer loop.Stop()

	sink := changes{data: data, ref: loop}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Handle("/ws", hub)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", handler.LoginHandler(users))
		r.Post("/auth/change-password", handler.ChangePasswordHandler(users))

		r.Get("/batch/all", handler.BatchAllHandler(data))
		r.Get("/incremental", handler.IncrementalHandler(data, loop))
		r.Get("/stats/optimized", handler.StatsHandler(data))

		r.Get("/users-filtered", handler.UsersFilteredHandler(data))
		r.Get("/orders-filtered", handler.OrdersFilteredHandler(data))
		r.Get("/user-assets-filtered", handler.AssetsFilteredHandler(data))
		r.Get("/strategies-filtered", handler.StrategiesFilteredHandler(data))
		r.Get("/trades-filtered", handler.TradesFilteredHandler(data))
		r.Get("/user-strategy-tracking-filtered", handler.TrackingFilteredHandler(data))

		r.Get("/users", handler.UsersFilteredHandler(data))
		r.Get("/users/paginated", handler.UsersPaginatedHandler(users))
		r.Post("/users/by-uuids", handler.UsersByUUIDsHandler(users))
		r.Post("/users", handler.CreateUserHandler(users, sink))
		r.Put("/users/{id}", handler.UpdateUserHandler(users, sink))
		r.Delete("/users/{id}", handler.DeleteUserHandler(users, sink))
		r.Get("/users/{id}/usdt-balance", handler.UserUSDTBalanceHandler(users, assets))
		r.Post("/users/usdt-balances", handler.USDTBalancesHandler(assets))

		r.Post("/strategies", handler.CreateStrategyHandler(strategies, sink))
		r.Put("/strategies/update-status", handler.UpdateStrategyStatusHandler(strategies, sink))
		r.Post("/user-strategies", handler.CreateUserStrategyHandler(users, strategies, bindings, sink))
		r.Put("/user-strategy-tracking/update-status", handler.UpdateTrackingStatusHandler(tracking, sink))

		r.Get("/trades", handler.TradesPaginatedHandler(trades))

		r.Get("/data-inconsistency-check", handler.DataInconsistencyHandler(stats))

		r.Get("/trading-pairs", handler.TradingPairsHandler(stats))
		r.Get("/trading-pairs/{symbol}/users", handler.PairUsersHandler(stats))

		r.Route("/user-login-status", func(r chi.Router) {
			r.Get("/{userId}", handler.GetLoginStatusHandler(loginStatuses))
			r.Post("/{userId}/start", handler.StartLoginHandler(loginStatuses))
			r.Post("/{userId}/confirm", handler.ConfirmLoginHandler(loginStatuses))
			r.Post("/{userId}/qrcode", handler.SetQRCodeHandler(loginStatuses))
			r.Get("/{userId}/check", handler.CheckLoginStatusHandler(loginStatuses))
		})
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	loop.Stop()
	hub.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
