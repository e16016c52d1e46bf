package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	blockSlotHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/block_slot"
	createGroupSessionHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/create_group_session"
	createSlotsHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/create_slots"
	deleteSlotHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/delete_slot"
	getBookingHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/get_booking"
	getInstructorBookingsHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/get_instructor_bookings"
	getInstructorSlotsHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/get_instructor_slots"
	getUserBookingsHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/get_user_bookings"
	initiateReservationHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/initiate_reservation"
	paymentWebhookHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/payment_webhook"
	unblockSlotHandler "github.com/m04kA/STC-ReservationService/internal/api/handlers/unblock_slot"
	"github.com/m04kA/STC-ReservationService/internal/api/middleware"
	"github.com/m04kA/STC-ReservationService/internal/config"
	bookingRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/booking"
	groupSessionRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/groupsession"
	slotRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/slot"
	transactionRepo "github.com/m04kA/STC-ReservationService/internal/infra/storage/transaction"
	notifyServiceClient "github.com/m04kA/STC-ReservationService/internal/integrations/notifyservice"
	payProviderClient "github.com/m04kA/STC-ReservationService/internal/integrations/payprovider"
	reservationsService "github.com/m04kA/STC-ReservationService/internal/service/reservations"
	scheduleService "github.com/m04kA/STC-ReservationService/internal/service/schedule"
	initiateReservationUC "github.com/m04kA/STC-ReservationService/internal/usecase/initiate_reservation"
	settlePaymentUC "github.com/m04kA/STC-ReservationService/internal/usecase/settle_payment"
	"github.com/m04kA/STC-ReservationService/internal/worker/sweeper"
	"github.com/m04kA/STC-ReservationService/pkg/dbmetrics"
	"github.com/m04kA/STC-ReservationService/pkg/logger"
	"github.com/m04kA/STC-ReservationService/pkg/metrics"
	"github.com/m04kA/STC-ReservationService/pkg/simpletxmanager"
	"github.com/m04kA/STC-ReservationService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting STC-ReservationService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем интеграционных клиентов
	payClient := payProviderClient.NewClient(
		cfg.PayProvider.URL,
		cfg.PayProvider.Token,
		time.Duration(cfg.PayProvider.Timeout)*time.Second,
		log,
	)
	notifyClient := notifyServiceClient.NewClient(
		cfg.NotifyService.URL,
		time.Duration(cfg.NotifyService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (PayProvider=%s timeout=%ds, NotifyService=%s timeout=%ds)",
		cfg.PayProvider.URL, cfg.PayProvider.Timeout, cfg.NotifyService.URL, cfg.NotifyService.Timeout)

	// Инициализируем репозитории (с метриками или без)
	var (
		slotRepository        *slotRepo.Repository
		groupRepository       *groupSessionRepo.Repository
		transactionRepository *transactionRepo.Repository
		bookingRepository     *bookingRepo.Repository
	)

	// Интерфейс для transaction manager (используется в usecases и сервисах)
	type TxManager interface {
		Do(ctx context.Context, fn func(ctx context.Context) error) error
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
		DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
	}
	var txMgr TxManager

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		slotRepository = slotRepo.NewRepository(wrappedDB)
		groupRepository = groupSessionRepo.NewRepository(wrappedDB)
		transactionRepository = transactionRepo.NewRepository(wrappedDB)
		bookingRepository = bookingRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		slotRepository = slotRepo.NewRepository(db)
		groupRepository = groupSessionRepo.NewRepository(db)
		transactionRepository = transactionRepo.NewRepository(db)
		bookingRepository = bookingRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Инициализируем сервисы
	reservationsSvc := reservationsService.NewService(
		bookingRepository,
		slotRepository,
		groupRepository,
		txMgr,
		log,
	)
	scheduleSvc := scheduleService.NewService(
		slotRepository,
		groupRepository,
		bookingRepository,
		transactionRepository,
		txMgr,
		log,
	)

	// Инициализируем use cases
	initiateReservationUseCase := initiateReservationUC.NewUseCase(
		slotRepository,
		groupRepository,
		transactionRepository,
		payClient,
		txMgr,
		log,
	)
	settlePaymentUseCase := settlePaymentUC.NewUseCase(
		transactionRepository,
		bookingRepository,
		slotRepository,
		groupRepository,
		notifyClient,
		txMgr,
		log,
	)

	// Инициализируем handlers
	initiateReservation := initiateReservationHandler.NewHandler(initiateReservationUseCase, log)
	paymentWebhook := paymentWebhookHandler.NewHandler(settlePaymentUseCase, log)
	getBooking := getBookingHandler.NewHandler(reservationsSvc, log)
	getUserBookings := getUserBookingsHandler.NewHandler(reservationsSvc, log)
	getInstructorBookings := getInstructorBookingsHandler.NewHandler(reservationsSvc, log)
	getInstructorSlots := getInstructorSlotsHandler.NewHandler(scheduleSvc, log)
	createSlots := createSlotsHandler.NewHandler(scheduleSvc, log)
	blockSlot := blockSlotHandler.NewHandler(scheduleSvc, log)
	unblockSlot := unblockSlotHandler.NewHandler(scheduleSvc, log)
	deleteSlot := deleteSlotHandler.NewHandler(scheduleSvc, log)
	createGroupSession := createGroupSessionHandler.NewHandler(scheduleSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		log.Info("HTTP metrics middleware enabled")
	}

	// Metrics endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Callback платежного провайдера (подпись проверяется на API gateway)
	api.HandleFunc("/payments/webhook", paymentWebhook.Handle).Methods(http.MethodPost)

	// Расписание инструктора
	api.HandleFunc("/instructors/{instructorId}/slots",
		getInstructorSlots.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Бронирования ---
	// Инициация бронирования (создает pending транзакцию и инвойс на оплату)
	protected.HandleFunc("/reservations", initiateReservation.Handle).Methods(http.MethodPost)

	// Получение бронирования по ID
	protected.HandleFunc("/reservations/{bookingId}", getBooking.Handle).Methods(http.MethodGet)

	// История бронирований клиента
	protected.HandleFunc("/users/{userId}/reservations", getUserBookings.Handle).Methods(http.MethodGet)

	// --- Управление расписанием (для инструкторов) ---
	// Список бронирований инструктора
	protected.HandleFunc("/instructors/{instructorId}/bookings",
		getInstructorBookings.Handle).Methods(http.MethodGet)

	// Создание слотов на день
	protected.HandleFunc("/instructors/{instructorId}/slots",
		createSlots.Handle).Methods(http.MethodPost)

	// Блокировка и разблокировка слота
	protected.HandleFunc("/slots/{slotId}/block", blockSlot.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/slots/{slotId}/unblock", unblockSlot.Handle).Methods(http.MethodPatch)

	// Удаление слота (отказ, если есть ссылки из бронирований или платежей)
	protected.HandleFunc("/slots/{slotId}", deleteSlot.Handle).Methods(http.MethodDelete)

	// Создание групповой сессии
	protected.HandleFunc("/group-sessions", createGroupSession.Handle).Methods(http.MethodPost)

	// Запускаем sweeper (если включен)
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	if cfg.Sweeper.Enabled {
		var sweeperMetrics sweeper.Metrics
		if cfg.Metrics.Enabled {
			sweeperMetrics = metricsCollector
		}

		sw := sweeper.New(
			slotRepository,
			transactionRepository,
			groupRepository,
			notifyClient,
			txMgr,
			sweeperMetrics,
			log,
			sweeper.Config{
				Interval:  time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second,
				BatchSize: cfg.Sweeper.BatchSize,
			},
		)
		go sw.Run(sweeperCtx)
		log.Info("Reconciliation sweeper started (interval=%ds, batch_size=%d)",
			cfg.Sweeper.IntervalSeconds, cfg.Sweeper.BatchSize)
	}

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем sweeper
	stopSweeper()

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
