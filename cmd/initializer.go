package main

import (
	"database/sql"
	"log"

	"firebase.google.com/go/messaging"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"tolkBack/internal/config"
	"tolkBack/internal/handlers"
	"tolkBack/internal/repositories"
	"tolkBack/internal/services"
	"tolkBack/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	db       *sql.DB
	cfg      config.Config

	userRepo     *repositories.UserRepository
	jobRepo      *repositories.JobRepository
	relationRepo *repositories.RelationRepository

	bookings      *services.BookingService
	notifications *services.NotificationService
	userService   *services.UserService
	delayQueue    *services.RedisDelayQueue

	jobHandler      *handlers.JobHandler
	userHandler     *handlers.UserHandler
	fcmHandler      *handlers.FCMHandler
	distanceHandler *handlers.DistanceHandler

	wsManager *WebSocketManager
}

// appLogger adapts the INFO/ERROR logger pair to the service-side interface.
type appLogger struct {
	info  *log.Logger
	error *log.Logger
}

func (l appLogger) Infof(format string, args ...interface{})  { l.info.Printf(format, args...) }
func (l appLogger) Errorf(format string, args ...interface{}) { l.error.Printf(format, args...) }

func initializeApp(db *sql.DB, rdb *redis.Client, fcmClient *messaging.Client, cfg config.Config, errorLog, infoLog *log.Logger) *application {
	// Repositories
	userRepo := repositories.UserRepository{DB: db}
	jobRepo := repositories.JobRepository{DB: db}
	relationRepo := repositories.RelationRepository{DB: db}
	languageRepo := repositories.LanguageRepository{DB: db}
	blacklistRepo := repositories.BlacklistRepository{DB: db}
	distanceRepo := repositories.DistanceRepository{DB: db}
	tokenRepo := repositories.TokenRepository{DB: db}

	// Services
	tokenManager, err := utils.NewManager(cfg.Auth.SigningKey)
	if err != nil {
		errorLog.Fatal(err)
	}
	storage := &utils.S3Storage{
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
	}

	delayQueue := services.NewRedisDelayQueue(rdb)
	notifications := &services.NotificationService{
		Push:   &services.FCMSender{Client: fcmClient},
		SMS:    &services.MobizonSender{Endpoint: cfg.SMS.Endpoint, APIKey: cfg.SMS.APIKey},
		Mail:   &services.GomailMailer{Host: cfg.SMTP.Host, Port: cfg.SMTP.Port, Username: cfg.SMTP.Username, Password: cfg.SMTP.Password, From: cfg.SMTP.From},
		Delay:  delayQueue,
		Tokens: &tokenRepo,
		Users:  &userRepo,
		Langs:  &languageRepo,
		RDB:    rdb,
	}

	matcher := &services.MatchingService{
		UserRepo:      &userRepo,
		JobRepo:       &jobRepo,
		BlacklistRepo: &blacklistRepo,
	}

	wsManager := NewWebSocketManager()

	bookings := &services.BookingService{
		Jobs:      &jobRepo,
		Relations: &relationRepo,
		Users:     &userRepo,
		Matcher:   matcher,
		Notifier:  notifications,
		Offers:    wsManager,
		Logger:    appLogger{info: infoLog, error: errorLog},
	}

	userService := &services.UserService{
		UserRepo:     &userRepo,
		TokenManager: tokenManager,
		Storage:      storage,
		SigningKey:   cfg.Auth.SigningKey,
	}

	// Handlers
	jobHandler := &handlers.JobHandler{
		Bookings:      bookings,
		JobRepo:       &jobRepo,
		Matcher:       matcher,
		Notifications: notifications,
		ErrorLog:      errorLog,
	}
	userHandler := &handlers.UserHandler{Service: userService, ErrorLog: errorLog}
	fcmHandler := &handlers.FCMHandler{Tokens: &tokenRepo}
	distanceHandler := &handlers.DistanceHandler{Distances: &distanceRepo, Jobs: &jobRepo}

	return &application{
		errorLog:        errorLog,
		infoLog:         infoLog,
		db:              db,
		cfg:             cfg,
		userRepo:        &userRepo,
		jobRepo:         &jobRepo,
		relationRepo:    &relationRepo,
		bookings:        bookings,
		notifications:   notifications,
		userService:     userService,
		delayQueue:      delayQueue,
		jobHandler:      jobHandler,
		userHandler:     userHandler,
		fcmHandler:      fcmHandler,
		distanceHandler: distanceHandler,
		wsManager:       wsManager,
	}
}
