package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/aliyevr/timetrack/internal/config"
	"github.com/aliyevr/timetrack/internal/database"
	"github.com/aliyevr/timetrack/internal/handler"
	"github.com/aliyevr/timetrack/internal/queue"
	"github.com/aliyevr/timetrack/internal/repository"
	"github.com/aliyevr/timetrack/internal/router"
	"github.com/aliyevr/timetrack/internal/service"
)

func main() {
	// .env is a development convenience; in production the variables
	// come from the environment and the file is simply absent.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables rate limiting and the
	// quota cache, everything else keeps working.
	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	projects := repository.NewProjectRepo(db)
	tasks := repository.NewTaskRepo(db)
	entries := repository.NewEntryRepo(db)
	quotas := repository.NewQuotaRepo(db)

	quotaSvc := service.NewQuotaService(quotas, entries, rdb, 5*time.Minute)
	pub := service.NewPublisher(cfg.AMQPURL)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	userH := handler.NewUserHandler(cfg, users)
	projectH := handler.NewProjectHandler(projects, users)
	taskH := handler.NewTaskHandler(tasks, projects)
	entryH := handler.NewEntryHandler(entries, projects, tasks, users, quotaSvc, pub)
	quotaH := handler.NewQuotaHandler(quotas, quotaSvc)
	reportH := handler.NewReportHandler(entries, projects, tasks, users, pub)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterPublic(e, userH)
	auth := router.RegisterAuth(e, authH, cfg.JWTSecret, rlCfg, rdb)
	router.RegisterTimesheet(auth, projectH, taskH, entryH)
	router.RegisterUsers(auth, userH)
	router.RegisterQuotas(auth, quotaH)
	router.RegisterReports(auth, reportH)

	if cfg.AMQPURL != "" {
		go queue.StartConsumers(cfg.AMQPURL)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
