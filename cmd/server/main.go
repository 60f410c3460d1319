package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/blogsite/blog-backend/internal/config"
	"github.com/blogsite/blog-backend/internal/es"
	authhdl "github.com/blogsite/blog-backend/internal/handlers/auth"
	"github.com/blogsite/blog-backend/internal/handlers/blog"
	"github.com/blogsite/blog-backend/internal/handlers/search"
	"github.com/blogsite/blog-backend/internal/handlers/users"
	"github.com/blogsite/blog-backend/internal/logging"
	authmw "github.com/blogsite/blog-backend/internal/middleware/auth"
	"github.com/blogsite/blog-backend/internal/middleware/ratelimit"
	"github.com/blogsite/blog-backend/internal/mykafka"
	"github.com/blogsite/blog-backend/internal/service/token"
	"github.com/blogsite/blog-backend/internal/transport"
	httpserver "github.com/blogsite/blog-backend/internal/transport/http"
)

const postsIndex = "posts"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	brokers := []string{configuration.KAFKA_ADDRESS}
	topics := []string{"user_events", "post_events"}
	prod, err := mykafka.NewProducer(brokers, topics)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	var redisClient *redis.Client
	if configuration.REDIS_ADDR != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: configuration.REDIS_ADDR})
	}
	limiter := ratelimit.NewRedisLimiter(redisClient)

	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
		AccessTTL:     configuration.AccessTTL,
		Rotate:        configuration.RotateRefresh,
	}

	validate := validator.New()

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.HTTPErrorHandler = transport.ErrorHandler(logger)

	deps := httpserver.Deps{
		Gate:    &authmw.Gate{DB: db, Tokens: tokens},
		Limiter: limiter,
		AuthHandler: &authhdl.AuthHandler{
			DB:       db,
			Tokens:   tokens,
			Producer: prod,
			Validate: validate,
		},
		PostHandler: &blog.PostHandler{
			DB:       db,
			Producer: prod,
			ES:       esClient,
			Index:    postsIndex,
			Validate: validate,
		},
		UserHandler:   &users.UserHandler{DB: db},
		SearchHandler: search.NewSearchHandler(esClient, postsIndex),
	}

	httpserver.Register(e, &deps)

	// Hourly sweep of expired refresh-token rows. Verification checks
	// expiry itself, so this is housekeeping, not a security control.
	purgeDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := tokens.PurgeExpired(); err != nil {
					log.Printf("refresh token purge error: %v", err)
				}
			case <-purgeDone:
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")
	close(purgeDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
