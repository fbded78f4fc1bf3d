package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chaintask-client/pkg/api"
	"chaintask-client/pkg/app"
	"chaintask-client/pkg/config"
	"chaintask-client/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	utils.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	client, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build client")
	}

	router := gin.Default()

	log.Info().Msgf("Allowed origins: %v", cfg.CorsAllowedOrigins)
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CorsAllowedOrigins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowWildcard:    true,
	}
	router.Use(cors.New(corsConfig))
	api.Routes(router, client)

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Hello, this is the chaintask gateway",
		})
	})

	server := &http.Server{
		Addr:    ":" + cfg.GatewayPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Msgf("Received signal: %s. Shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown")
	}
	client.Close(ctx)
	log.Info().Msg("Server exiting")
}
