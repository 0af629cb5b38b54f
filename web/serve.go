// Package web mounts the thin backend collaborators: the credential
// issuer and the image translation endpoint.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/generative-ai-go/genai"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/api/option"

	"parlo/token"
	"parlo/vision"
)

type Config struct {
	Port           int
	OpenAIKey      string
	GeminiKey      string
	SessionsURL    string
	Model          string
	RateLimit      int
	RateWindowSecs int
}

func Serve(cfg Config, logger *log.Logger) error {
	if cfg.OpenAIKey == "" {
		return fmt.Errorf("openai api key not configured")
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))

	limiter := token.NewFixedWindow(cfg.RateLimit, time.Duration(cfg.RateWindowSecs)*time.Second)
	minter := &token.UpstreamMinter{
		URL:    cfg.SessionsURL,
		APIKey: cfg.OpenAIKey,
		Model:  cfg.Model,
	}
	token.NewHandler(minter, limiter, logger).Routes(r)

	if cfg.GeminiKey != "" {
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiKey))
		if err != nil {
			return fmt.Errorf("create vision client: %w", err)
		}
		defer client.Close()
		vision.NewHandler(vision.New(client, logger), logger).Routes(r)
	} else {
		logger.Warn("gemini key missing, image translation disabled")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"elapsed", time.Since(start),
			)
		})
	}
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the token issuer and image translation server",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		return Serve(Config{
			Port:           port,
			OpenAIKey:      viper.GetString("openai_api_key"),
			GeminiKey:      viper.GetString("gemini_api_key"),
			SessionsURL:    viper.GetString("sessions_url"),
			Model:          viper.GetString("model"),
			RateLimit:      viper.GetInt("rate_limit"),
			RateWindowSecs: viper.GetInt("rate_window_seconds"),
		}, log.Default())
	},
}

func init() {
	ServeCmd.Flags().IntP("port", "p", 8090, "Port to listen on")
}
