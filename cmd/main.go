package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"llm-gateway/handler"
	"llm-gateway/internal/config"
	"llm-gateway/internal/credentials"
	"llm-gateway/internal/integrations/anthropic"
	"llm-gateway/internal/integrations/openai"
	"llm-gateway/internal/integrations/paramstore"
	"llm-gateway/internal/integrations/upstream"
	"llm-gateway/internal/logging"
	"llm-gateway/internal/registry"
	"llm-gateway/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.Init(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		slog.Error("failed to initialise logging", "err", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	// ---- Credentials ----
	var getter credentials.Getter
	openaiParam, anthropicParam := "", ""
	if cfg.ParamPrefix != "" {
		ssmClient, err := paramstore.NewFromEnvironment(ctx, cfg.ParamPrefix)
		if err != nil {
			logger.Error("failed to create SSM client", "err", err)
			os.Exit(1)
		}
		getter = ssmClient
		openaiParam = ssmClient.ParameterName(paramstore.OpenAITokenLeaf)
		anthropicParam = ssmClient.ParameterName(paramstore.AnthropicTokenLeaf)
	}

	openaiKeys, err := credentials.Resolve(cfg.OpenAIAPIKey, getter, openaiParam)
	if err != nil {
		logger.Error("failed to resolve OpenAI credentials", "err", err)
		os.Exit(1)
	}
	anthropicKeys, err := credentials.Resolve(cfg.AnthropicAPIKey, getter, anthropicParam)
	if err != nil {
		logger.Error("failed to resolve Anthropic credentials", "err", err)
		os.Exit(1)
	}

	// ---- Provider clients ----
	openaiOpts := []openai.Option{openai.WithHTTPClient(upstream.NewHTTPClient(string(registry.ProviderOpenAI), logger))}
	if cfg.OpenAIBaseURL != "" {
		openaiOpts = append(openaiOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	openaiClient, err := openai.NewClient(openaiKeys, openaiOpts...)
	if err != nil {
		logger.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	anthropicOpts := []anthropic.Option{anthropic.WithHTTPClient(upstream.NewHTTPClient(string(registry.ProviderAnthropic), logger))}
	if cfg.AnthropicBaseURL != "" {
		anthropicOpts = append(anthropicOpts, anthropic.WithBaseURL(cfg.AnthropicBaseURL))
	}
	anthropicClient, err := anthropic.NewClient(anthropicKeys, anthropicOpts...)
	if err != nil {
		logger.Error("failed to create Anthropic client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	models := cfg.Registry()
	gateway, err := usecase.NewGatewayService(models, openaiClient, anthropicClient, cfg.SystemPrompt, cfg.MaxTokens)
	if err != nil {
		logger.Error("failed to create gateway service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(gateway, cfg.FrontendURL, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if cfg.RunningOnLambda() {
		adapter, err := handler.NewLambdaAdapter(h.Routes())
		if err != nil {
			logger.Error("failed to create lambda adapter", "err", err)
			os.Exit(1)
		}
		logger.Info("starting lambda handler", "models", len(models.Models()))
		lambda.StartWithOptions(adapter.Handle, lambda.WithContext(ctx))
		return
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h.CompressedRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "models", models.Models())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
	}
}
