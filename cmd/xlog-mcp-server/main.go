package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"xlog/internal/app"
	"xlog/internal/config"
	"xlog/internal/logger"
	"xlog/internal/mcpserver"
)

func main() {
	envErr := godotenv.Load(".env")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// stdout carries the MCP protocol
	output := cfg.LogOutput
	if output == "" || output == "stdout" {
		output = "stderr"
	}
	lg, closer, err := logger.New(logger.Options{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		Output:   output,
		FilePath: cfg.LogFilePath,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init logger")
	}
	defer closer.Close()
	if envErr != nil {
		lg.Warn().Err(envErr).Msg(".env file not found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to init store")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "xlog-mcp",
		Version: "1.0.0",
	}, nil)
	tools := mcpserver.NewTools(a.Registry, a.Files, a.Transcript, a.Assembler, lg.With().Str("component", "mcp").Logger())
	tools.Register(server)

	lg.Info().Strs("profiles", a.Registry.Names()).Msg("starting xlog MCP server on stdin/stdout")
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		lg.Fatal().Err(err).Msg("server failed")
	}
}
