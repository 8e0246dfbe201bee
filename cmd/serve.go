package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wecollab/matchmaker/internal/httpapi"
	"github.com/wecollab/matchmaker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matchmaking HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "listen host (overrides server.host)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	logger.Info("starting the matchmaker", zap.String("version", version))

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	backend, err := openStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("opening the profile store", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing the profile store", zap.Error(err))
		}
	}()

	engine, err := newEngine(config.Matching, backend, logger)
	if err != nil {
		logger.Fatal("creating the matchmaking engine", zap.Error(err))
	}

	explainer, err := newExplainer(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating the AI explainer", zap.Error(err))
	}

	handler := httpapi.NewHandler(engine, backend, logger, httpapi.Options{
		Explainer:      explainer,
		ExplainWorkers: aiWorkers(config.AI),
	})

	if err := server.New(config.Server, handler.Router(), logger).Run(ctx); err != nil {
		logger.Error("http server failed", zap.Error(err))
		return
	}
}
