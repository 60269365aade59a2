// launching the server, cleanup worker, kafka processor
package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/coloringbook/config"
	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/kafka"
	"github.com/ds124wfegd/coloringbook/internal/transport"
	"github.com/ds124wfegd/coloringbook/internal/worker"
	"github.com/gin-gonic/gin"

	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       time.Minute,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},           // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewServer serves the web page and API until SIGINT or SIGTERM.
func NewServer(cfg *config.Config) {
	SetupLogging()

	components := NewComponents(cfg)
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupWorker := worker.NewConversionCleanupWorker(components.Service, cfg.Worker.CleanupInterval, cfg.Worker.ResultTTL)
	go cleanupWorker.Start(ctx)

	handler := transport.NewConversionHandler(components.Service, cfg.App.MaxUploadBytes)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(handler, components.Metrics, cfg.App.RequestTimeout)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("port", cfg.Server.Port).Print("App Started")

	waitForSignal()

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

// RunProcessor consumes conversion tasks from Kafka until SIGINT or SIGTERM.
func RunProcessor(cfg *config.Config) {
	SetupLogging()

	if len(cfg.Kafka.Brokers) == 0 {
		logrus.Fatal("kafka.brokers is empty, nothing to consume")
	}

	components := NewComponents(cfg)
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForSignal()
		logrus.Print("Processor Shutting Down")
		cancel()
	}()

	err := kafka.StartTaskConsumer(ctx, kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.TaskTopic,
		GroupID: cfg.Kafka.GroupID,
		Workers: cfg.Worker.Consumers,
	}, func(ctx context.Context, task entity.ConversionTask) error {
		_, err := components.Service.Process(ctx, task)
		return err
	})
	if err != nil {
		logrus.Errorf("processor stopped with error: %s", err.Error())
	}
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit
}
