package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whispernote/whisperd/pkg/client"
	"github.com/whispernote/whisperd/pkg/config"
	"github.com/whispernote/whisperd/pkg/engine"
	"github.com/whispernote/whisperd/pkg/logging"
	"github.com/whispernote/whisperd/pkg/storage"
)

// WhisperDaemon ties the codec core, the transmission store and the web
// layer together. The web handlers talk to the core over the same Unix
// socket external tools use.
type WhisperDaemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Core components
	coreEngine   *engine.CoreEngine
	store        *storage.TransmissionStore
	socketClient *client.SocketClient
	webServer    *http.Server

	// Socket path
	socketPath string
}

// NewWhisperDaemon creates a new daemon instance
func NewWhisperDaemon(cfg *config.Config) (*WhisperDaemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	socketPath := cfg.API.UnixSocket
	if socketPath == "" {
		socketPath = "/tmp/whisperd.sock"
	}

	store, err := storage.NewTransmissionStore(cfg.Storage.DatabasePath, cfg.Storage.MaxTransmissions)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open transmission store: %w", err)
	}

	daemon := &WhisperDaemon{
		config:       cfg,
		ctx:          ctx,
		cancel:       cancel,
		store:        store,
		socketPath:   socketPath,
		socketClient: client.NewSocketClient(socketPath),
	}

	// Create core engine
	daemon.coreEngine, err = engine.NewCoreEngine(cfg, store)
	if err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to create core engine: %w", err)
	}

	// Initialize web server
	if err := daemon.setupWebServer(); err != nil {
		cancel()
		store.Close()
		return nil, fmt.Errorf("failed to setup web server: %w", err)
	}

	return daemon, nil
}

// Start starts the daemon
func (d *WhisperDaemon) Start() error {
	logging.Info("daemon", "Starting whisperd daemon...")

	// Start core engine first
	if err := d.coreEngine.Start(); err != nil {
		return fmt.Errorf("failed to start core engine: %w", err)
	}

	// Wait a moment for socket to be ready
	time.Sleep(100 * time.Millisecond)

	// Test socket connection
	if !d.socketClient.IsConnected() {
		return fmt.Errorf("failed to connect to core engine socket")
	}

	// Start web server
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
		logging.Infof("daemon", "Starting web server on %s", addr)
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("daemon", "Web server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the daemon gracefully
func (d *WhisperDaemon) Stop() error {
	logging.Info("daemon", "Stopping daemon...")

	d.cancel()

	// Shutdown web server
	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			logging.Errorf("daemon", "Web server shutdown error: %v", err)
		}
	}

	// Stop core engine
	if d.coreEngine != nil {
		if err := d.coreEngine.Stop(); err != nil {
			logging.Errorf("daemon", "Core engine shutdown error: %v", err)
		}
	}

	// Close storage last
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			logging.Errorf("daemon", "Store close error: %v", err)
		}
	}

	// Wait for goroutines to finish
	d.wg.Wait()

	logging.Info("daemon", "Daemon stopped")
	return nil
}

// setupWebServer initializes the web server and routes
func (d *WhisperDaemon) setupWebServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// API routes
	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.POST("/encode", d.handleEncode)
		api.POST("/encode/rf", d.handleEncodeRF)
		api.POST("/decode", d.handleDecode)
		api.GET("/transmissions", d.handleGetTransmissions)
		api.GET("/profile", d.handleGetProfile)
		api.PUT("/profile", d.handleSetProfile)
		api.GET("/monitor", d.handleGetMonitorStats)
	}

	// WebSocket for real-time audio visualization
	router.GET("/ws/audio", d.handleAudioWebSocket)

	addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
	d.webServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	return nil
}
