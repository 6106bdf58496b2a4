package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/browserscript/browserscript/api"
	"github.com/browserscript/browserscript/config"
	"github.com/browserscript/browserscript/downloads"
	"github.com/browserscript/browserscript/driver"
	"github.com/browserscript/browserscript/pkg/logger"
	"github.com/browserscript/browserscript/storage"
)

// Build information, injected via LDFLAGS.
var (
	Version   = "v0.1.0"
	BuildTime = ""
	GoVersion = ""
)

func main() {
	port := flag.String("port", "", "Server port (default: 8080)")
	host := flag.String("host", "", "Server host (default: 0.0.0.0)")
	configPath := flag.String("config", "config.toml", "Path to config file (default: config.toml)")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Go Version: %s\n", GoVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config file, using default config: %v", err)
	}

	logger.InitLogger(cfg.Log)

	// Priority: command line > environment > config file.
	if *port != "" {
		cfg.Server.Port = *port
	} else if envPort := os.Getenv("PORT"); envPort != "" {
		cfg.Server.Port = envPort
	}

	if *host != "" {
		cfg.Server.Host = *host
	} else if envHost := os.Getenv("HOST"); envHost != "" {
		cfg.Server.Host = envHost
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := storage.NewBoltDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Println("✓ Database initialization successful")

	var watcher *downloads.Watcher
	if cfg.Browser.DownloadDir != "" {
		if err := os.MkdirAll(cfg.Browser.DownloadDir, 0o755); err != nil {
			log.Fatalf("Failed to create download directory: %v", err)
		}
		watcher = downloads.NewWatcher(cfg.Browser.DownloadDir)
	}

	rod := driver.NewRod(driver.Options{
		BinPath:     cfg.Browser.BinPath,
		UserDataDir: cfg.Browser.UserDataDir,
		DownloadDir: cfg.Browser.DownloadDir,
		Headless:    cfg.Browser.Headless,
		UseStealth:  cfg.Browser.UseStealth,
	})
	log.Println("✓ Browser driver initialized successfully")

	handler := api.NewHandler(db, rod, watcher, cfg)
	router := api.SetupRouter(handler, cfg.Debug)

	setupGracefulShutdown(rod, db)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 BrowserScript server started at http://%s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupGracefulShutdown closes the browser and the database on SIGINT
// or SIGTERM.
func setupGracefulShutdown(rod *driver.Rod, db *storage.BoltDB) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("\nReceived exit signal: %v", sig)
		log.Println("Exiting gracefully...")

		if rod.IsRunning() {
			log.Println("Browser is running, closing...")
			if err := rod.Stop(); err != nil {
				log.Printf("Failed to close browser: %v", err)
			} else {
				log.Println("✓ Browser closed")
			}
		}

		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		} else {
			log.Println("✓ Database closed")
		}

		os.Exit(0)
	}()
}
