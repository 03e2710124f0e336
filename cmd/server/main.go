package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/term"

	"shopdash/internal/config"
	"shopdash/internal/handlers/overview"
	"shopdash/internal/handlers/products"
	"shopdash/internal/services/dataloader"
	"shopdash/internal/services/storage"
	"shopdash/internal/templates"
	"shopdash/internal/version"
)

var (
	cfg      *config.Config
	store    *storage.Storage
	loader   *dataloader.Loader
	renderer *templates.Renderer
)

func main() {
	cfg = config.Load()
	log.Printf("Starting Shopdash %s on %s", version.Get().Version, cfg.ListenAddr)
	log.Printf("Dataset directory: %s", cfg.DataDirectory)

	if err := SetupDependencies(cfg); err != nil {
		log.Fatalf("Failed to set up dependencies: %v", err)
	}

	// An encrypted dataset directory needs the passphrase before anything
	// can be served
	if !store.IsUnlocked() {
		if err := unlockStorage(store); err != nil {
			log.Fatalf("Failed to unlock dataset directory: %v", err)
		}
	}

	r := SetupRouter()

	log.Printf("Server starting on %s", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, r))
}

// SetupDependencies initializes storage, the dataset loader, the template
// renderer, and the handler packages.
func SetupDependencies(c *config.Config) error {
	var err error

	cfg = c
	store, err = storage.New(c.DataDirectory)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	loader = dataloader.New(c.DataDirectory, store)
	loader.SetRowCap("geolocation", c.GeoRowCap)

	renderer, err = templates.New(c.TemplatesDirectory, c.Debug)
	if err != nil {
		log.Printf("Warning: could not load templates: %v", err)
		renderer = nil
	}

	overview.Initialize(c, loader, renderer)
	products.Initialize(c, loader, renderer)

	return nil
}

// SetupRouter builds the chi router with all routes registered.
func SetupRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Static files
	fileServer := http.FileServer(http.Dir(cfg.StaticDirectory))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// Routes
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/overview", http.StatusTemporaryRedirect)
	})

	overview.RegisterRoutes(r)
	products.RegisterRoutes(r)

	// API routes
	r.Get("/api/health", handleHealth)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"version": version.Get(),
	})
}

// unlockStorage prompts for the dataset passphrase on the terminal.
func unlockStorage(s *storage.Storage) error {
	fmt.Fprint(os.Stderr, "Dataset directory is encrypted. Passphrase: ")
	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	return s.Unlock(string(passphrase))
}
