package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "arena.db", "SQLite database path (empty disables persistence)")
	cfgPath := flag.String("config", "", "Optional YAML tuning file")
	clientDir := flag.String("client", "", "Optional static viewer directory")
	adminPass := flag.String("admin-pass", os.Getenv("ARENA_ADMIN_PASSWORD"), "Admin password for battle control")
	seed := flag.Int64("seed", 0, "RNG seed override (0 keeps config/default)")
	autostart := flag.Bool("autostart", true, "Start the battle immediately")
	tuneName := flag.String("tune", "", "Evolve strategy parameters for a species and exit")
	tuneGens := flag.Int("tune-gens", 20, "Tuner generations")
	flag.Parse()

	cfg, err := LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	// Offline tuning mode: evolve one species' parameters and print them
	if *tuneName != "" {
		species, ok := ParseSpecies(*tuneName)
		if !ok {
			log.Fatalf("unknown species %q", *tuneName)
		}
		tuner, err := NewTuner(species, cfg, 24, cfg.Seed)
		if err != nil {
			log.Fatalf("tuner: %v", err)
		}
		best, fitness := tuner.Run(*tuneGens)
		log.Printf("tuner: best %s parameters (fitness %.2f):", species, fitness)
		log.Printf("  perception=%.1f speed_mul=%.2f group_bias=%.2f group_range=%.1f",
			best.Perception, best.SpeedMul, best.GroupBias, best.GroupRange)
		return
	}

	var db *DB
	if *dbPath != "" {
		db, err = OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
	}

	var analytics *Analytics
	if db != nil {
		analytics = NewAnalytics(db)
		defer analytics.Stop()
	}

	auth := NewAuth(db, *adminPass)
	if *adminPass == "" {
		log.Println("no admin password set, battle control disabled")
	}

	hub, err := NewHub(cfg, db, analytics, auth)
	if err != nil {
		log.Fatalf("hub: %v", err)
	}
	go hub.Run()
	go hub.RunBattleLoop()

	if *autostart {
		if err := hub.Engine().Start(); err != nil {
			log.Fatalf("start battle: %v", err)
		}
		log.Printf("battle %s started", hub.Engine().BattleID())
	}

	mux := SetupRoutes(hub, *clientDir)
	server := &http.Server{Addr: *addr, Handler: mux}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("arena server listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("shutting down...")
	hub.Stop()
	server.Close()
}
