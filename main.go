package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"deskport/config"
	"deskport/discovery"
	"deskport/models"
	"deskport/peers"
	"deskport/storage"
	"deskport/window"
)

const portForwardRole = "port-forward"

func main() {
	sessionID := flag.String("connect", "", "peer id to open an initial port-forward tab for")
	isRDP := flag.Bool("rdp", false, "open the initial session as RDP")
	forceRelay := flag.Bool("relay", false, "force relayed routing for the initial session")
	flag.Parse()

	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	fmt.Printf("Peer ID:         %s\n", cfg.PeerID)
	fmt.Printf("Hostname:        %s\n", cfg.Hostname)
	fmt.Printf("Listening Port:  %d\n", cfg.ListeningPort)
	fmt.Printf("Config File:     %s\n", cfgPath)
	dataDir := filepath.Dir(cfgPath)

	store, dbPath, err := storage.Open(dataDir)
	if err != nil {
		log.Fatalf("startup failed while opening database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()
	fmt.Printf("Database File:   %s\n", dbPath)

	var scanner *discovery.PeerScanner
	discoveryService, err := discovery.Start(discovery.Config{
		SelfPeerID:    cfg.PeerID,
		Username:      cfg.Username,
		Hostname:      cfg.Hostname,
		Platform:      cfg.Platform,
		ListeningPort: cfg.ListeningPort,
	})
	if err != nil {
		log.Printf("discovery startup failed: %v", err)
	} else {
		defer discoveryService.Stop()
		scanner = discoveryService.Scanner
		fmt.Println("Discovery:       running")
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	aggregator := buildAggregator(store, scanner, logger)
	registry := window.NewRegistry(logger)

	if *sessionID != "" {
		coordinator, err := window.NewCoordinator(window.Options{
			WindowID: 1,
			Role:     portForwardRole,
			Host:     noopHost{},
			Geometry: store,
			Initial: models.Session{
				ID:         *sessionID,
				IsRDP:      *isRDP,
				ForceRelay: *forceRelay,
			},
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("startup failed while opening port-forward window: %v", err)
		}
		if err := registry.Register(coordinator); err != nil {
			log.Fatalf("startup failed while registering window: %v", err)
		}
		coordinator.Start()
		defer coordinator.Stop()
	}

	for _, peer := range aggregator.Aggregate(context.Background()) {
		status := "offline"
		if peer.Online {
			status = "online"
		}
		fmt.Printf("Peer:            %s (%s) %s\n", peer.ID, displayName(peer), status)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Status:          running (press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Println("Status:          shutting down")
}

func buildAggregator(store *storage.Store, scanner *discovery.PeerScanner, logger *log.Logger) *peers.Aggregator {
	sources := []peers.Source{
		&peers.RecentConnectionsSource{Store: store},
	}
	if scanner != nil {
		sources = append(sources, &peers.LANSource{Scanner: scanner})
	}
	directories := []peers.Directory{
		&peers.AddressBookDirectory{Store: store},
		&peers.GroupDirectory{Store: store},
	}
	return peers.NewAggregator(sources, directories, logger)
}

func displayName(peer models.Peer) string {
	if peer.Alias != "" {
		return peer.Alias
	}
	if peer.Hostname != "" {
		return peer.Hostname
	}
	return peer.Username
}

// noopHost stands in for the native window bridge when deskport runs headless.
type noopHost struct{}

func (noopHost) BringToFront()                 {}
func (noopHost) SetTitle(string)               {}
func (noopHost) SetGeometry(models.Geometry)   {}
func (noopHost) Reload()                       {}
func (noopHost) Close()                        {}
