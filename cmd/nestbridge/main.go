// Nest bridge
//
// This is the main entry point for the Nest bridge. It follows the Nest
// account's event stream and exposes every selected thermostat as a
// HomeKit accessory, over MQTT and through a local HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/redec/homebridge-nest/internal/accessory"
	"github.com/redec/homebridge-nest/internal/api"
	"github.com/redec/homebridge-nest/internal/bridge"
	"github.com/redec/homebridge-nest/internal/homekit"
	"github.com/redec/homebridge-nest/internal/infrastructure/config"
	"github.com/redec/homebridge-nest/internal/infrastructure/influxdb"
	"github.com/redec/homebridge-nest/internal/infrastructure/logging"
	"github.com/redec/homebridge-nest/internal/infrastructure/mqtt"
	"github.com/redec/homebridge-nest/internal/nest"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// firstSnapshotTimeout bounds the wait for the initial device tree.
const firstSnapshotTimeout = 60 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments without the program name
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting nest bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // Nothing useful to do on shutdown
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	nestClient, err := nest.New(cfg.Nest, log.With("component", "nest"))
	if err != nil {
		return fmt.Errorf("creating nest client: %w", err)
	}

	checks := make(map[string]api.HealthCheck)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		checks["mqtt"] = mqttClient.HealthCheck
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topic_prefix", mqttClient.Topics().Prefix,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		checks["influxdb"] = influxClient.HealthCheck
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	registry := accessory.NewRegistry()

	// Start the MQTT bridge (requires MQTT)
	var mqttBridge *bridge.Bridge
	if mqttClient != nil {
		opts := bridge.Options{
			MQTT:     mqttClient,
			Registry: registry,
			Logger:   log.With("component", "bridge"),
		}
		if influxClient != nil {
			opts.Metrics = influxClient
		}
		mqttBridge, err = bridge.New(opts)
		if err != nil {
			return fmt.Errorf("creating MQTT bridge: %w", err)
		}
		if err := mqttBridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			mqttBridge.Stop()
		}()
	}

	var hk *homekit.Server
	if cfg.HomeKit.Enabled {
		hk = homekit.NewServer(cfg.HomeKit, version, log.With("component", "homekit"))
	} else {
		log.Info("HomeKit disabled")
	}

	mgr := newThermostatManager(ctx, managerOptions{
		Config:    cfg.Nest,
		Transport: nestClient,
		Registry:  registry,
		HomeKit:   hk,
		Bridge:    mqttBridge,
		Logger:    log,
	})
	checks["nest"] = mgr.HealthCheck

	streamErr := make(chan error, 1)
	go func() {
		streamErr <- followStream(ctx, nestClient, mgr.Handle, cfg.Nest.GetReconnectDelay(), log)
	}()

	// A stream that fails for good ends startup with the API's reason.
	if err := mgr.WaitReady(ctx, firstSnapshotTimeout, streamErr); err != nil {
		return fmt.Errorf("waiting for nest data: %w", err)
	}
	log.Info("thermostats initialised", "count", registry.Len())

	// Start the HomeKit accessory server
	if hk != nil {
		mgr.FreezeHomeKit()
		go func() {
			if err := hk.ListenAndServe(ctx); err != nil {
				log.Error("HomeKit server error", "error", err)
			}
		}()
	}

	// Start the local API (optional)
	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Registry: registry,
			Checks:   checks,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case err := <-streamErr:
		if err != nil {
			return fmt.Errorf("nest stream: %w", err)
		}
	}

	log.Info("nest bridge stopped")
	return nil
}

// parseFlags reads command line flags. Every flag can also be set from the
// environment with the NESTBRIDGE_ prefix, e.g. NESTBRIDGE_CONFIG.
func parseFlags(args []string) (string, error) {
	fs := flag.NewFlagSet("nestbridge", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to the YAML configuration file")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("NESTBRIDGE")); err != nil {
		return "", fmt.Errorf("parsing flags: %w", err)
	}
	return *configPath, nil
}

// followStream keeps the Nest event stream open, reopening it after delay
// whenever it drops.
//
// Returns:
//   - error: nest.ErrAuthRevoked when the token is no longer valid, or nil
//     once ctx is cancelled
func followStream(ctx context.Context, client *nest.Client, handler func(nest.Snapshot), delay time.Duration, log *logging.Logger) error {
	for {
		err := client.Stream(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, nest.ErrAuthRevoked) {
			return err
		}
		log.Warn("nest stream closed, reconnecting",
			"error", err,
			"delay", delay,
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}
