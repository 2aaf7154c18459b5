// VME Thermal - crate temperature monitor.
//
// vmethermal samples the temperature sensors wired to a VME crate's ADC
// board once per polling interval and appends a YAML report of every
// sensor to the report file. Each batch is also fanned out to the
// optional SQLite archive, MQTT broker, InfluxDB and WebSocket clients.
//
// Usage:
//
//	vmethermal                  run the monitor
//	vmethermal token <subject> [operator|viewer]
//	                            print an API token signed with the configured secret
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/vme-thermal/internal/adc"
	"github.com/nerrad567/vme-thermal/internal/api"
	"github.com/nerrad567/vme-thermal/internal/auth"
	"github.com/nerrad567/vme-thermal/internal/infrastructure/config"
	"github.com/nerrad567/vme-thermal/internal/infrastructure/database"
	"github.com/nerrad567/vme-thermal/internal/infrastructure/influxdb"
	"github.com/nerrad567/vme-thermal/internal/infrastructure/logging"
	"github.com/nerrad567/vme-thermal/internal/infrastructure/mqtt"
	"github.com/nerrad567/vme-thermal/internal/monitor"
	"github.com/nerrad567/vme-thermal/internal/report"
	"github.com/nerrad567/vme-thermal/internal/thermal"
	"github.com/nerrad567/vme-thermal/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the components together and blocks until ctx is cancelled or the
// monitor has run its configured number of cycles.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequence, linear
	log := logging.Default()
	log.Info("starting VME Thermal",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	base := logging.New(cfg.Logging, version)
	defer base.Close() //nolint:errcheck // Best-effort log file close on exit
	log = base.With("crate", cfg.Crate.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	fanout := report.NewFanout()
	health := map[string]api.HealthCheckFunc{}

	// Report archive
	var archive *report.Archive
	if cfg.Database.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", db.Path())

		archive = report.NewArchive(db.DB, cfg.Crate.ID, cfg.Database.Retain)
		fanout.Add("archive", archive)
		health["database"] = db.HealthCheck
	}

	// MQTT telemetry and calibration commands
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Crate.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		fanout.Add("mqtt", report.NewMQTTPublisher(mqttClient, mqttClient.Topics(), cfg.Crate.ID, mqttClient.QoS()))
		health["mqtt"] = mqttClient.HealthCheck
	}

	// InfluxDB time series; unreachable is not fatal
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("InfluxDB unavailable, continuing without time series", "error", influxErr)
		} else {
			influxClient.SetOnError(func(writeErr error) {
				log.Error("InfluxDB write failed", "error", writeErr)
			})
			defer func() {
				log.Info("closing InfluxDB")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)

			fanout.Add("influxdb", report.NewInfluxPublisher(influxClient, cfg.Crate.ID))
			health["influxdb"] = influxClient.HealthCheck
		}
	}

	// Report sink
	sink, err := openReportSink(cfg.Report)
	if err != nil {
		return err
	}
	defer sink.Close() //nolint:errcheck // Best-effort report file close on exit

	// Sensors
	board := adc.NewSimulator(adc.Config{
		Seed:       cfg.ADC.Seed,
		Fixed:      cfg.ADC.Fixed,
		FixedValue: cfg.ADC.FixedValue,
	})
	registry := thermal.NewRegistry(board)
	registry.SetSink(sink)

	mon := monitor.New(monitor.Config{
		Registry:  registry,
		Publisher: fanout,
		Interval:  cfg.GetPollingInterval(),
		MaxCycles: cfg.Polling.MaxCycles,
	})
	mon.SetLogger(log)
	if err := mon.LoadSensors(cfg.Sensors); err != nil {
		return fmt.Errorf("registering sensors: %w", err)
	}
	log.Info("sensors registered", "count", len(cfg.Sensors), "channels", board.Channels())

	if mqttClient != nil {
		topic := mqttClient.Topics().AllCalibrationCommands()
		if err := mqttClient.Subscribe(topic, mqttClient.QoS(), mon.HandleCalibrationCommand(mqttClient.Topics())); err != nil {
			return fmt.Errorf("subscribing to calibration commands: %w", err)
		}
		log.Info("listening for calibration commands", "topic", topic)
	}

	// HTTP API and WebSocket stream
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Crate:    cfg.Crate,
			Logger:   log,
			Monitor:  mon,
			Archive:  archive,
			Health:   health,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		fanout.Add("websocket", server.Hub())
	}

	log.Info("VME Thermal started", "publishers", fanout.Len(), "interval", cfg.GetPollingInterval().String())

	if err := mon.Run(ctx); err != nil {
		return fmt.Errorf("running monitor: %w", err)
	}

	cycles, failures := mon.Stats()
	log.Info("VME Thermal stopped", "cycles", cycles, "failures", failures)
	return nil
}

// openReportSink returns stdout or the rotating report file.
func openReportSink(cfg config.ReportConfig) (io.WriteCloser, error) {
	if cfg.Stdout {
		return report.Stdout(), nil
	}
	sink, err := report.OpenFile(report.FileConfig{
		Path:       cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("opening report file: %w", err)
	}
	return sink, nil
}

// runToken prints a signed API token. Usage: token <subject> [role].
func runToken(args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 || args[0] == "" {
		return errors.New("usage: vmethermal token <subject> [operator|viewer]")
	}
	role := auth.RoleOperator
	if len(args) == 2 {
		role = auth.Role(args[1])
		if role != auth.RoleOperator && role != auth.RoleViewer {
			return fmt.Errorf("unknown role %q", args[1])
		}
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateToken(args[0], role, cfg.Security.JWT.Secret, cfg.GetTokenTTL())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// getConfigPath returns VMETHERMAL_CONFIG or the default path.
func getConfigPath() string {
	if path := os.Getenv("VMETHERMAL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
