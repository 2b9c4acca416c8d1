package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scenescape/tracker/internal/bus/mqttbus"
	"github.com/scenescape/tracker/internal/codec"
	"github.com/scenescape/tracker/internal/config"
	"github.com/scenescape/tracker/internal/errs"
	"github.com/scenescape/tracker/internal/handler"
	"github.com/scenescape/tracker/internal/healthcheck"
	"github.com/scenescape/tracker/internal/obslog"
	"github.com/scenescape/tracker/internal/sceneregistry"
	"github.com/scenescape/tracker/internal/trackmot"
)

var (
	configPath string
	schemaPath string
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to JSON configuration file")
	rootCmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "Path to JSON schema for configuration")
	rootCmd.RunE = runService
}

const connectTimeout = 15 * time.Second

func runService(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return errs.NewConfigError("--config is required", nil)
	}
	if schemaPath == "" {
		return errs.NewConfigError("--schema is required", nil)
	}

	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return err
	}

	obslog.Init(cfg.LogLevel, nil)
	log.Info().Str("component", "main").Msg("starting tracker service")

	configDir := filepath.Dir(configPath)

	registry := sceneregistry.New()
	loader, err := config.NewSceneLoader(cfg.Scenes, configDir)
	if err != nil {
		return err
	}
	scenes, err := loader.Load()
	if err != nil {
		return err
	}
	if err := registry.Register(scenes); err != nil {
		return err
	}
	log.Info().Str("component", "main").
		Int("scene_count", registry.SceneCount()).
		Int("camera_count", registry.CameraCount()).
		Msg("scene registry populated")

	var validator *codec.Validator
	if cfg.SchemaValidation {
		validator, err = codec.NewValidator(
			filepath.Join(filepath.Dir(schemaPath), "camera_data.schema.json"),
			filepath.Join(filepath.Dir(schemaPath), "scene_data.schema.json"),
		)
		if err != nil {
			return err
		}
	}

	hc := healthcheck.NewServer(cfg.HealthcheckPort)
	hc.Start()

	busClient := mqttbus.New(mqttbus.Config{
		Host:     cfg.Bus.Host,
		Port:     cfg.Bus.Port,
		Insecure: cfg.Bus.Insecure,
		TLS:      busTLS(cfg.Bus.TLS),
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	connectErr := busClient.Connect(ctx)
	cancel()
	if connectErr != nil {
		var permanent *errs.BusPermanent
		if errors.As(connectErr, &permanent) {
			log.Error().Str("component", "mqtt").Err(connectErr).Msg("permanent bus error, exiting cleanly")
			_ = hc.Stop(context.Background())
			return nil
		}
		log.Error().Str("component", "mqtt").Err(connectErr).Msg("transient bus error")
		_ = hc.Stop(context.Background())
		return connectErr
	}

	newTracker := func() handler.TrackerPair {
		tr := trackmot.NewTracker()
		return handler.TrackerPair{Tick: tr, Tracks: tr.Manager}
	}
	h := handler.New(busClient, registry, validator, cfg.SchemaValidation, newTracker, handler.DefaultCollectionWindow)
	h.Start()

	hc.SetReady(true)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info().Str("component", "main").Msg("shutdown requested")
	hc.SetReady(false)

	h.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = busClient.Disconnect(shutdownCtx)
	_ = hc.Stop(shutdownCtx)

	log.Info().Str("component", "main").Msg("tracker service stopped")
	return nil
}

func busTLS(t *config.BusTLS) *mqttbus.TLSConfig {
	if t == nil {
		return nil
	}
	return &mqttbus.TLSConfig{
		CACertPath:     t.CACertPath,
		ClientCertPath: t.ClientCertPath,
		ClientKeyPath:  t.ClientKeyPath,
		VerifyServer:   t.VerifyServer,
	}
}
