package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"github.com/titanic-mlops/titanic-survival/pkg/config"
	"github.com/titanic-mlops/titanic-survival/pkg/logging"
	"github.com/titanic-mlops/titanic-survival/pkg/metadatastore"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel"
)

const invalidThreshold = "Invalid input. Please enter a float number between 0 and 1."

// env bundles what the model commands share
type env struct {
	cfg     *config.Config
	catalog *config.TrainingConfig
	logger  *slog.Logger
	store   *metadatastore.SQLiteStore
	service *mlmodel.Service
}

func openEnv() (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg)

	catalog, err := config.LoadTrainingConfig(cfg.TrainingConfigPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.MetadataDBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	store, err := metadatastore.NewSQLiteStore(cfg.MetadataDBPath)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger,
		store:   store,
		service: mlmodel.NewService(store, catalog, mlmodel.PathsFromConfig(cfg), logger),
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// parseThreshold reads an optional accuracy threshold. An empty string means
// no threshold.
func parseThreshold(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || v < 0 || v > 1 {
		return nil, errors.New(invalidThreshold)
	}
	return &v, nil
}

// modelList collects a repeatable -m flag
type modelList []string

func (m *modelList) String() string {
	return strings.Join(*m, ",")
}

func (m *modelList) Set(value string) error {
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			*m = append(*m, name)
		}
	}
	return nil
}

func (m *modelList) Get() interface{} {
	return []string(*m)
}

// checkModels rejects names missing from the catalogue
func checkModels(catalog *config.TrainingConfig, names []string) error {
	for _, name := range names {
		if !catalog.HasModel(name) {
			return fmt.Errorf("invalid model %q, choose from %s", name, strings.Join(catalog.ModelNames(), ", "))
		}
	}
	return nil
}
