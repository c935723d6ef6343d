// Copyright 2024 lingstore authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main runs the lingstore server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lingstore/lingstore/internal/backends/relational"
	"github.com/lingstore/lingstore/internal/entities"
	"github.com/lingstore/lingstore/internal/server"
	"github.com/lingstore/lingstore/internal/util/ctxutil"
	"github.com/lingstore/lingstore/internal/util/debug"
	"github.com/lingstore/lingstore/internal/util/debugbuild"
	"github.com/lingstore/lingstore/internal/util/logging"
	"github.com/lingstore/lingstore/internal/util/observability"
)

// version is set by the linker.
var version = "unknown"

// The cli struct represents all command-line commands, fields and flags.
// It's used for parsing the user input.
//
//nolint:lll // some tags are long
var cli struct {
	Version   bool   `default:"false" help:"Print version to stdout and exit." env:"-"`
	Resources string `default:"resources.json" help:"Path to the JSON file describing entity types." type:"path"`

	Listen struct {
		Addr string `default:"127.0.0.1:8077" help:"Listen TCP address."`
	} `embed:"" prefix:"listen-"`

	DebugAddr string `default:"127.0.0.1:8088" help:"Listen address for HTTP handlers for metrics, pprof, etc."`

	Auth string `default:"" help:"If set, the exact Authorization header value required on every request."`

	DB struct {
		ReadURL  string `default:"file:lingstore.db" help:"${help_db_url}"`
		WriteURL string `default:""                  help:"Write connection URL; defaults to the read URL."`
	} `embed:"" prefix:"db-"`

	Log struct {
		Level string `default:"${default_log_level}" help:"${help_log_level}"`
		UUID  bool   `default:"false"                help:"Add instance UUID to all log messages." negatable:""`
	} `embed:"" prefix:"log-"`

	OtelEndpoint string `name:"otel-endpoint" default:"" help:"OTLP/HTTP trace exporter endpoint; disabled if empty."`
}

// Additional variables for the kong parsers.
var (
	logLevels = []string{
		zap.DebugLevel.String(),
		zap.InfoLevel.String(),
		zap.WarnLevel.String(),
		zap.ErrorLevel.String(),
	}

	kongOptions = []kong.Option{
		kong.Vars{
			"default_log_level": defaultLogLevel().String(),

			"help_db_url":    "Read connection URL: mysql://, postgres://, or a SQLite file: URI.",
			"help_log_level": fmt.Sprintf("Log level: '%s'.", strings.Join(logLevels, "', '")),
		},
		kong.DefaultEnvars("LINGSTORE"),
	}
)

func main() {
	kong.Parse(&cli, kongOptions...)

	run()
}

// defaultLogLevel returns the default log level.
func defaultLogLevel() zapcore.Level {
	if debugbuild.Enabled {
		return zap.DebugLevel
	}

	return zap.InfoLevel
}

// setupLogger setups zap logger.
func setupLogger() *zap.Logger {
	instanceUUID := uuid.NewString()

	startupFields := []zap.Field{
		zap.String("version", version),
		zap.Bool("debugBuild", debugbuild.Enabled),
	}
	logUUID := instanceUUID

	// unless requested, don't add UUID to all messages, but log it once at startup
	if !cli.Log.UUID {
		startupFields = append(startupFields, zap.String("uuid", instanceUUID))
		logUUID = ""
	}

	level, err := zapcore.ParseLevel(cli.Log.Level)
	if err != nil {
		log.Fatal(err)
	}

	logging.Setup(level, logUUID)
	l := zap.L()

	l.Info("Starting lingstore "+version+"...", startupFields...)

	return l
}

// loadDescriptors reads the entity type definitions from the given JSON file.
func loadDescriptors(path string) ([]*entities.Descriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var defs []struct {
		Name           string   `json:"name"`
		Fields         []string `json:"fields"`
		LanguageFields []string `json:"languageFields"`
	}

	if err = json.Unmarshal(b, &defs); err != nil {
		return nil, err
	}

	descs := make([]*entities.Descriptor, len(defs))

	for i, def := range defs {
		if descs[i], err = entities.NewDescriptor(def.Name, def.Fields, def.LanguageFields); err != nil {
			return nil, err
		}
	}

	return descs, nil
}

// run sets up environment based on provided flags and runs lingstore.
func run() {
	// to increase a chance of resource finalizers to spot problems
	if debugbuild.Enabled {
		defer func() {
			runtime.GC()
			runtime.GC()
		}()
	}

	if cli.Version {
		fmt.Fprintln(os.Stdout, "version:", version)

		return
	}

	logger := setupLogger()

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
		logger.Sugar().Warnf("Failed to set GOMAXPROCS: %s.", err)
	}

	otelShutdown, err := observability.SetupOtel("lingstore", cli.OtelEndpoint)
	if err != nil {
		logger.Sugar().Fatalf("Failed to set up OpenTelemetry: %s.", err)
	}

	if otelShutdown != nil {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer shutdownCancel()

			if err := otelShutdown(shutdownCtx); err != nil {
				logger.Sugar().Warnf("Failed to shut down OpenTelemetry: %s.", err)
			}
		}()
	}

	ctx, stop := ctxutil.SigTerm(context.Background())

	go func() {
		<-ctx.Done()
		logger.Info("Stopping...")
		stop()
	}()

	descs, err := loadDescriptors(cli.Resources)
	if err != nil {
		logger.Sugar().Fatalf("Failed to load resources: %s.", err)
	}

	writeURL := cli.DB.WriteURL
	if writeURL == "" {
		writeURL = cli.DB.ReadURL
	}

	b, err := relational.NewBackend(ctx, &relational.NewBackendParams{
		ReadURI:     cli.DB.ReadURL,
		WriteURI:    writeURL,
		Descriptors: descs,
		L:           logger.Named("relational"),
	})
	if err != nil {
		logger.Sugar().Fatalf("Failed to open backend: %s.", err)
	}
	defer b.Close()

	h, err := server.NewHandler(&server.NewHandlerParams{
		Backend:       b,
		Descriptors:   descs,
		Authorization: cli.Auth,
		L:             logger.Named("server"),
	})
	if err != nil {
		logger.Sugar().Fatalf("Failed to create handler: %s.", err)
	}

	prometheus.DefaultRegisterer.MustRegister(h)

	var wg sync.WaitGroup

	// https://github.com/alecthomas/kong/issues/389
	if cli.DebugAddr != "" && cli.DebugAddr != "-" {
		wg.Add(1)

		go func() {
			defer wg.Done()
			debug.RunHandler(ctx, cli.DebugAddr, prometheus.DefaultRegisterer, logger.Named("debug"))
		}()
	}

	if err = server.Run(ctx, cli.Listen.Addr, h, logger); err != nil {
		logger.Sugar().Fatalf("Server failed: %s.", err)
	}

	wg.Wait()

	logger.Info("Stopped.")
}
