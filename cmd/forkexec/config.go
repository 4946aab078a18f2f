//
// Created on 2024/5/27 by khanghh
// Project: github.com/khanghh/forkexec
// Copyright (c) 2024 Verichains Lab
//

package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/khanghh/forkexec/chains"
	"github.com/khanghh/forkexec/forkexec"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type appConfig struct {
	Fork chains.Config
	Exec forkexec.Config
}

func loadTOMLConfig(filename string, conf interface{}) error {
	var err error
	var buf []byte
	if buf, err = os.ReadFile(filename); err == nil {
		err = tomlSettings.Unmarshal(buf, conf)
	}
	return err
}

// loadEnvFile exports the variables of filename that are not set yet. A
// missing file is not an error.
func loadEnvFile(filename string) error {
	if filename == "" {
		return nil
	}
	err := godotenv.Load(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// makeAppConfig reads the provided TOML configuration file, if config file
// is not specified default config is used. Flags take precedence over the
// file.
//
// Returns a sanitized appConfig instance to be used by the application.
func makeAppConfig(ctx *cli.Context) (*appConfig, error) {
	config := appConfig{
		Fork: chains.DefaultConfig,
		Exec: forkexec.DefaultConfig,
	}
	if configFile := ctx.GlobalString(configFileFlag.Name); configFile != "" {
		if err := loadTOMLConfig(configFile, &config); err != nil {
			return nil, fmt.Errorf("could not load config file %s: %v", configFile, err)
		}
	}
	if ctx.GlobalIsSet(traceModeFlag.Name) {
		config.Exec.TraceMode = ctx.GlobalString(traceModeFlag.Name)
	}
	if ctx.GlobalIsSet(timeoutFlag.Name) {
		config.Exec.RequestTimeout = ctx.GlobalDuration(timeoutFlag.Name)
	}
	if err := config.Fork.Sanitize(); err != nil {
		return nil, err
	}
	if err := config.Exec.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}

// makeRegistry layers the configured endpoints over the ones found in the
// environment.
func makeRegistry(config *appConfig) (*chains.Registry, error) {
	return config.Fork.Apply(chains.FromEnv(os.Getenv))
}

func dumpConfig(ctx *cli.Context) error {
	config, err := makeAppConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(config)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
