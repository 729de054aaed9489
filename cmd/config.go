// Copyright (c) 2020 Cisco Systems and/or its affiliates.
// Licensed under the Apache License, Version 2.0 (the "License");
// that can be found in the LICENSE file in the root of the source
// tree.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator"
	"github.com/intel-go/fastjson"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"
)

// MainCfg is the daemon configuration. A file may be YAML or JSON; both
// are normalized to JSON, checked against the schema and then validated at
// the struct level.
type MainCfg struct {
	ZmqServer string `json:"zmq_server" yaml:"zmq_server"`
	ZmqPort   uint16 `json:"zmq_port" yaml:"zmq_port"`
	Tap       string `json:"tap" yaml:"tap"`
	Vport     uint16 `json:"vport" yaml:"vport"`
	MbufCache uint32 `json:"mbuf_cache" yaml:"mbuf_cache" validate:"max=65536"`
	DumpSec   uint32 `json:"dump_sec" yaml:"dump_sec"`
}

const cfgSchema = `{
	"type": "object",
	"properties": {
		"zmq_server": {"type": "string"},
		"zmq_port":   {"type": "integer", "minimum": 1, "maximum": 65535},
		"tap":        {"type": "string"},
		"vport":      {"type": "integer", "minimum": 0, "maximum": 65535},
		"mbuf_cache": {"type": "integer", "minimum": 0},
		"dump_sec":   {"type": "integer", "minimum": 0}
	},
	"additionalProperties": false
}`

func defaultCfg() *MainCfg {
	return &MainCfg{
		ZmqServer: "127.0.0.1",
		ZmqPort:   4511,
		MbufCache: 1024,
		DumpSec:   10,
	}
}

// yamlToJSONValue rewrites the map keys yaml.v2 produces into something
// encoding/json can marshal.
func yamlToJSONValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, e := range x {
			m[fmt.Sprintf("%v", k)] = yamlToJSONValue(e)
		}
		return m
	case []interface{}:
		for i := range x {
			x[i] = yamlToJSONValue(x[i])
		}
		return x
	}
	return v
}

func loadConfig(path string) (*MainCfg, error) {
	cfg := defaultCfg()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}

	ext := filepath.Ext(path)
	if ext == ".yaml" || ext == ".yml" {
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: bad yaml: %v", err)
		}
		data, err = json.Marshal(yamlToJSONValue(raw))
		if err != nil {
			return nil, fmt.Errorf("config: %v", err)
		}
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(cfgSchema),
		gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("config: schema: %v", err)
	}
	if !res.Valid() {
		return nil, fmt.Errorf("config: schema: %v", res.Errors())
	}

	if err := fastjson.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}

	return cfg, nil
}
