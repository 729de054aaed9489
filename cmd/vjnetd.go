// Copyright (c) 2020 Cisco Systems and/or its affiliates.
// Licensed under the Apache License, Version 2.0 (the "License");
// that can be found in the LICENSE file in the root of the source
// tree.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"

	"vjnet/core"
	"vjnet/vj"
)

const (
	VERSION = "0.1"
)

type MainArgs struct {
	file      *string
	verbose   *bool
	zmqServer *string
	vethPort  *int
	tap       *string
	version   *bool
}

func parseMainArgs() *MainArgs {
	var args MainArgs
	parser := argparse.NewParser("vjnetd", "Per-flow packet classification and delivery daemon")

	args.file = parser.String("f", "file", &argparse.Options{Default: "", Help: "Path to a yaml/json config file"})
	args.verbose = parser.Flag("v", "verbose", &argparse.Options{Default: false, Help: "Run server in verbose mode"})
	args.zmqServer = parser.String("S", "zmq-server", &argparse.Options{Default: "", Help: "zmq server ip, overrides the config file"})
	args.vethPort = parser.Int("l", "veth-zmq-port", &argparse.Options{Default: 0, Help: "veth zmq port, overrides the config file"})
	args.tap = parser.String("t", "tap", &argparse.Options{Default: "", Help: "read frames from this tap device instead of zmq"})
	args.version = parser.Flag("V", "version", &argparse.Options{Default: false, Help: "show vjnetd version"})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
	}
	return &args
}

func RunVjnetd(args *MainArgs) {
	if *args.version {
		ver := core.BuildVersion
		if ver == "" {
			ver = VERSION
		}
		fmt.Printf("vjnetd version is %s \n", ver)
		if core.BuildDate != "" {
			fmt.Printf("built %s by %s \n", core.BuildDate, core.BuildBy)
		}
		os.Exit(0)
	}

	core.ConfigureLogger(*args.verbose)

	cfg, err := loadConfig(*args.file)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if *args.zmqServer != "" {
		cfg.ZmqServer = *args.zmqServer
	}
	if *args.vethPort != 0 {
		cfg.ZmqPort = uint16(*args.vethPort)
	}
	if *args.tap != "" {
		cfg.Tap = *args.tap
	}

	var pool core.MbufPoll
	pool.Init(cfg.MbufCache)

	cls := vj.NewClassifier()

	var veth core.VethIF
	if cfg.Tap != "" {
		tap := new(core.VethIFTap)
		if err := tap.Create(&pool, cfg.Tap, cfg.Vport); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		veth = tap
		fmt.Printf("Run veth on tap device %s\n", cfg.Tap)
	} else {
		zmq := new(core.VethIFZmq)
		zmq.Create(&pool, cfg.ZmqPort, cfg.ZmqServer)
		veth = zmq
		fmt.Printf("Run veth on ZMQ [RX: %s:%d, TX: %s:%d]\n",
			cfg.ZmqServer, cfg.ZmqPort, cfg.ZmqServer, cfg.ZmqPort+1)
	}

	veth.SetRxHandler(cls.TryDeliver)
	veth.StartRxThread()

	var ticker *time.Ticker
	if cfg.DumpSec > 0 {
		ticker = time.NewTicker(time.Duration(cfg.DumpSec) * time.Second)
		go func() {
			for range ticker.C {
				cls.Cdb.Dump()
				veth.GetCdb().Dump()
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if ticker != nil {
		ticker.Stop()
	}
	veth.Delete()
}
