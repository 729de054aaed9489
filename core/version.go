// Copyright (c) 2020 Cisco Systems and/or its affiliates.
// Licensed under the Apache License, Version 2.0 (the "License");
// that can be found in the LICENSE file in the root of the source
// tree.

package core

// Build traceability, injected at link time:
//
//	go build -ldflags "-X vjnet/core.BuildVersion=... -X vjnet/core.BuildDate=..."
var (
	BuildVersion string = ""
	BuildDate    string = ""
	BuildBy      string = ""
)
