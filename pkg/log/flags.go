// Copyright 2019 Intel Corporation. All Rights Reserved.
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

package log

import (
	"flag"
	"fmt"
	"strings"
)

// LevelNames maps severity levels to names, for the -logger-level flag.
var LevelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// NamedLevels maps severity names to levels.
var NamedLevels = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

type levelFlag struct{}

func (levelFlag) String() string {
	name, ok := LevelNames[reg.level]
	if !ok {
		return "info"
	}
	return name
}

func (levelFlag) Set(value string) error {
	level, ok := NamedLevels[value]
	if !ok {
		return loggerError("unknown log level %q", value)
	}
	SetLevel(level)
	return nil
}

type debugFlag struct{}

func (debugFlag) String() string {
	if reg.allDbg {
		return "*"
	}
	names := make([]string, 0, len(reg.debug))
	for src, on := range reg.debug {
		if on {
			names = append(names, src)
		}
	}
	return strings.Join(names, ",")
}

func (debugFlag) Set(value string) error {
	reg.Lock()
	defer reg.Unlock()

	for _, src := range strings.Split(value, ",") {
		src = strings.TrimSpace(src)
		switch src {
		case "":
			continue
		case "*", "all":
			reg.allDbg = true
		default:
			reg.debug[src] = true
		}
	}
	return nil
}

func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("log: "+format, args...)
}

func init() {
	flag.Var(levelFlag{}, "logger-level",
		"least severity of log messages to pass through (debug, info, warn, error).")
	flag.Var(debugFlag{}, "logger-debug",
		"comma-separated logger sources to enable debug for, or '*' for all.")
}
