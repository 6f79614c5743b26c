/*
 * gnc-motion - CNC motion-control firmware
 *
 * Copyright 2026, gnc-motion contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/gnc-motion/console"
	"github.com/rcornwell/gnc-motion/internal/logger"
	"github.com/rcornwell/gnc-motion/machine"
	"github.com/rcornwell/gnc-motion/nvs"
	"github.com/rcornwell/gnc-motion/transport"
)

var Logger *slog.Logger

func main() {
	optSettings := getopt.StringLong("settings", 's', "gnc.nvs", "Non-volatile settings file")
	optListen := getopt.StringLong("listen", 'p', "2345", "TCP listen port")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optNoConsole := getopt.BoolLong("no-console", 0, "Disable the interactive console")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logger.New(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}))
	slog.SetDefault(Logger)

	Logger.Info("gnc-motion started")

	store, err := nvs.Load(*optSettings)
	if err != nil {
		Logger.Warn("settings store unavailable, starting from defaults", "path", *optSettings, "err", err)
		store = nvs.Default()
	}

	m := machine.New(store)
	m.RunStartupLines()

	go m.ISR.Start()
	go m.Executor.Run()

	server, err := transport.NewServer(":"+*optListen, m.Executor)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	server.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *optNoConsole {
		<-sigChan
	} else {
		consoleDone := make(chan struct{})
		go func() {
			console.Run(m.Executor)
			close(consoleDone)
		}()
		select {
		case <-sigChan:
		case <-consoleDone:
		}
	}

	Logger.Info("shutting down")
	server.Stop()
	m.Executor.Stop()
	m.ISR.Stop()

	if err := store.Save(*optSettings); err != nil {
		Logger.Error("failed to save settings", "err", err)
	}
	Logger.Info("shutdown complete")
}
