package main

import "github.com/cuemby/cradle/pkg/log"

func initCradleLogging(level string, jsonOutput bool) {
	log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOutput,
	})
}
