package workers

import "housescout/models"

// LogFunc sends a worker log line to the operational store.
type LogFunc func(level models.LogLevel, message string)

// NoOpLogger does nothing (default)
var NoOpLogger LogFunc = func(level models.LogLevel, message string) {}
