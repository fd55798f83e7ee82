// Package config provides configuration helpers for robot-api commands.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/brean/robot-api/pkg/waypoint"
)

// Default navigation configuration.
const (
	DefaultBridgeURL    = "ws://localhost:9090"
	DefaultWaypointFile = "waypoints.yaml"
	DefaultNamespace    = "/"
)

// BridgeURL returns the navigation bridge URL from NAV_BRIDGE_URL.
// Falls back to the local rosbridge default if not set.
func BridgeURL() string {
	if url := os.Getenv("NAV_BRIDGE_URL"); url != "" {
		return url
	}
	return DefaultBridgeURL
}

// Namespace returns the robot namespace from ROBOT_NAMESPACE or "/".
func Namespace() string {
	if ns := os.Getenv("ROBOT_NAMESPACE"); ns != "" {
		return ns
	}
	return DefaultNamespace
}

// WaypointFile returns the waypoint file path from WAYPOINT_FILE or the
// default in the working directory.
func WaypointFile() string {
	if path := os.Getenv("WAYPOINT_FILE"); path != "" {
		return path
	}
	return DefaultWaypointFile
}

// LogLevel returns the log level from LOG_LEVEL or "info".
func LogLevel() string {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		return level
	}
	return "info"
}

// XYTolerance returns the waypoint position tolerance in meters from
// NAV_XY_TOLERANCE.
func XYTolerance() float64 {
	return floatEnv("NAV_XY_TOLERANCE", waypoint.DefaultXYTolerance)
}

// YawTolerance returns the waypoint orientation tolerance in radians from
// NAV_YAW_TOLERANCE.
func YawTolerance() float64 {
	return floatEnv("NAV_YAW_TOLERANCE", waypoint.DefaultYawTolerance)
}

// MoveTimeout returns the navigation timeout in seconds from NAV_MOVE_TIMEOUT.
func MoveTimeout() time.Duration {
	return time.Duration(floatEnv("NAV_MOVE_TIMEOUT", 60) * float64(time.Second))
}

func floatEnv(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
