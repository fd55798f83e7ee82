// navctl - command-line control of robot base navigation
//
// Drives the movement facade against a navigation bridge: move to
// coordinates or named waypoints, query the current pose, and manage the
// waypoint file.
//
// Usage:
//
//	navctl -list
//	navctl -move "1.5,2.0,0.7"
//	navctl -goto dock
//	navctl -where
//	navctl -save
//
// The bridge is selected by NAV_BRIDGE_URL: ws:// for rosbridge,
// http:// for the REST bridge.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/brean/robot-api/internal/config"
	"github.com/brean/robot-api/internal/log"
	"github.com/brean/robot-api/pkg/nav"
	"github.com/brean/robot-api/pkg/waypoint"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	// Loaded before flag definitions so env values become flag defaults.
	godotenv.Load()

	moveArg := flag.String("move", "", "move to \"x,y,yaw\" coordinates")
	gotoArg := flag.String("goto", "", "move to a named waypoint")
	where := flag.Bool("where", false, "print the current 2D pose and matched waypoint")
	list := flag.Bool("list", false, "print all stored waypoints")
	save := flag.Bool("save", false, "save the waypoint store after moving")
	frame := flag.String("frame", nav.DefaultFrame, "reference frame for goals")
	timeout := flag.Duration("timeout", config.MoveTimeout(), "navigation timeout")
	flag.Parse()

	log.Init(config.LogLevel())

	store := waypoint.Default()
	waypointFile := config.WaypointFile()
	if err := store.Load(waypointFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("could not load waypoint file", "path", waypointFile, "error", err)
		}
	} else {
		log.Info("loaded waypoints", "path", waypointFile, "count", store.Len())
	}

	bridgeURL := config.BridgeURL()
	client, transforms := dialBridge(bridgeURL)

	base := nav.NewBase(config.Namespace(), client, transforms, store)
	base.XYTolerance = config.XYTolerance()
	base.YawTolerance = config.YawTolerance()

	switch {
	case *list:
		if store.Len() == 0 {
			fmt.Println("no waypoints defined")
			return
		}
		fmt.Print(store.String())

	case *where:
		p, err := base.Get2DPose(*frame, nav.DefaultRobotFrame, nav.DefaultPoseTimeout)
		if err != nil {
			log.Error("pose query failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("x=%.3f y=%.3f yaw=%.3f\n", p.X, p.Y, p.Yaw)
		if name, ok, err := base.CurrentWaypoint(*frame, nav.DefaultPoseTimeout); err == nil && ok {
			fmt.Printf("at waypoint '%s'\n", name)
		}

	case *moveArg != "":
		x, y, yaw, err := parseMove(*moveArg)
		if err != nil {
			log.Error("invalid -move argument", "value", *moveArg, "error", err)
			os.Exit(2)
		}
		runMove(base, nav.XYYaw(x, y, yaw), *frame, *timeout)
		saveIfRequested(store, waypointFile, *save)

	case *gotoArg != "":
		res, err := base.MoveToWaypoint(*gotoArg, nav.WithFrame(*frame), nav.WithTimeout(*timeout))
		if err != nil {
			log.Error("movement failed", "error", err)
			os.Exit(1)
		}
		if res == nil {
			os.Exit(1)
		}
		fmt.Printf("navigation %s\n", res.Status)
		saveIfRequested(store, waypointFile, *save)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// dialBridge picks the transport from the URL scheme.
func dialBridge(url string) (nav.ActionClient, nav.TransformSource) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		bridge := nav.NewHTTPBridge(url)
		return bridge, bridge
	}
	bridge := nav.NewRosbridge(url)
	return bridge, bridge
}

func runMove(base *nav.Base, target nav.Target, frame string, timeout time.Duration) {
	res, err := base.Move(target, nav.WithFrame(frame), nav.WithTimeout(timeout))
	if err != nil {
		log.Error("movement failed", "error", err)
		os.Exit(1)
	}
	if res == nil {
		os.Exit(1)
	}
	fmt.Printf("navigation %s\n", res.Status)
	if res.Status != nav.StatusSucceeded {
		os.Exit(1)
	}
}

func saveIfRequested(store *waypoint.Store, path string, save bool) {
	if !save {
		return
	}
	if err := store.Save(path); err != nil {
		log.Error("could not save waypoints", "path", path, "error", err)
		os.Exit(1)
	}
	log.Info("saved waypoints", "path", path, "count", store.Len())
}

// parseMove splits "x,y,yaw" into its three coordinates.
func parseMove(arg string) (x, y, yaw float64, err error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("want x,y,yaw, got %d values", len(parts))
	}
	vals := make([]float64, 3)
	for i, part := range parts {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return vals[0], vals[1], vals[2], nil
}
