package main

import "github.com/oshokin/geofence-monitor/cmd/geofence-monitor/cmd"

func main() {
	cmd.Execute()
}
