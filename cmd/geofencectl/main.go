package main

import "github.com/oshokin/geofence-monitor/cmd/geofencectl/cmd"

func main() {
	cmd.Execute()
}
