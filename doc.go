/*
Package mavguide is a companion-computer flight core for MAVLink autopilots running ArduPilot.

It connects to the autopilot over UDP, TCP or a serial port, keeps a live picture of the vehicle's
telemetry, and drives the vehicle in GUIDED mode: single commands, position holds, and multi-item missions.

Use this package at your own risk.  The author(s) is/are in no way responsible for any damage caused either to or by the
vehicle when using this software.

# Features

The following features have been implemented...
  - Connection by endpoint string, eg. "udp:0.0.0.0:14550", "serial:/dev/ttyUSB0:57600"
  - Telemetry snapshot and streaming, eg. Telemetry(), StreamTelemetry()
  - Acknowledged commands with retries, eg. Arm(), SetFlightMode(), Takeoff(), Land()
  - Guided targets and velocity setpoints, eg. GoToGlobalPosition(), MoveLocalNED()
  - RC channel overrides, servos and relays
  - Position hold controllers that can be moved or paused while they run
  - Reachability checks, eg. ReachedGlobalPosition()
  - Missions of takeoff, waypoint and land items, with hooks run at each item
  - Mission export/import in a compact text format
  - Compressed telemetry recordings

# Concepts

# Commands and Retries

Most commands are sent as COMMAND_LONG and retried until the autopilot acknowledges them with MAV_RESULT_ACCEPTED.
Each call takes a Retry giving the number of attempts and how long to wait for each ack.  The Config carries
sensible defaults for mode changes, navigation and configuration commands.

Commands that move the vehicle are refused, without sending anything, unless the vehicle is in GUIDED mode.

# Holds

HoldGlobalPosition() and HoldLocalPosition() repeatedly send the vehicle's current position (or an override) as a
guided target until stopped or until the vehicle leaves GUIDED.  Only one hold runs at a time.

# Missions

A Mission is an ordered list of items flown one after another.  Starting a mission arms the vehicle if needed,
switches to GUIDED and records the home position.  If the flight mode is changed away from GUIDED while an item
is being flown, the mission stops and the vehicle is put in the recovery mode (LAND by default).

Funcs vs. Channels

Telemetry is available both as a single-shot snapshot, Telemetry(), and as a stream, StreamTelemetry().
The stream never blocks the connection: a slow reader simply misses snapshots.
*/
package mavguide
