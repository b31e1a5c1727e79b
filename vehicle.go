// vehicle.go

// This file contains the vehicle connection and its ingestion loop.

// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package mavguide

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/SMerrony/mavguide/log"
)

// Ack is a command acknowledgement as it arrived.
type Ack struct {
	Result common.MAV_RESULT
	Time   time.Time
}

// Vehicle holds the current state of a connection to an autopilot.
type Vehicle struct {
	cfg  Config
	lg   *log.Logger
	link Transport

	ctrlMu          sync.Mutex
	targetSystem    uint8
	targetComponent uint8
	firstArm        bool

	fdMu sync.RWMutex
	fd   Telemetry

	heartbeat     chan struct{} // closed by the first autopilot heartbeat
	heartbeatOnce sync.Once

	acks *mailbox[common.MAV_CMD, Ack]
	msgs *mailbox[uint32, message.Message]

	errMu    sync.Mutex
	linkErr  error
	linkDone chan struct{} // closed when the ingestion loop ends

	holdMu  sync.Mutex
	holding bool

	varMu sync.RWMutex
	vars  map[string]any

	mission *Mission
}

func newVehicle(link Transport, cfg Config, lg *log.Logger) *Vehicle {
	v := &Vehicle{
		cfg:       cfg,
		lg:        lg,
		link:      link,
		firstArm:  true,
		heartbeat: make(chan struct{}),
		acks:      newMailbox[common.MAV_CMD, Ack](),
		msgs:      newMailbox[uint32, message.Message](),
		linkDone:  make(chan struct{}),
		vars:      make(map[string]any),
	}
	v.mission = newMission(v)
	return v
}

// Dial opens the endpoint named in cfg and connects to the autopilot on it.
func Dial(cfg Config, lg *log.Logger) (*Vehicle, error) {
	link, err := NewNodeTransport(cfg, lg)
	if err != nil {
		return nil, err
	}
	return Connect(link, cfg, lg)
}

// Connect starts listening on link and waits up to cfg.ConnectTimeout for
// the autopilot's heartbeat. On success the default telemetry streams are
// requested in the background.
func Connect(link Transport, cfg Config, lg *log.Logger) (*Vehicle, error) {
	v := newVehicle(link, cfg, lg)
	go v.responseListener()

	timer := time.NewTimer(cfg.ConnectTimeout.D())
	defer timer.Stop()

	select {
	case <-v.heartbeat:
	case <-v.linkDone:
		return nil, v.Err()
	case <-timer.C:
		link.Close()
		return nil, ErrConnectTimeout
	}

	fd := v.Telemetry()
	lg.Info("Connected to vehicle", "type", fd.VehicleType, "mode", fd.FlightMode, "armed", fd.Armed)

	if cfg.TelemetryRateHz > 0 {
		go v.requestTelemetry(cfg.TelemetryRateHz)
	}
	return v, nil
}

// Close shuts the link down. Blocked waits return at once.
func (v *Vehicle) Close() error {
	return v.link.Close()
}

// Done is closed when the link has terminated.
func (v *Vehicle) Done() <-chan struct{} { return v.linkDone }

// Err returns the transport error that ended the link, or nil while it is up.
func (v *Vehicle) Err() error {
	v.errMu.Lock()
	defer v.errMu.Unlock()
	return v.linkErr
}

// Mission returns the vehicle's mission engine.
func (v *Vehicle) Mission() *Mission { return v.mission }

// Config returns the configuration the vehicle was connected with.
func (v *Vehicle) Config() Config { return v.cfg }

func (v *Vehicle) target() (uint8, uint8) {
	v.ctrlMu.Lock()
	defer v.ctrlMu.Unlock()
	return v.targetSystem, v.targetComponent
}

// responseListener is the only writer of the telemetry store.
func (v *Vehicle) responseListener() {
	for {
		f, err := v.link.Recv()
		if err != nil {
			v.errMu.Lock()
			v.linkErr = fmt.Errorf("%w: %v", ErrLinkClosed, err)
			v.errMu.Unlock()
			close(v.linkDone)
			v.lg.Warn("Vehicle link closed", "error", err)
			return
		}

		if hb, ok := f.Message.(*common.MessageHeartbeat); ok {
			if hb.Type == common.MAV_TYPE_GCS || hb.Autopilot == common.MAV_AUTOPILOT_INVALID {
				continue // other ground stations and peripherals
			}
			v.ctrlMu.Lock()
			if v.targetSystem == 0 {
				v.targetSystem, v.targetComponent = f.SystemID, f.ComponentID
			}
			v.ctrlMu.Unlock()
		}

		if ack, ok := f.Message.(*common.MessageCommandAck); ok {
			v.lg.Debug("Command ack", "command", ack.Command, "result", ack.Result)
			v.acks.put(ack.Command, Ack{Result: ack.Result, Time: time.Now()})
			continue
		}

		v.fdMu.Lock()
		hb := v.fd.update(f.Message, time.Now())
		v.fdMu.Unlock()
		if hb {
			v.heartbeatOnce.Do(func() { close(v.heartbeat) })
		}

		v.msgs.put(f.Message.GetID(), f.Message)
	}
}

// SendCommand sends a COMMAND_LONG once, without waiting for its ack.
func (v *Vehicle) SendCommand(cmd common.MAV_CMD, p CommandParams) error {
	if err := v.Err(); err != nil {
		return err
	}
	return v.link.Send(v.newCommandLong(cmd, p))
}

// WaitAck waits up to timeout for an acknowledgement of cmd and consumes it.
func (v *Vehicle) WaitAck(cmd common.MAV_CMD, timeout time.Duration) (common.MAV_RESULT, error) {
	ack, ok := v.acks.take(cmd, timeout, v.linkDone)
	if !ok {
		if err := v.Err(); err != nil {
			return 0, err
		}
		return 0, ErrAckTimeout
	}
	return ack.Result, nil
}

// WaitMessage waits up to timeout for the next message with the given id
// and consumes it. A message that arrived before the call and has not been
// consumed is returned at once.
func (v *Vehicle) WaitMessage(id uint32, timeout time.Duration) (message.Message, error) {
	msg, ok := v.msgs.take(id, timeout, v.linkDone)
	if !ok {
		if err := v.Err(); err != nil {
			return nil, err
		}
		return nil, ErrMessageTimeout
	}
	return msg, nil
}

// command is the retry-until-ack protocol: send, wait for an ack, and stop
// at the first ACCEPTED result, for at most r.Attempts sends.
func (v *Vehicle) command(name string, r Retry, cmd common.MAV_CMD, p CommandParams) bool {
	attempts := max(r.Attempts, 1)
	v.acks.clear(cmd) // drop an ack left by an earlier timed-out call
	for i := 1; i <= attempts; i++ {
		if err := v.SendCommand(cmd, p); err != nil {
			v.lg.Warn("Command send failed", "command", name, "error", err)
			if errors.Is(err, ErrLinkClosed) {
				return false
			}
			continue
		}
		res, err := v.WaitAck(cmd, r.Timeout.D())
		switch {
		case errors.Is(err, ErrLinkClosed):
			return false
		case err != nil:
			v.lg.Debug("No ack", "command", name, "attempt", i)
		case res == common.MAV_RESULT_ACCEPTED:
			v.lg.Debug("Command accepted", "command", name, "attempt", i)
			return true
		default:
			v.lg.Debug("Command refused", "command", name, "attempt", i, "result", res)
		}
	}
	v.lg.Info("Command failed", "command", name, "attempts", attempts)
	return false
}

// SetMessageRate asks the autopilot to stream message id every interval.
func (v *Vehicle) SetMessageRate(id uint32, interval time.Duration, r Retry) bool {
	return v.command("SET_MESSAGE_INTERVAL", r, common.MAV_CMD_SET_MESSAGE_INTERVAL,
		CommandParams{float32(id), float32(interval.Microseconds())})
}

// RequestMessage asks the autopilot to send message id once.
func (v *Vehicle) RequestMessage(id uint32, r Retry) bool {
	return v.command("REQUEST_MESSAGE", r, common.MAV_CMD_REQUEST_MESSAGE, CommandParams{float32(id)})
}

func (v *Vehicle) requestTelemetry(hz float64) {
	interval := time.Duration(float64(time.Second) / hz)
	for _, m := range telemetryStreams {
		if !v.SetMessageRate(m.GetID(), interval, v.cfg.ConfigRetry) {
			v.lg.Warn("Could not set message rate", "id", m.GetID())
		}
	}
}

// SetVariable stores a value shared between the mission engine and hooks.
func (v *Vehicle) SetVariable(name string, val any) {
	v.varMu.Lock()
	v.vars[name] = val
	v.varMu.Unlock()
}

// Variable returns a value stored with SetVariable.
func (v *Vehicle) Variable(name string) (any, bool) {
	v.varMu.RLock()
	defer v.varMu.RUnlock()
	val, ok := v.vars[name]
	return val, ok
}
