// bed-monitor - record motion and bed occupancy from a live camera
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/godbus/dbus"
)

const (
	eventsDest   = "org.cacophony.Events"
	eventsPath   = "/org/cacophony/Events"
	eventsMethod = "org.cacophony.Events.Queue"
	dbusTimeout  = 5 * time.Second
)

// DBusQueue queues events with the Cacophony event reporter over the
// system bus.
type DBusQueue struct{}

func (DBusQueue) Send(ev Event) error {
	eventDetails := map[string]interface{}{
		"description": map[string]interface{}{
			"type":    ev.Type,
			"details": ev.Details,
		},
	}
	detailsJSON, err := json.Marshal(&eventDetails)
	if err != nil {
		return err
	}

	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}

	obj := conn.Object(eventsDest, eventsPath)
	call := obj.Go(eventsMethod, 0, make(chan *dbus.Call, 1), detailsJSON, ev.Time.UnixNano())
	select {
	case <-call.Done:
		return call.Err
	case <-time.After(dbusTimeout):
		return errors.New("timed out queueing event")
	}
}
