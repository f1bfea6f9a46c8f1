package models

import "time"

// BridgeStatus is what the daemon reports about the companion channel.
type BridgeStatus struct {
	State     string    `json:"state"`     // absent | connecting | open | closing
	Connected bool      `json:"connected"` // companion reports it can reach devices
	Devices   []Device  `json:"devices"`
	Attempts  int       `json:"attempts"`  // disconnects since the channel was last stable
	NextDelay string    `json:"nextDelay"` // backoff before the next reconnect
	Since     time.Time `json:"since"`
	Clients   int       `json:"clients"` // connected UI surfaces
}
