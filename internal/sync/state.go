package sync

import "sync"

// ConnectivityState is the process-wide reachability signal. The monitor
// is its sole writer; everything else reads through Connected. The
// last-sync timestamp half of the signal is durable and lives in the
// store, not here.
type ConnectivityState struct {
	mu        sync.RWMutex
	connected bool
}

func NewConnectivityState() *ConnectivityState {
	return &ConnectivityState{}
}

// Connected reports the result of the most recent connectivity tick.
func (s *ConnectivityState) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *ConnectivityState) setConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}
