package replication

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

func (m *Manager) startClientLocked() error {
	cleanup := NewResourceCleanup(m.logger)
	defer cleanup.Cleanup()

	sock, err := m.factory.NewSubSocket()
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	cleanup.Add(sock, "announcement subscriber")

	if err := sock.Subscribe([]byte{}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := sock.SetRecvDeadline(m.config.HeartbeatInterval); err != nil {
		return fmt.Errorf("set recv deadline: %w", err)
	}
	for _, peer := range m.peers {
		endpoint := Endpoint(m.config.Scheme, peer)
		if err := sock.Dial(endpoint); err != nil {
			return fmt.Errorf("dial %s: %w", endpoint, err)
		}
	}
	cleanup.Clear()

	stopCh := make(chan struct{})
	m.sub = sock
	m.stopCh = stopCh
	m.wg.Add(1)
	go m.watchLoop(sock, stopCh, m.onNewMaster, m.onMasterLost)
	return nil
}

// watchLoop follows master announcements until the socket is closed
func (m *Manager) watchLoop(sock Socket, stopCh <-chan struct{}, onNewMaster func(int), onMasterLost func()) {
	defer m.wg.Done()

	master := repmgr.InvalidEID
	var lastSeen time.Time

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		data, err := sock.Recv()
		if err != nil {
			if IsClosed(err) {
				return
			}
			if !IsTimeout(err) {
				m.logger.Debug("announcement receive failed", logging.Error(err))
			}
			if master != repmgr.InvalidEID && time.Since(lastSeen) > m.config.MasterTimeout {
				m.logger.Warn("master silent", logging.Master(master), logging.Duration("silence", time.Since(lastSeen)))
				master = repmgr.InvalidEID
				if m.metricsRegistry != nil {
					m.metricsRegistry.RecordMasterLoss()
				}
				if onMasterLost != nil {
					onMasterLost()
				}
			}
			continue
		}

		ann, err := decodeAnnouncement(data)
		if err != nil {
			m.logger.Debug("dropping malformed announcement", logging.Error(err))
			continue
		}
		m.recordAnnouncement("received")

		now := time.Now()
		if ann.SiteID != master {
			if master != repmgr.InvalidEID && now.Sub(lastSeen) <= m.config.MasterTimeout {
				m.logger.Warn("second master announcing", logging.Master(master), logging.Int("announcer", ann.SiteID))
			}
			master = ann.SiteID
			m.logger.Info("master announced", logging.Master(master), logging.Addr(ann.Addr))
			if onNewMaster != nil {
				onNewMaster(master)
			}
		}
		lastSeen = now
	}
}
