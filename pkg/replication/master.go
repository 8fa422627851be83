package replication

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
)

func (m *Manager) startMasterLocked(addr string) error {
	cleanup := NewResourceCleanup(m.logger)
	defer cleanup.Cleanup()

	sock, err := m.factory.NewPubSocket()
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	cleanup.Add(sock, "announcement publisher")

	if err := sock.SetSendDeadline(m.config.HeartbeatInterval); err != nil {
		return fmt.Errorf("set send deadline: %w", err)
	}
	endpoint := Endpoint(m.config.Scheme, addr)
	if err := sock.Listen(endpoint); err != nil {
		return fmt.Errorf("listen %s: %w", endpoint, err)
	}
	cleanup.Clear()

	stopCh := make(chan struct{})
	m.pub = sock
	m.stopCh = stopCh
	m.wg.Add(1)
	go m.announceLoop(sock, addr, stopCh)
	return nil
}

// announceLoop publishes an announcement now and every heartbeat interval
func (m *Manager) announceLoop(sock Socket, addr string, stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.HeartbeatInterval)
	defer ticker.Stop()

	var seq uint64
	for {
		seq++
		m.announce(sock, addr, seq)

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) announce(sock Socket, addr string, seq uint64) {
	data, err := encodeAnnouncement(MasterAnnouncement{
		SiteID: m.siteID,
		Addr:   addr,
		Seq:    seq,
		SentAt: time.Now().UnixNano(),
	})
	if err != nil {
		m.logger.Error("encode announcement failed", logging.Error(err))
		return
	}
	if err := sock.Send(data); err != nil {
		if !IsClosed(err) {
			m.logger.Debug("announcement not sent", logging.Uint64("seq", seq), logging.Error(err))
		}
		return
	}
	m.recordAnnouncement("sent")
}
