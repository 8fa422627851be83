package cluster

import "github.com/dd0wney/cluso-repmgr/pkg/logging"

// AddSite registers a peer site
func (m *Membership) AddSite(site Site) error {
	if site.ID < 0 {
		return ErrInvalidSiteID
	}
	if site.VoteAddr == "" {
		return ErrMissingVoteAddr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sites[site.ID]; exists {
		return ErrSiteAlreadyExists
	}

	siteCopy := site
	m.sites[site.ID] = &siteCopy
	m.logger.Debug("site added", logging.Int("peer", site.ID), logging.Addr(site.VoteAddr))
	return nil
}

// RemoveSite drops a peer site
func (m *Membership) RemoveSite(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == m.localID {
		return ErrCannotRemoveSelf
	}
	if _, exists := m.sites[id]; !exists {
		return ErrSiteNotFound
	}

	delete(m.sites, id)
	m.logger.Debug("site removed", logging.Int("peer", id))
	return nil
}

// SetLocalLSN records the local site's replication progress
func (m *Membership) SetLocalLSN(lsn uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sites[m.localID].LastLSN = lsn
}

// UpdateSiteLSN records a peer's last known replication progress
func (m *Membership) UpdateSiteLSN(id int, lsn uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	site, exists := m.sites[id]
	if !exists {
		return ErrSiteNotFound
	}
	site.LastLSN = lsn
	return nil
}
