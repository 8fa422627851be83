package cluster

import "sort"

// GetSite returns a copy of the site with the given ID
func (m *Membership) GetSite(id int) (Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	site, exists := m.sites[id]
	if !exists {
		return Site{}, ErrSiteNotFound
	}
	return *site, nil
}

// LocalSite returns a copy of this site's entry
func (m *Membership) LocalSite() Site {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return *m.sites[m.localID]
}

// Sites returns every site ordered by ID
func (m *Membership) Sites() []Site {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sites := make([]Site, 0, len(m.sites))
	for _, site := range m.sites {
		sites = append(sites, *site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID < sites[j].ID })
	return sites
}

// Peers returns every site except this one, ordered by ID
func (m *Membership) Peers() []Site {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peers := make([]Site, 0, len(m.sites)-1)
	for id, site := range m.sites {
		if id == m.localID {
			continue
		}
		peers = append(peers, *site)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return peers
}

// SiteCount returns the number of sites in the group, this one included
func (m *Membership) SiteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sites)
}
