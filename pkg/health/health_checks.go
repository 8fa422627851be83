package health

import "strconv"

// CoordinatorCheck reports on mastership: healthy once a master is known,
// degraded while an election is running, unhealthy when neither holds.
func CoordinatorCheck(state func() CoordinatorState) CheckFunc {
	return func() Check {
		s := state()
		check := Check{
			Name: "coordinator",
			Details: map[string]any{
				"site_id":     s.SiteID,
				"master_id":   s.MasterID,
				"coordinator": s.Running,
			},
		}

		switch {
		case s.MasterID >= 0 && s.MasterID == s.SiteID:
			check.Status = StatusHealthy
			check.Message = "This site is master"
		case s.MasterID >= 0:
			check.Status = StatusHealthy
			check.Message = "Following master " + strconv.Itoa(s.MasterID)
		case s.Running:
			check.Status = StatusDegraded
			check.Message = "Election in progress"
		default:
			check.Status = StatusUnhealthy
			check.Message = "No master and no election running"
		}
		return check
	}
}

// GenerationCheck reports whether the generation store can be read
func GenerationCheck(current func() (uint64, error)) CheckFunc {
	return func() Check {
		check := Check{Name: "generation"}

		gen, err := current()
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		check.Status = StatusHealthy
		check.Details = map[string]any{"generation": gen}
		return check
	}
}

// RoleCheck reports whether replication runs in some role
func RoleCheck(role func() (name string, active bool)) CheckFunc {
	return func() Check {
		check := Check{Name: "replication"}

		name, active := role()
		if !active {
			check.Status = StatusDegraded
			check.Message = "Replication not started"
			return check
		}

		check.Status = StatusHealthy
		check.Details = map[string]any{"role": name}
		return check
	}
}
