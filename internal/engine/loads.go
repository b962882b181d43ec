package engine

// Aggregate turns a load list into day/night energy, an hourly demand profile
// and peak demand. Disabled loads are skipped. Loads are not validated:
// negative values propagate into the totals.
func Aggregate(loads []ApplianceLoad, curve IrradianceCurve) LoadProfile {
	var profile LoadProfile
	worstCaseW := 0.0

	for _, l := range loads {
		if !l.Enabled {
			continue
		}
		power := l.RatedPowerW()

		switch l.Schedule.Kind {
		case ScheduleInterval:
			if l.Schedule.Interval == nil {
				continue
			}
			s := l.Schedule.Interval
			for _, span := range [][2]int{{s.AMStart, s.AMEnd}, {s.PMStart, s.PMEnd}} {
				for h := span[0]; h < span[1]; h++ {
					if IsDaylight(curve, h) {
						profile.EnergyDayWh += power
					} else {
						profile.EnergyNightWh += power
					}
					if h >= 0 && h < 24 {
						profile.Hourly[h] += power
					}
				}
			}

		case ScheduleDuration:
			if l.Schedule.Duration == nil {
				continue
			}
			d := l.Schedule.Duration
			profile.EnergyDayWh += power * d.DayHours
			profile.EnergyNightWh += power * d.NightHours
			// No absolute schedule, so assume it overlaps the busiest hour
			if d.DayHours+d.NightHours > 0 {
				worstCaseW += power
			}
		}
	}

	peak := 0.0
	for _, w := range profile.Hourly {
		if w > peak {
			peak = w
		}
	}
	profile.PeakDemandW = peak + worstCaseW

	return profile
}

// UsedHours is the total hours of use of a load per day
func UsedHours(s Schedule) float64 {
	switch s.Kind {
	case ScheduleInterval:
		if s.Interval == nil {
			return 0
		}
		return float64(spanHours(s.Interval.AMStart, s.Interval.AMEnd) + spanHours(s.Interval.PMStart, s.Interval.PMEnd))
	case ScheduleDuration:
		if s.Duration == nil {
			return 0
		}
		return s.Duration.DayHours + s.Duration.NightHours
	}
	return 0
}

func spanHours(start, end int) int {
	if end <= start {
		return 0
	}
	return end - start
}
