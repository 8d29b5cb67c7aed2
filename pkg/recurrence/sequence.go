package recurrence

import "iter"

// dailySteps yields anchor + k*step days, starting at the first aligned day
// not before from and stopping after to.
func dailySteps(anchor Date, step int, from, to Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		k := 0
		if from.After(anchor) {
			diff := DaysBetween(anchor, from)
			k = (diff + step - 1) / step
		}
		for day := anchor.AddDays(k * step); !day.After(to); day = anchor.AddDays(k * step) {
			if !yield(day) {
				return
			}
			k++
		}
	}
}

// monthlySteps yields anchor + k*step months. Every candidate is computed
// from the anchor, so a clamped day never shifts later candidates.
func monthlySteps(anchor Date, step int, from, to Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		k := 0
		if from.After(anchor) {
			k = MonthsBetween(anchor, from) / step
			for anchor.AddMonths(k * step).Before(from) {
				k++
			}
		}
		for day := anchor.AddMonths(k * step); !day.After(to); day = anchor.AddMonths(k * step) {
			if !yield(day) {
				return
			}
			k++
		}
	}
}

// calendarDays yields every day in [from, to].
func calendarDays(from, to Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for day := from; !day.After(to); day = day.AddDays(1) {
			if !yield(day) {
				return
			}
		}
	}
}

// take collects at most limit candidates. truncated is true when the
// sequence had more to give.
func take(seq iter.Seq[Date], limit int) (days []Date, truncated bool) {
	if limit <= 0 {
		return nil, false
	}
	for day := range seq {
		if len(days) == limit {
			truncated = true
			break
		}
		days = append(days, day)
	}
	return days, truncated
}
