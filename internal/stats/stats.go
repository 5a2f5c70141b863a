// Package stats derives dashboard figures from snapshots of appointments
// and parts. The functions in this file are pure; Service loads the
// snapshots from the store.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/garage-service/internal/models"
)

// DefaultTopOfferings is the number of bars in the top offerings chart.
const DefaultTopOfferings = 5

// RevenueWarning describes how Revenue approximates the takings of a period.
const RevenueWarning = "approximation: sum of the labor prices booked for appointments scheduled in the period, " +
	"cancelled services and cancelled appointments excluded, parts not included"

// Histogram counts appointments per overall status.
func Histogram(appts []models.Appointment) models.StatusCounts {
	var c models.StatusCounts
	for _, a := range appts {
		switch a.Status {
		case models.AppointmentPending:
			c.Pending++
		case models.AppointmentConfirmed:
			c.Confirmed++
		case models.AppointmentInProgress:
			c.InProgress++
		case models.AppointmentCompleted:
			c.Completed++
		case models.AppointmentCancelled:
			c.Cancelled++
		}
	}
	return c
}

// Percent returns round(100 * part / total), or 0 when total is 0.
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}

// Ratings averages the reviews found in appts. avg is nil when there are
// none and rounded to two decimals; stars is the unrounded average rounded
// to the nearest integer in 0..5.
func Ratings(appts []models.Appointment) (avg *float64, stars, count int) {
	sum := 0
	for _, a := range appts {
		if a.Review == nil {
			continue
		}
		sum += a.Review.Rating
		count++
	}
	if count == 0 {
		return nil, 0, 0
	}
	exact := float64(sum) / float64(count)
	stars = int(math.Round(exact))
	if stars > 5 {
		stars = 5
	}
	mean := math.Round(exact*100) / 100
	return &mean, stars, count
}

// ScheduledOn counts the appointments whose date falls on the calendar day
// of day, in day's location.
func ScheduledOn(appts []models.Appointment, day time.Time) int {
	n := 0
	for _, a := range appts {
		if sameDay(a.ScheduledAt, day) {
			n++
		}
	}
	return n
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// TopOfferings ranks offerings by the number of times they were requested,
// most requested first, ties by name. Names and labor prices come from the
// catalog; offerings since deleted fall back to the booked snapshot.
func TopOfferings(appts []models.Appointment, catalog []models.ServiceOffering, n int) []models.TopOffering {
	if n <= 0 {
		n = DefaultTopOfferings
	}
	byID := make(map[string]*models.TopOffering)
	for _, a := range appts {
		for _, inst := range a.Services {
			id := inst.OfferingID.Hex()
			top, ok := byID[id]
			if !ok {
				top = &models.TopOffering{OfferingID: id, Name: inst.Name, LaborPrice: inst.BaseLaborPrice}
				byID[id] = top
			}
			top.Count++
		}
	}
	for _, o := range catalog {
		if top, ok := byID[o.ID.Hex()]; ok {
			top.Name = o.Name
			top.LaborPrice = o.BaseLaborPrice
		}
	}

	out := make([]models.TopOffering, 0, len(byID))
	for _, top := range byID {
		out = append(out, *top)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Revenue sums the labor prices of the services of appointments scheduled
// within [from, to]. Cancelled services and appointments are excluded.
func Revenue(appts []models.Appointment, from, to time.Time) models.RevenueReport {
	report := models.RevenueReport{From: from, To: to, Warning: RevenueWarning}
	total := decimal.Zero
	for _, a := range appts {
		if a.Status == models.AppointmentCancelled || a.ScheduledAt.Before(from) || a.ScheduledAt.After(to) {
			continue
		}
		counted := false
		for _, inst := range a.Services {
			if inst.CurrentStatus == models.ServiceCancelled {
				continue
			}
			total = total.Add(decimal.NewFromFloat(inst.LaborPrice))
			report.ServiceCount++
			counted = true
		}
		if counted {
			report.AppointmentCount++
		}
	}
	report.Total = total.Round(2).InexactFloat64()
	return report
}

// ForMechanic computes the throughput of mechanicID over the appointments
// assigned to them. Minutes worked sum the effective durations of
// completed services.
func ForMechanic(mechanicID string, appts []models.Appointment, now time.Time) models.MechanicStats {
	st := models.MechanicStats{MechanicID: mechanicID}
	var worked time.Duration
	timed := 0
	for _, a := range appts {
		if a.MechanicID != mechanicID {
			continue
		}
		st.AppointmentsTotal++
		if sameDay(a.ScheduledAt, now) {
			st.AppointmentsToday++
		}
		switch a.Status {
		case models.AppointmentInProgress:
			st.AppointmentsActive++
		case models.AppointmentCompleted:
			st.AppointmentsCompleted++
		}

		for _, inst := range a.Services {
			switch inst.CurrentStatus {
			case models.ServiceCancelled:
				continue
			case models.ServiceInProgress:
				st.ServicesInProgress++
			case models.ServiceCompleted:
				st.ServicesCompleted++
				if d, ok := inst.EffectiveDuration(); ok {
					worked += d
					timed++
				}
			}
			st.ServicesTotal++
		}
	}

	st.CompletionRate = Percent(st.ServicesCompleted, st.ServicesTotal)
	st.MinutesWorked = tenth(worked.Minutes())
	st.HoursWorked = tenth(worked.Hours())
	if timed > 0 {
		st.AverageMinutes = tenth(worked.Minutes() / float64(timed))
	}
	return st
}

func tenth(v float64) float64 {
	return math.Round(v*10) / 10
}
