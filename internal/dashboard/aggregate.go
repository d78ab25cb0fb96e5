package dashboard

import (
	"sort"
	"strings"
	"time"
)

// Palette assigns colors to categories by first-seen order.
var Palette = []string{
	"#3b82f6", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6",
	"#06b6d4", "#ec4899", "#84cc16", "#f97316", "#6366f1",
}

const unknownLabel = "unknown"

// Options tunes the aggregation.
type Options struct {
	TrendDays   int
	TopVets     int
	PlatformFee int64
	Location    *time.Location
}

func (o Options) withDefaults() Options {
	if o.TrendDays <= 0 {
		o.TrendDays = 30
	}
	if o.TopVets <= 0 {
		o.TopVets = 10
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Aggregate reduces a snapshot to the dashboard overview. It does no I/O.
func Aggregate(s Snapshot, now time.Time, opts Options) Overview {
	opts = opts.withDefaults()
	return Overview{
		Totals:             ComputeTotals(s, opts.PlatformFee),
		UsersByType:        Histogram(pluck(s.Users, func(u User) string { return u.UserType })),
		AppointmentTypes:   Histogram(pluck(s.Appointments, func(a Appointment) string { return a.ConsultationType })),
		AppointmentStatus:  Histogram(pluck(s.Appointments, func(a Appointment) string { return a.Status })),
		PetTypes:           Histogram(pluck(s.Pets, func(p Pet) string { return p.Type })),
		VetSpecializations: Histogram(pluck(s.Vets, func(v Vet) string { return v.Specialization })),
		TopVets:            RankVets(s.Vets, s.Appointments, opts.TopVets),
		Trend:              Trend(s, now, opts.TrendDays, opts.Location),
		GeneratedAt:        now,
	}
}

func ComputeTotals(s Snapshot, platformFee int64) Totals {
	t := Totals{
		Users:         len(s.Users),
		Vets:          len(s.Vets),
		Pets:          len(s.Pets),
		Appointments:  len(s.Appointments),
		Prescriptions: len(s.Prescriptions),
		Transactions:  len(s.Transactions),
	}
	for _, v := range s.Vets {
		switch v.ApprovalStatus {
		case "approved":
			t.ApprovedVets++
		case "pending":
			t.PendingVets++
		}
	}
	for _, tx := range s.Transactions {
		if settled(tx.Status) {
			t.Revenue += tx.Amount
			t.PlatformRevenue += platformFee
		}
	}
	return t
}

// Histogram counts labels. Buckets and colors follow first-seen order, so
// the same input always renders the same way.
func Histogram(labels []string) []Bucket {
	index := make(map[string]int)
	out := make([]Bucket, 0)
	for _, raw := range labels {
		label := normalise(raw)
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, Bucket{Label: label, Color: Palette[i%len(Palette)]})
		}
		out[i].Count++
	}
	return out
}

// RankVets orders vets by appointment count, descending. Ties keep the
// order vets appear in the input.
func RankVets(vets []Vet, appts []Appointment, limit int) []VetRank {
	index := make(map[string]int, len(vets))
	out := make([]VetRank, 0, len(vets))
	for _, v := range vets {
		if _, dup := index[v.ID]; dup {
			continue
		}
		index[v.ID] = len(out)
		out = append(out, VetRank{VetID: v.ID, Name: v.Name, Specialization: v.Specialization})
	}
	for _, a := range appts {
		i, ok := index[a.VetID]
		if !ok {
			continue
		}
		out[i].Appointments++
		if a.Status == "completed" {
			out[i].Completed++
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Appointments > out[j].Appointments })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Trend returns one point per day for the trailing window ending today,
// oldest first. Appointments bucket by booking date; everything else by
// creation date in loc.
func Trend(s Snapshot, now time.Time, days int, loc *time.Location) []TrendPoint {
	if days <= 0 {
		return []TrendPoint{}
	}
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)
	points := make([]TrendPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1).Format(time.DateOnly)
		points[i].Date = day
		index[day] = i
	}
	day := func(t time.Time) string { return t.In(loc).Format(time.DateOnly) }

	for _, u := range s.Users {
		if i, ok := index[day(u.CreatedAt)]; ok {
			points[i].Users++
		}
	}
	for _, a := range s.Appointments {
		if i, ok := index[a.BookingDate]; ok {
			points[i].Appointments++
		}
	}
	for _, p := range s.Prescriptions {
		if i, ok := index[day(p.CreatedAt)]; ok {
			points[i].Prescriptions++
		}
	}
	for _, tx := range s.Transactions {
		if !settled(tx.Status) {
			continue
		}
		if i, ok := index[day(tx.CreatedAt)]; ok {
			points[i].Revenue += tx.Amount
		}
	}
	return points
}

func pluck[T any](items []T, f func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = f(it)
	}
	return out
}

func normalise(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return unknownLabel
	}
	return label
}

func settled(status string) bool { return status == "completed" || status == "success" }
