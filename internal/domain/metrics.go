package domain

import "time"

// MetricsReport summarizes the ticket collection for the admin dashboard.
type MetricsReport struct {
	TotalTickets           int                  `json:"totalTickets"`
	ByStatus               map[TicketStatus]int `json:"byStatus"`
	ByDepartment           map[Department]int   `json:"byDepartment"`
	OpenTickets            int                  `json:"openTickets"`
	ResolvedTickets        int                  `json:"resolvedTickets"`
	AverageResolutionHours float64              `json:"averageResolutionHours"`
	RatingCount            int                  `json:"ratingCount"`
	AverageRating          float64              `json:"averageRating"`
	GeneratedAt            time.Time            `json:"generatedAt"`
}

// BuildMetricsReport computes the report. Open counts Open and In Progress;
// resolution time is updatedAt minus createdAt over Resolved and Closed tickets.
func BuildMetricsReport(tickets []Ticket, now time.Time) MetricsReport {
	report := MetricsReport{
		TotalTickets: len(tickets),
		ByStatus:     make(map[TicketStatus]int, len(TicketStatuses)),
		ByDepartment: make(map[Department]int, len(Departments)),
		GeneratedAt:  now.UTC(),
	}
	for _, status := range TicketStatuses {
		report.ByStatus[status] = 0
	}
	for _, dept := range Departments {
		report.ByDepartment[dept] = 0
	}

	var resolutionTotal time.Duration
	ratingTotal := 0
	for _, t := range tickets {
		report.ByStatus[t.Status]++
		report.ByDepartment[t.Department]++
		if t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress {
			report.OpenTickets++
		}
		if t.Status.Finished() {
			report.ResolvedTickets++
			resolutionTotal += t.UpdatedAt.Sub(t.CreatedAt)
		}
		if t.Rating != nil {
			report.RatingCount++
			ratingTotal += *t.Rating
		}
	}

	if report.ResolvedTickets > 0 {
		report.AverageResolutionHours = resolutionTotal.Hours() / float64(report.ResolvedTickets)
	}
	if report.RatingCount > 0 {
		report.AverageRating = float64(ratingTotal) / float64(report.RatingCount)
	}
	return report
}
