package conversation

import (
	"time"

	"skillswap/internal/domain"
)

// DayGroup holds the messages of one local calendar day, in their original
// order.
type DayGroup struct {
	Day      time.Time
	Messages []domain.Message
}

// GroupByDay splits an ordered message list on local calendar-day
// boundaries for display. Pure function: the input is not mutated.
func GroupByDay(msgs []domain.Message) []DayGroup {
	var groups []DayGroup
	for _, msg := range msgs {
		day := dayOf(msg.CreatedAt)
		if len(groups) == 0 || !groups[len(groups)-1].Day.Equal(day) {
			groups = append(groups, DayGroup{Day: day})
		}
		last := &groups[len(groups)-1]
		last.Messages = append(last.Messages, msg)
	}
	return groups
}

func dayOf(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
