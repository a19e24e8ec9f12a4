// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"time"

	"github.com/tripmate-app/tripmate/lib/schema"
)

const (
	// TodayLabel heads the group of messages sent on the current
	// calendar day.
	TodayLabel = "Today"

	// DayLayout formats the label of earlier days, e.g. "Mar 1, 2026".
	DayLayout = "Jan 2, 2006"

	// TimeLayout formats a message timestamp, e.g. "9:05 PM".
	TimeLayout = "3:04 PM"
)

// DayGroup is the messages of one calendar day.
type DayGroup struct {
	Label    string
	Messages []schema.Message
}

// GroupByDay buckets messages by calendar day in now's location.
// Groups appear in the order their label is first seen while scanning
// messages, and messages keep their list order within a group. The
// input is not re-sorted.
func GroupByDay(messages []schema.Message, now time.Time) []DayGroup {
	var groups []DayGroup
	index := make(map[string]int)
	for _, message := range messages {
		label := DayLabel(message.CreatedAt, now)
		position, seen := index[label]
		if !seen {
			position = len(groups)
			index[label] = position
			groups = append(groups, DayGroup{Label: label})
		}
		groups[position].Messages = append(groups[position].Messages, message)
	}
	return groups
}

// DayLabel returns TodayLabel when at falls on now's calendar day in
// now's location, and the DayLayout date otherwise.
func DayLabel(at, now time.Time) string {
	local := at.In(now.Location())
	year, month, day := local.Date()
	nowYear, nowMonth, nowDay := now.Date()
	if year == nowYear && month == nowMonth && day == nowDay {
		return TodayLabel
	}
	return local.Format(DayLayout)
}

// FormatTime renders the time of day of at in location.
func FormatTime(at time.Time, location *time.Location) string {
	return at.In(location).Format(TimeLayout)
}
