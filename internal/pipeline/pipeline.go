package pipeline

import "time"

const dateLayout = "2006-01-02"

func unixUTC(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
