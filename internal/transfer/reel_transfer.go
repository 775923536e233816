package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

type GenerateRequest struct {
	Count int    `json:"count"`
	Theme string `json:"theme"`
}

// RescheduleRequest carries either "YYYY-MM-DD HH:MM" in the schedule
// timezone or an RFC 3339 timestamp.
type RescheduleRequest struct {
	At string `json:"at"`
}

type PostTime struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type ScheduleUpdate struct {
	Timezone  string     `json:"timezone"`
	PostTimes []PostTime `json:"post_times"`
}

type CalendarEntryCreation struct {
	Date     string `json:"date"` // YYYY-MM-DD
	TimeSlot string `json:"time_slot"`
	Theme    string `json:"theme"`
}

type CalendarAttach struct {
	ReelID int64 `json:"reel_id"`
}

type GenerateResponse struct {
	Requested int     `json:"requested"`
	Generated int     `json:"generated"`
	ReelIDs   []int64 `json:"reel_ids"`
}
