package entities

import "time"

// HealthDataPoint is one cumulative reading reported by a participant's
// device. Source devices report running totals, so the current score for
// a participant is the latest reading of the duel's unit, not a sum.
type HealthDataPoint struct {
	DuelId     string    `dynamodbav:"DuelId" json:"duelId"`
	RecordKey  string    `dynamodbav:"RecordKey" json:"-"`
	UserId     string    `dynamodbav:"UserId" json:"userId"`
	DataType   string    `dynamodbav:"DataType" json:"dataType"`
	Value      float64   `dynamodbav:"DataValue" json:"value"`
	Timestamp  time.Time `dynamodbav:"RecordTimestamp" json:"timestamp"`
	Revalidate bool      `dynamodbav:"Revalidate" json:"revalidate"`
}
