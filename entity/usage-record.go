package entity

import "time"

// UsageRecord is an immutable log of one successful generation: the inputs,
// the produced names and the latency. Read back by the history views.
type UsageRecord struct {
	Id             string         `json:"id" bson:"record_id"`
	Code           string         `json:"code" bson:"code"`
	UserId         string         `json:"userId" bson:"user_id"`
	DeviceId       string         `json:"deviceId" bson:"device_id"`
	BabyInfo       GenerateParams `json:"babyInfo" bson:"baby_info"`
	Names          []NameResult   `json:"names" bson:"names"`
	GenerationTime int64          `json:"generationTime" bson:"generation_time"`
	CreatedAt      time.Time      `json:"createdAt" bson:"created_at"`
}

// HistoryRecord is the client-facing projection of a UsageRecord.
type HistoryRecord struct {
	Id           string       `json:"id"`
	UserId       string       `json:"userId"`
	Date         string       `json:"date"`
	Surname      string       `json:"surname"`
	Gender       string       `json:"gender"`
	BirthDate    string       `json:"birthDate,omitempty"`
	BirthTime    string       `json:"birthTime,omitempty"`
	Requirements string       `json:"requirements,omitempty"`
	Names        []NameResult `json:"names"`
	CreatedAt    string       `json:"createdAt"`
}

type HistoryPage struct {
	Records []HistoryRecord `json:"records"`
	Total   int64           `json:"total"`
	HasMore bool            `json:"hasMore"`
}

type UsageStats struct {
	TotalUsage  int64 `json:"totalUsage"`
	RecentUsage int   `json:"recentUsage"`
}
