package model

// Overview holds the KPIs on the dashboard's overview tab.
type Overview struct {
	Followers int64 `json:"followers"`
	Programs  int64 `json:"programs"`
	Downloads int64 `json:"downloads"`
}

// Analytics buckets a creator's programs. Published + Drafts always equals
// the number of programs that were counted.
type Analytics struct {
	Published  int64 `json:"published"`
	Drafts     int64 `json:"drafts"`
	LastThirty int64 `json:"last30"`
}
