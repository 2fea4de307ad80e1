package model

// Stats is a snapshot of the moderator's session counters.
type Stats struct {
	TotalProcessed int64 `json:"totalProcessed"`
	AutoLinked     int64 `json:"autoLinked"`
	AICalls        int64 `json:"aiCalls"`
	TokensUsed     int64 `json:"tokensUsed"`
	CacheHits      int64 `json:"cacheHits"`
	Errors         int64 `json:"errors"`
}

// Efficiency is the share of processed names resolved without the reasoning
// service, as a percentage.
func (s Stats) Efficiency() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.AutoLinked+s.CacheHits) / float64(s.TotalProcessed) * 100
}
