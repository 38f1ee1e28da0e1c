package model

// SentimentData is the externally computed market-sentiment record consumed
// by the prediction engine. All scores are in [0, 100]. The upstream feed
// fixes the blend at 40% fear-greed / 30% social / 30% news; this engine
// only reads OverallScore and Confidence.
type SentimentData struct {
	FearGreed          float64 `json:"fearGreed"`
	RedditSentiment    float64 `json:"redditSentiment"`
	CoinGeckoSentiment float64 `json:"coinGeckoSentiment"`
	OverallScore       float64 `json:"overallScore"`
	Confidence         float64 `json:"confidence"`
	Trend              Trend   `json:"trend"`
}

// NeutralSentiment is the fallback when no sentiment feed is available:
// dead-center scores with middling confidence.
func NeutralSentiment() SentimentData {
	return SentimentData{
		FearGreed:          50,
		RedditSentiment:    50,
		CoinGeckoSentiment: 50,
		OverallScore:       50,
		Confidence:         50,
		Trend:              TrendNeutral,
	}
}
