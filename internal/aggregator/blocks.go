package aggregator

// Block decoders read a raw context payload into a typed block. Each decoder
// returns nil when the block's primary field is absent: a view never carries
// a hollow block.

func decodeWeather(p map[string]any) *Weather {
	temp, ok := payloadFloat(p, "temperature_f")
	if !ok {
		return nil
	}
	w := &Weather{TemperatureF: &temp}
	w.Condition, _ = p["weather_condition"].(string)
	w.Humidity = optFloat(p, "humidity")
	w.WindSpeed = optFloat(p, "wind_speed")
	return w
}

func decodeTraffic(p map[string]any) *Traffic {
	score, ok := payloadFloat(p, "congestion_score")
	if !ok {
		return nil
	}
	return &Traffic{
		CongestionScore: &score,
		TravelTimeIndex: optFloat(p, "travel_time_index"),
	}
}

func decodeSocial(p map[string]any) *Social {
	mentions, ok := payloadFloat(p, "mention_count")
	if !ok {
		return nil
	}
	return &Social{
		MentionCount:      &mentions,
		PositiveSentiment: optFloat(p, "positive_sentiment"),
		NegativeSentiment: optFloat(p, "negative_sentiment"),
		EngagementScore:   optFloat(p, "engagement_score"),
	}
}

func decodeML(p map[string]any) *MLPrediction {
	density, ok := payloadFloat(p, "psychographic_density")
	if !ok {
		return nil
	}
	m := &MLPrediction{
		PsychographicDensity: &density,
		ConfidenceLower:      optFloat(p, "confidence_lower"),
		ConfidenceUpper:      optFloat(p, "confidence_upper"),
	}
	m.Segment, _ = p["segment"].(string)
	return m
}

func decodeFootTraffic(p map[string]any) *FootTraffic {
	visitors, ok := payloadFloat(p, "visitors_count")
	if !ok {
		return nil
	}
	return &FootTraffic{
		VisitorsCount: &visitors,
		PeakHour:      optFloat(p, "peak_hour"),
		DwellTime:     optFloat(p, "dwell_time"),
	}
}

func decodeEconomic(p map[string]any) *Economic {
	rate, ok := payloadFloat(p, "unemployment_rate")
	if !ok {
		return nil
	}
	return &Economic{
		UnemploymentRate: &rate,
		BusinessCount:    optFloat(p, "business_count"),
		MedianRent:       optFloat(p, "median_rent"),
	}
}

func decodeDemographic(p map[string]any) *Demographic {
	income, ok := payloadFloat(p, "median_income")
	if !ok {
		return nil
	}
	return &Demographic{
		MedianIncome: &income,
		Population:   optFloat(p, "population"),
		MedianAge:    optFloat(p, "median_age"),
	}
}

// payloadFloat reads a numeric payload value; JSON decoding yields float64
// but ints appear in hand-built maps.
func payloadFloat(p map[string]any, key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func optFloat(p map[string]any, key string) *float64 {
	if v, ok := payloadFloat(p, key); ok {
		return &v
	}
	return nil
}
