package usage

// Totals is the "zero aggregation" shape: every counter starts at zero and
// sums as records are folded in.
type Totals struct {
	RequestCount        int     `json:"requestCount"`
	InputTokens         int64   `json:"inputTokens"`
	OutputTokens        int64   `json:"outputTokens"`
	CacheCreationTokens int64   `json:"cacheCreationTokens"`
	CacheReadTokens     int64   `json:"cacheReadTokens"`
	TotalTokens         int64   `json:"totalTokens"`
	InputCost           float64 `json:"inputCost"`
	OutputCost          float64 `json:"outputCost"`
	CacheCreationCost   float64 `json:"cacheCreationCost"`
	CacheReadCost       float64 `json:"cacheReadCost"`
	TotalCost           float64 `json:"totalCost"`
	AvgDurationMS       float64 `json:"avgDurationMs"`
	ErrorRatePercent    int     `json:"errorRatePercent"`

	errorCount   int
	durationSum  int64
}

// Aggregation is the zero-aggregation Totals extended with per-model and
// per-hour breakdowns, each holding the same Totals shape one level deep
// (no further byModel/byHour nesting inside those buckets).
type Aggregation struct {
	Totals
	ByModel map[string]*Totals `json:"byModel"`
	ByHour  map[string]*Totals `json:"byHour"`
}

// NewAggregation returns a zeroed Aggregation ready to accumulate records.
func NewAggregation() *Aggregation {
	return &Aggregation{
		ByModel: map[string]*Totals{},
		ByHour:  map[string]*Totals{},
	}
}

func (a *Aggregation) add(r Record) {
	a.Totals.accumulate(r)

	model := a.ByModel[r.Model]
	if model == nil {
		model = &Totals{}
		a.ByModel[r.Model] = model
	}
	model.accumulate(r)

	hour := hourBucket(r.Timestamp)
	h := a.ByHour[hour]
	if h == nil {
		h = &Totals{}
		a.ByHour[hour] = h
	}
	h.accumulate(r)
}

func (t *Totals) accumulate(r Record) {
	t.RequestCount++
	t.InputTokens += int64(r.InputTokens)
	t.OutputTokens += int64(r.OutputTokens)
	t.CacheCreationTokens += int64(r.CacheCreationTokens)
	t.CacheReadTokens += int64(r.CacheReadTokens)
	t.TotalTokens += int64(r.TotalTokens)
	t.InputCost += r.InputCost
	t.OutputCost += r.OutputCost
	t.CacheCreationCost += r.CacheCreationCost
	t.CacheReadCost += r.CacheReadCost
	t.TotalCost += r.TotalCost
	t.durationSum += r.DurationMS
	if r.StatusCode >= 400 {
		t.errorCount++
	}
}

// finalize computes the derived averages/rates once all records have been
// folded in.
func (t *Totals) finalize() {
	if t.RequestCount == 0 {
		return
	}
	t.AvgDurationMS = float64(t.durationSum) / float64(t.RequestCount)
	t.ErrorRatePercent = int(float64(t.errorCount)/float64(t.RequestCount)*100 + 0.5)
}

func (a *Aggregation) finalize() {
	a.Totals.finalize()
	for _, m := range a.ByModel {
		m.finalize()
	}
	for _, h := range a.ByHour {
		h.finalize()
	}
}

// merge folds other's totals and buckets into a, used to combine several
// daily aggregations into a weekly/monthly/range aggregation.
func (a *Aggregation) merge(other *Aggregation) {
	a.Totals.mergeTotals(&other.Totals)
	for model, t := range other.ByModel {
		dst := a.ByModel[model]
		if dst == nil {
			dst = &Totals{}
			a.ByModel[model] = dst
		}
		dst.mergeTotals(t)
	}
	for hour, t := range other.ByHour {
		dst := a.ByHour[hour]
		if dst == nil {
			dst = &Totals{}
			a.ByHour[hour] = dst
		}
		dst.mergeTotals(t)
	}
}

func (t *Totals) mergeTotals(o *Totals) {
	t.RequestCount += o.RequestCount
	t.InputTokens += o.InputTokens
	t.OutputTokens += o.OutputTokens
	t.CacheCreationTokens += o.CacheCreationTokens
	t.CacheReadTokens += o.CacheReadTokens
	t.TotalTokens += o.TotalTokens
	t.InputCost += o.InputCost
	t.OutputCost += o.OutputCost
	t.CacheCreationCost += o.CacheCreationCost
	t.CacheReadCost += o.CacheReadCost
	t.TotalCost += o.TotalCost
	t.durationSum += o.durationSum
	t.errorCount += o.errorCount
}

func hourBucket(timestamp string) string {
	// timestamp is ISO-8601 UTC, e.g. "2026-08-06T14:32:01Z" — the hour
	// bucket key is the date+hour prefix.
	if len(timestamp) >= 13 {
		return timestamp[:13]
	}
	return timestamp
}
