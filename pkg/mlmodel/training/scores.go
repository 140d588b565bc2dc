package training

// Score is one ScoreTable entry.
type Score struct {
	Model string  `json:"model"`
	Value float64 `json:"score"`
}

// ScoreTable maps model names to scores and keeps insertion order.
type ScoreTable struct {
	entries []Score
	index   map[string]int
}

func NewScoreTable() *ScoreTable {
	return &ScoreTable{index: make(map[string]int)}
}

// Set records a score, replacing an earlier one for the same model without
// changing its position.
func (t *ScoreTable) Set(model string, value float64) {
	if i, ok := t.index[model]; ok {
		t.entries[i].Value = value
		return
	}
	t.index[model] = len(t.entries)
	t.entries = append(t.entries, Score{Model: model, Value: value})
}

func (t *ScoreTable) Get(model string) (float64, bool) {
	i, ok := t.index[model]
	if !ok {
		return 0, false
	}
	return t.entries[i].Value, true
}

func (t *ScoreTable) Len() int { return len(t.entries) }

// Entries returns the scores in insertion order.
func (t *ScoreTable) Entries() []Score {
	return append([]Score(nil), t.entries...)
}

// Map returns the scores keyed by model name.
func (t *ScoreTable) Map() map[string]float64 {
	out := make(map[string]float64, len(t.entries))
	for _, e := range t.entries {
		out[e.Model] = e.Value
	}
	return out
}

// Best returns the highest scoring model. On a tie the model inserted first
// wins. ok is false for an empty table.
func (t *ScoreTable) Best() (model string, value float64, ok bool) {
	for i, e := range t.entries {
		if i == 0 || e.Value > value {
			model, value = e.Model, e.Value
		}
	}
	return model, value, len(t.entries) > 0
}
