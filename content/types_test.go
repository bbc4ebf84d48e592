package content

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLenientNumbers(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		score   Score
		percent Percent
	}{
		{"integer", `60`, 60, 60},
		{"float", `62.5`, 62.5, 63},
		{"string", `"60"`, 60, 60},
		{"string float", `" 7.5 "`, 7.5, 8},
		{"percent sign", `"55%"`, 55, 55},
		{"null", `null`, 0, 0},
		{"empty string", `""`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Score
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &s))
			assert.Equal(t, tt.score, s)

			var p Percent
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &p))
			assert.Equal(t, tt.percent, p)
		})
	}

	var s Score
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`true`), &s))
}

func TestForType_AcceptsNonIntegerPercentage(t *testing.T) {
	tests := []struct {
		name string
		pct  string
		want Percent
	}{
		{"float", `62.5`, 63},
		{"string", `"60"`, 60},
		{"out of range string", `"120"`, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := `{"hook":"Pick one","main_text":"Have wings","secondary_text":"Have gills",` +
				`"voiceover_script":"Would you rather have wings or gills?","percentage_a":` + tt.pct + `}`
			caller, _ := scripted(t, reply, nil)

			vc, err := NewGenerator(caller, nil).ForType(context.Background(), TypeWouldYouRather)
			require.NoError(t, err)
			assert.Equal(t, "Have wings", vc.MainText)
			assert.Equal(t, tt.want, vc.PercentageA)
		})
	}
}

func TestTopics_StringViralityScore(t *testing.T) {
	var topic Topic
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"x","virality_score":"8.5"}`), &topic))
	assert.Equal(t, Score(8.5), topic.ViralityScore)

	var ev ContentEvaluation
	require.NoError(t, json.Unmarshal([]byte(`{"overall":"7","scroll_stop":{"score":9.0}}`), &ev))
	assert.Equal(t, Score(7), ev.Overall)
	assert.Equal(t, Score(9), ev.ScrollStop.Score)
}

func TestTopic_Type(t *testing.T) {
	tests := []struct {
		in   string
		want VideoType
		ok   bool
	}{
		{"scary_fact", TypeScaryFacts, true},
		{"Money_Fact", TypeMoneyFacts, true},
		{"ai_quotes", TypeAIQuotes, true},
		{"wyr", TypeWouldYouRather, true},
		{"life_hack", "", false},
		{"random", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Topic{VideoType: tt.in}.Type()
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
