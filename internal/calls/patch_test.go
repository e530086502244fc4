package calls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func outcomePtr(o Outcome) *Outcome { return &o }

var callTime = time.Date(2024, 3, 10, 10, 15, 0, 0, time.UTC)

func metadata() MetadataPatch {
	return MetadataPatch{
		DeviceID:    "dev-1",
		PhoneNumber: "+919800000001",
		CallStatus:  CallStatusAnswered,
		Duration:    intPtr(95),
		Timestamp:   callTime,
	}
}

func outcome() OutcomePatch {
	return OutcomePatch{
		DeviceID:          "dev-1",
		CustomerName:      strPtr("Hotel Sunrise"),
		Outcome:           outcomePtr(OutcomeOrdered),
		ProductQuantities: map[string]int{"Towel": 20},
		NeedBranding:      true,
	}
}

func recording() RecordingPatch {
	return RecordingPatch{DeviceID: "dev-1", RecordingURL: "https://cdn.example.com/r.m4a"}
}

func apply(order ...func(*CallEvent)) CallEvent {
	e := CallEvent{CallID: "c1", ProductQuantities: map[string]int{}}
	for _, f := range order {
		f(&e)
	}
	return e
}

func TestPatches_ConvergeInAnyOrder(t *testing.T) {
	m, o, r := metadata().Apply, outcome().Apply, recording().Apply

	want := apply(m, o, r)
	orders := [][]func(*CallEvent){
		{m, r, o},
		{o, m, r},
		{o, r, m},
		{r, m, o},
		{r, o, m},
	}
	for i, seq := range orders {
		assert.Equal(t, want, apply(seq...), "order %d", i)
	}

	assert.Equal(t, "https://cdn.example.com/r.m4a", want.RecordingURL)
	assert.Equal(t, 95, want.Duration)
	require.NotNil(t, want.Outcome)
	assert.Equal(t, OutcomeOrdered, *want.Outcome)
}

func TestPatches_Idempotent(t *testing.T) {
	m, o, r := metadata().Apply, outcome().Apply, recording().Apply
	once := apply(m, o, r)
	twice := apply(m, o, r, m, o, r)
	assert.Equal(t, once, twice)
}

func TestMetadataPatch_EmptyRecordingURLDoesNotErase(t *testing.T) {
	e := apply(recording().Apply, metadata().Apply)
	assert.Equal(t, "https://cdn.example.com/r.m4a", e.RecordingURL)
}

func TestMetadataPatch_OmittedDurationKeepsStored(t *testing.T) {
	p := metadata()
	p.Duration = nil
	e := apply(metadata().Apply, p.Apply)
	assert.Equal(t, 95, e.Duration)
}

func TestOutcomePatch_AbsentFieldsKeepStored(t *testing.T) {
	later := OutcomePatch{Remarks: strPtr("call back friday")}
	e := apply(outcome().Apply, later.Apply)

	assert.Equal(t, "Hotel Sunrise", e.CustomerName)
	require.NotNil(t, e.Outcome)
	assert.Equal(t, OutcomeOrdered, *e.Outcome)
	assert.Equal(t, "call back friday", e.Remarks)
	// the form always sends its product and branding state
	assert.Empty(t, e.ProductQuantities)
	assert.False(t, e.NeedBranding)
}

func TestOutcomePatch_FollowUpClearedWhenPresentButEmpty(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	set := OutcomePatch{FollowUpSet: true, FollowUpDate: &d}
	clear := OutcomePatch{FollowUpSet: true}
	absent := OutcomePatch{}

	e := apply(set.Apply)
	require.NotNil(t, e.FollowUpDate)
	e = apply(set.Apply, absent.Apply)
	require.NotNil(t, e.FollowUpDate)
	e = apply(set.Apply, clear.Apply)
	assert.Nil(t, e.FollowUpDate)
}

func TestOutcomePatch_CopiesQuantities(t *testing.T) {
	p := outcome()
	e := apply(p.Apply)
	p.ProductQuantities["Towel"] = 1
	assert.Equal(t, 20, e.ProductQuantities["Towel"])
}

func TestHasOutcomeData(t *testing.T) {
	assert.False(t, apply(metadata().Apply).HasOutcomeData())
	assert.False(t, apply(metadata().Apply, OutcomePatch{}.Apply).HasOutcomeData())
	assert.True(t, apply(OutcomePatch{Outcome: outcomePtr(OutcomeNoInteraction)}.Apply).HasOutcomeData())
	assert.True(t, apply(OutcomePatch{Distributor: strPtr("Sharma Traders")}.Apply).HasOutcomeData())
}

func TestParseCallStatus(t *testing.T) {
	s, err := ParseCallStatus(" ANSWERED ")
	require.NoError(t, err)
	assert.Equal(t, CallStatusAnswered, s)

	_, err = ParseCallStatus("voicemail")
	assert.Error(t, err)
}

func TestParseOutcome(t *testing.T) {
	o, err := ParseOutcome("call later")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCallLater, o)

	_, err = ParseOutcome("Maybe")
	assert.Error(t, err)
}

func TestStatusClassification(t *testing.T) {
	cases := map[CallStatus][2]bool{
		CallStatusAnswered: {true, false},
		CallStatusOutgoing: {true, false},
		CallStatusMissed:   {false, true},
		CallStatusRejected: {false, true},
		CallStatusIncoming: {false, true},
		CallStatusBlocked:  {false, true},
	}
	for s, want := range cases {
		assert.Equal(t, want[0], s.IsAnswered(), string(s))
		assert.Equal(t, want[1], s.IsMissed(), string(s))
	}
}
