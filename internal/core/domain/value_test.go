package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValueKey_DiscriminatesKinds(t *testing.T) {
	// The same lexical payload under different kinds must never collide.
	str := ValueKey("item-1", StringValue("true"))
	boolean := ValueKey("item-1", BoolValue(true))
	assert.NotEqual(t, str, boolean)

	numStr := ValueKey("item-1", StringValue("42"))
	num := ValueKey("item-1", NumberValue(42))
	assert.NotEqual(t, numStr, num)
}

func TestValueKey_DiscriminatesItems(t *testing.T) {
	a := ValueKey("item-1", StringValue("Smith"))
	b := ValueKey("item-2", StringValue("Smith"))
	assert.NotEqual(t, a, b)
}

func TestValueKey_EqualValuesShareKeys(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Value
	}{
		{"string", StringValue("Smith"), StringValue("Smith")},
		{"number", NumberValue(42.5), NumberValue(42.5)},
		{"datetime", DatetimeValue(ts), DatetimeValue(ts.In(time.FixedZone("EST", -5*3600)))},
		{"bool", BoolValue(true), BoolValue(true)},
		{"attachment", AttachmentValue("att-1"), AttachmentValue("att-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, ValueKey("item-1", tt.a), ValueKey("item-1", tt.b))
			assert.Equal(t, ValueHash("item-1", tt.a), ValueHash("item-1", tt.b))
		})
	}
}

func TestValueKey_DatetimeIsUTCCanonical(t *testing.T) {
	utc := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))

	assert.Equal(t,
		ValueKey("item-1", DatetimeValue(utc)),
		ValueKey("item-1", DatetimeValue(est)))
}

func TestValueHash_DistinctForDistinctValues(t *testing.T) {
	a := ValueHash("item-1", StringValue("Smith"))
	b := ValueHash("item-1", StringValue("Smyth"))
	assert.NotEqual(t, a, b)
}

func TestValueKind(t *testing.T) {
	assert.Equal(t, KindString, StringValue("x").Kind())
	assert.Equal(t, KindNumber, NumberValue(1).Kind())
	assert.Equal(t, KindDatetime, DatetimeValue(time.Now()).Kind())
	assert.Equal(t, KindBool, BoolValue(false).Kind())
	assert.Equal(t, KindAttachment, AttachmentValue("att-1").Kind())
}
