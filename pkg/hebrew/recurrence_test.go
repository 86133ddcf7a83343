package hebrew

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateRRULEDaily(t *testing.T) {
	rule, ok := GenerateRRULE("כל יום")
	require.True(t, ok)
	require.Equal(t, "FREQ=DAILY", rule)
}

func TestGenerateRRULEMonthly(t *testing.T) {
	rule, ok := GenerateRRULE("ב-5 לכל חודש")
	require.True(t, ok)
	require.Equal(t, "FREQ=MONTHLY;BYMONTHDAY=5", rule)
}

func TestExpandRRULEDaily(t *testing.T) {
	loc := mustLocation(t)
	anchor := time.Date(2025, 10, 10, 9, 0, 0, 0, loc)
	from := anchor
	until := anchor.AddDate(0, 0, 3)
	instances, err := ExpandRRULE("FREQ=DAILY", anchor, from, until)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	require.Equal(t, 10, instances[0].In(loc).Day())
	require.Equal(t, 11, instances[1].In(loc).Day())
	require.Equal(t, 12, instances[2].In(loc).Day())
}

func TestExpandRRULEMonthly(t *testing.T) {
	loc := mustLocation(t)
	anchor := time.Date(2025, 1, 5, 9, 0, 0, 0, loc)
	from := anchor
	until := anchor.AddDate(0, 3, 0)
	instances, err := ExpandRRULE("FREQ=MONTHLY;BYMONTHDAY=5", anchor, from, until)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	for _, inst := range instances {
		require.Equal(t, 5, inst.In(loc).Day())
	}
}
