package common

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	examDateLayout = "2006-01-02"
	examTimeLayout = "15:04"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParsePaperID converts the operator's paper id to the contract's uint256 key.
// Example: ParsePaperID("42") = 42
func ParsePaperID(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("paper id is empty")
	}

	id, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("paper id %q is not a decimal number", s)
	}
	if id.Sign() < 0 || id.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("paper id %q out of range", s)
	}
	return id, nil
}

// ExamStartEpoch combines a date (YYYY-MM-DD) and a wall-clock time (HH:MM or HH:MM:SS)
// in loc into Unix seconds.
// Example: ExamStartEpoch("2025-01-01", "00:00", time.UTC) = 1735689600
func ExamStartEpoch(date, clock string, loc *time.Location) (int64, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return 0, fmt.Errorf("exam date and time are both required")
	}
	if loc == nil {
		loc = time.Local
	}

	layout := examDateLayout + " " + examTimeLayout
	if strings.Count(clock, ":") == 2 {
		layout += ":05"
	}

	t, err := time.ParseInLocation(layout, date+" "+clock, loc)
	if err != nil {
		return 0, fmt.Errorf("invalid exam date/time %q %q: %w", date, clock, err)
	}
	return t.Unix(), nil
}
