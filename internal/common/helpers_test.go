package common

import (
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaperID(t *testing.T) {
	id, err := ParsePaperID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), id)

	for _, bad := range []string{"", "MATH101", "-1", "1.5", "0x10"} {
		_, err := ParsePaperID(bad)
		assert.Error(t, err, bad)
	}

	over := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = ParsePaperID(over.String())
	assert.Error(t, err)
}

func TestExamStartEpoch(t *testing.T) {
	got, err := ExamStartEpoch("2025-01-01", "00:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1735689600), got)

	got, err = ExamStartEpoch("2025-01-01", "09:30:15", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, int64(1735689600+9*3600+30*60+15), got)

	kolkata := time.FixedZone("IST", 5*3600+1800)
	got, err = ExamStartEpoch("2025-01-01", "05:30", kolkata)
	require.NoError(t, err)
	assert.Equal(t, int64(1735689600), got)
}

func TestExamStartEpoch_Incomplete(t *testing.T) {
	_, err := ExamStartEpoch("2025-01-01", "", time.UTC)
	assert.Error(t, err)
	_, err = ExamStartEpoch("", "10:00", time.UTC)
	assert.Error(t, err)
	_, err = ExamStartEpoch("01/01/2025", "10:00", time.UTC)
	assert.Error(t, err)
}

func TestQRCode(t *testing.T) {
	png, err := QRCode("https://gateway.pinata.cloud/ipfs/Qm123")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(png)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), raw[:4])
}
