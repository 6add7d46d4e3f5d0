package contestlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/gridmapper/internal/refdata"
)

const cabrilloLog = `START-OF-LOG: 3.0
CALLSIGN: W1ABC
CONTEST: ARRL-VHF-JUN
GRID-LOCATOR: FN42
QSO:  50 PH 2024-06-08 1802 W1ABC FN42 K2XYZ FN31
QSO: 144 PH 2024-06-08 1810 W1ABC FN42 VE3AAA fn03
QSO: 432 PH 2024-06-08 1820 W1ABC FN42 N3QQ ZZ99
QSO: 1.2G PH 2024-06-08 1830 W1ABC FN42 W2XX
X-QSO: 50 PH 2024-06-08 1840 W1ABC FN42 K1ZZZ FN43
QSO: 14000 CW
END-OF-LOG:
`

const csvLog = `Log exported for W1ABC
Date,Time,Call,Freq,Mode,Grid,My_Grid,Continent
2024-06-08,1802,K2XYZ,50.125,SSB,FN31,FN42,
2024-06-08,1803,g4abc,14.074,FT8,io91,FN42,eu
2024-06-08,1804,,14.074,FT8,IO91,FN42,
2024-06-08,1805,JA1XYZ,99.9,FT8,PM95,FN42,
2024-06-08,1806,DL1ABC,14074,FT8,,FN42,
`

func TestDialectFor(t *testing.T) {
	tests := []struct {
		name string
		want Dialect
		ok   bool
	}{
		{"contest.cbr", LineOriented, true},
		{"CONTEST.LOG", LineOriented, true},
		{"export.csv", Columnar, true},
		{"contest_log", 0, false},
		{"notes.txt", 0, false},
	}

	for _, tt := range tests {
		got, ok := DialectFor(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.name)
		}
	}
}

func TestParse_Cabrillo(t *testing.T) {
	res, err := Parse([]byte(cabrilloLog), "contest.cbr", refdata.Default(), Options{})
	require.NoError(t, err)

	assert.Equal(t, LineOriented, res.Dialect)
	assert.Equal(t, "W1ABC", res.LogCallsign)
	assert.Equal(t, "FN42", res.OperatorGrid)
	assert.Equal(t, 1, res.Ignored)
	assert.Equal(t, 5, res.CandidateLines)
	assert.Equal(t, 1, res.FailedLines)

	require.Len(t, res.Records, 4)
	assert.Equal(t, "K2XYZ", res.Records[0].ContactCallsign)
	assert.Equal(t, "6m", res.Records[0].Band)
	assert.Equal(t, "FN31", res.Records[0].Grid)
	assert.Equal(t, 5, res.Records[0].LineNumber)
	assert.Equal(t, "W1ABC", res.Records[0].OperatorCallsign)

	assert.Equal(t, "VE3AAA", res.Records[1].ContactCallsign)
	assert.Equal(t, "2m", res.Records[1].Band)
	assert.Equal(t, "FN03", res.Records[1].Grid)

	// invalid and missing locators keep the record without a grid
	assert.Equal(t, "N3QQ", res.Records[2].ContactCallsign)
	assert.Empty(t, res.Records[2].Grid)
	assert.Equal(t, "23cm", res.Records[3].Band)
	assert.Empty(t, res.Records[3].Grid)
	assert.Equal(t, 2, res.ValidLocators())

	lines := make([]int, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		lines = append(lines, w.Line)
	}
	assert.Equal(t, []int{7, 8, 10}, lines)
	assert.Contains(t, res.Warnings[0].Message, `invalid locator "ZZ99"`)
}

func TestParse_CabrilloSenderFallback(t *testing.T) {
	log := "QSO: 14074 FT DATE TIME K1ABC/P JO31 DL1XYZ JO62\n"

	res, err := Parse([]byte(log), "x.log", refdata.Default(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "K1ABC/P", res.LogCallsign)
	assert.Equal(t, "JO31", res.OperatorGrid)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "DL1XYZ", res.Records[0].ContactCallsign)
	assert.Equal(t, "JO62", res.Records[0].Grid)
}

func TestParse_CSV(t *testing.T) {
	res, err := Parse([]byte(csvLog), "export.csv", refdata.Default(), Options{Callsign: "w1abc"})
	require.NoError(t, err)

	assert.Equal(t, Columnar, res.Dialect)
	assert.Equal(t, "FN42", res.OperatorGrid)
	assert.Equal(t, 5, res.CandidateLines)
	assert.Equal(t, 2, res.FailedLines)

	require.Len(t, res.Records, 3)
	assert.Equal(t, "K2XYZ", res.Records[0].ContactCallsign)
	assert.Equal(t, "6m", res.Records[0].Band)
	assert.Equal(t, 3, res.Records[0].LineNumber)

	assert.Equal(t, "G4ABC", res.Records[1].ContactCallsign)
	assert.Equal(t, "20m", res.Records[1].Band)
	assert.Equal(t, "IO91", res.Records[1].Grid)
	assert.Equal(t, "EU", res.Records[1].Continent)

	assert.Equal(t, "DL1ABC", res.Records[2].ContactCallsign)
	assert.Empty(t, res.Records[2].Grid)

	for _, r := range res.Records {
		assert.Equal(t, "W1ABC", r.OperatorCallsign)
	}
	assert.Len(t, res.Warnings, 3)
}

func TestParse_CSVWithoutHeader(t *testing.T) {
	res, err := Parse([]byte("a,b,c\n1,2,3\n"), "x.csv", refdata.Default(), Options{})
	assert.ErrorIs(t, err, ErrNoValidContacts)
	require.NotNil(t, res)
	assert.Empty(t, res.Records)
	require.NotEmpty(t, res.Warnings)
}

func TestParse_SniffsDialect(t *testing.T) {
	res, err := Parse([]byte(cabrilloLog), "upload", refdata.Default(), Options{})
	require.NoError(t, err)
	assert.Equal(t, LineOriented, res.Dialect)
	assert.False(t, res.FellBack)

	res, err = Parse([]byte(csvLog), "upload", refdata.Default(), Options{})
	require.NoError(t, err)
	assert.Equal(t, Columnar, res.Dialect)
	assert.False(t, res.FellBack)
}

func TestParse_FallsBackToColumnar(t *testing.T) {
	content := "START-OF-LOG: exported\ncall,band,grid\nK2XYZ,2m,FN31\nG4ABC,20m,IO91\n"

	res, err := Parse([]byte(content), "upload", refdata.Default(), Options{})
	require.NoError(t, err)
	assert.Equal(t, Columnar, res.Dialect)
	assert.True(t, res.FellBack)
	assert.Equal(t, 2, res.ValidLocators())
}

func TestParse_NoValidContacts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		hint    string
	}{
		{"empty", "", "log.cbr"},
		{"headers only", "START-OF-LOG: 3.0\nCALLSIGN: W1ABC\nEND-OF-LOG:\n", "log.cbr"},
		{"no locators", "QSO: 14000 CW 2024-01-01 0000 W1ABC 599 K2XYZ 599\n", "log.cbr"},
		{"garbage", "\x00\x01 not a log", "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse([]byte(tt.content), tt.hint, refdata.Default(), Options{})
			assert.ErrorIs(t, err, ErrNoValidContacts)
			assert.NotNil(t, res)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	for _, content := range []string{cabrilloLog, csvLog} {
		a, errA := Parse([]byte(content), "upload", refdata.Default(), Options{Callsign: "W1ABC"})
		b, errB := Parse([]byte(content), "upload", refdata.Default(), Options{Callsign: "W1ABC"})
		assert.Equal(t, errA, errB)
		assert.Equal(t, a, b)
	}
}

func TestParse_CRLF(t *testing.T) {
	content := "CALLSIGN: W1ABC\r\nQSO: 7000 CW 2024-01-01 0000 W1ABC K2XYZ FN31\r\n"

	res, err := Parse([]byte(content), "log.cbr", refdata.Default(), Options{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "40m", res.Records[0].Band)
	assert.Equal(t, 2, res.Records[0].LineNumber)
}

func TestIsCallsign(t *testing.T) {
	for _, call := range []string{"W1ABC", "K2XYZ", "VE3AAA", "DL1ABC/P", "VP2E/W1ABC", "9A1A"} {
		assert.True(t, IsCallsign(call), call)
	}
	for _, tok := range []string{"FN42", "FN42AB", "599", "5NN", "PH", "2024-06-08"} {
		assert.False(t, IsCallsign(tok), tok)
	}
}
