package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/models"
)

func contact(call, band, grid string, line int) models.ContactRecord {
	return models.ContactRecord{
		OperatorCallsign: "W1ABC",
		ContactCallsign:  call,
		Band:             band,
		Grid:             grid,
		LineNumber:       line,
	}
}

func located(t *testing.T, contacts ...models.ContactRecord) []models.ContactRecord {
	t.Helper()
	unresolved := Locate(contacts, refdata.Default())
	require.Empty(t, unresolved)
	return contacts
}

func TestLocate(t *testing.T) {
	contacts := []models.ContactRecord{
		contact("K2XYZ", "20m", "FN20", 1),
		contact("G4ABC", "20m", "JO31", 2),
		contact("W2XX", "20m", "", 3),
		{ContactCallsign: "VK2AA", Band: "20m", Grid: "QF56", Continent: "OC", LineNumber: 4},
		{ContactCallsign: "ZS6A", Band: "20m", Grid: "KG33", Continent: "XX", LineNumber: 5},
	}

	unresolved := Locate(contacts, refdata.Default())

	require.Len(t, unresolved, 1)
	assert.Equal(t, 5, unresolved[0].Line)
	assert.Contains(t, unresolved[0].Reason, "unknown continent")

	assert.Equal(t, "NA", contacts[0].Continent)
	require.NotNil(t, contacts[0].Location)
	assert.InDelta(t, 40.5, contacts[0].Location.Lat, 1e-9)
	assert.InDelta(t, -75.0, contacts[0].Location.Lon, 1e-9)

	assert.Equal(t, "EU", contacts[1].Continent)
	assert.False(t, contacts[2].Located())
	assert.Equal(t, "OC", contacts[3].Continent)
	assert.Equal(t, "AF", contacts[4].Continent)
}

func TestClassify_AllScope(t *testing.T) {
	contacts := located(t,
		contact("G4ABC", "20m", "JO31", 1),
		contact("K2XYZ", "40m", "FN20", 2),
		contact("VE3AAA", "20m", "FN03", 3),
		contact("W2XX", "40m", "", 4),
	)

	res := Classify(contacts, nil, refdata.Default())

	require.Len(t, res.Groups, 2)
	assert.Equal(t, "40m", res.Groups[0].Band)
	assert.Equal(t, models.ScopeAll, res.Groups[0].Scope)
	assert.Len(t, res.Groups[0].Contacts, 1)
	assert.Equal(t, "20m", res.Groups[1].Band)
	assert.Equal(t, models.ScopeAll, res.Groups[1].Scope)
	assert.Len(t, res.Groups[1].Contacts, 2)
	assert.Equal(t, 1, res.Unlocated)
	assert.Empty(t, res.Excluded)
}

func TestClassify_ContinentScopes(t *testing.T) {
	contacts := located(t,
		contact("G4ABC", "20m", "JO31", 1),
		contact("K2XYZ", "20m", "FN20", 2),
		contact("DL1AA", "2m", "JO62", 3),
		contact("JA1XYZ", "20m", "PM95", 4),
		contact("W3AA", "40m", "FM19", 5),
	)

	res := Classify(contacts, []string{"NA", "EU", "eu"}, refdata.Default())

	var got []string
	for _, g := range res.Groups {
		assert.NotEqual(t, models.ScopeAll, g.Scope)
		got = append(got, g.Band+"/"+g.Scope)
	}
	assert.Equal(t, []string{"40m/NA", "20m/EU", "20m/NA", "2m/EU"}, got)
	assert.Equal(t, []string{"EU", "NA"}, res.Requested)

	require.Len(t, res.Excluded, 1)
	assert.Equal(t, Exclusion{Band: "20m", Count: 1}, res.Excluded[0])
	assert.Equal(t, "1 contact(s) on 20m outside requested continents (EU, NA)", res.ExclusionMessage(res.Excluded[0]))
}

func TestClassify_TwoBandsOneContinent(t *testing.T) {
	contacts := located(t,
		contact("G4ABC", "20m", "JO31", 1),
		contact("DL1AA", "20m", "JO62", 2),
		contact("K2XYZ", "40m", "FN20", 3),
	)

	res := Classify(contacts, []string{"EU"}, refdata.Default())

	require.Len(t, res.Groups, 1)
	assert.Equal(t, "20m", res.Groups[0].Band)
	assert.Equal(t, "EU", res.Groups[0].Scope)
	assert.Len(t, res.Groups[0].Contacts, 2)

	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "1 contact(s) on 40m outside requested continents (EU)", res.ExclusionMessage(res.Excluded[0]))
}

func TestClassify_PreservesInputOrder(t *testing.T) {
	contacts := located(t,
		contact("C", "20m", "JO31", 1),
		contact("A", "20m", "JO62", 2),
		contact("B", "20m", "IO91", 3),
	)

	res := Classify(contacts, nil, refdata.Default())
	require.Len(t, res.Groups, 1)

	var calls []string
	for _, c := range res.Groups[0].Contacts {
		calls = append(calls, c.ContactCallsign)
	}
	assert.Equal(t, []string{"C", "A", "B"}, calls)
}

func TestClassify_Empty(t *testing.T) {
	res := Classify(nil, []string{"EU"}, refdata.Default())
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.Excluded)
}
