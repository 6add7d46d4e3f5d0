package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryString(t *testing.T) {
	tests := []struct {
		entry Entry
		want  string
	}{
		{Entry{Level: LevelInfo, Stage: StageDecode, Message: "read log.cbr"}, "[INFO] decode: read log.cbr"},
		{Entry{Level: LevelWarn, Stage: StageParse, Line: 7, Message: "invalid locator"}, "[WARN] parse: line 7: invalid locator"},
		{Entry{Level: LevelWarn, Stage: StageStore, Group: "20m/EU", Message: "timeout"}, "[WARN] store 20m/EU: timeout"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.entry.String())
	}
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	tr.Info(StageParse, "parsed %d contact(s)", 3)
	tr.WarnLine(StageParse, 4, "no locator logged")
	tr.Append(Entry{Level: LevelWarn, Stage: StageRender, Group: "6m/NA", Message: "failed"})

	assert.Equal(t, 2, tr.Warnings())
	assert.Equal(t,
		"[INFO] parse: parsed 3 contact(s)\n[WARN] parse: line 4: no locator logged\n[WARN] render 6m/NA: failed",
		tr.String())
}
