package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/askfit/internal/schema"
)

func TestBuildPrompt_ContainsSchemaAndQuestion(t *testing.T) {
	sch, err := schema.Load()
	require.NoError(t, err)

	prompt := BuildPrompt(sch, "How far did I run last week?")

	assert.Contains(t, prompt, "garmin_active_cal_data")
	for _, col := range sch.Columns {
		assert.Contains(t, prompt, col.Name)
	}
	assert.Contains(t, prompt, "<english_query> How far did I run last week? </english_query>")
	assert.Contains(t, prompt, "today() - toIntervalDay(X)")
	assert.Contains(t, prompt, "sql_grammar")
}

func TestBuildPrompt_WarnsAboutUnfilterableColumns(t *testing.T) {
	sch, err := schema.Load()
	require.NoError(t, err)

	prompt := BuildPrompt(sch, "anything")
	assert.Contains(t, prompt, "Do not write WHERE conditions on activity_type")
}

func TestNormalizeQuestion_TrimsAndNormalizes(t *testing.T) {
	assert.Equal(t, "hello", NormalizeQuestion("  hello \n"))

	// NFC composes "e" + combining acute into a single rune.
	decomposed := "café"
	composed := "café"
	assert.Equal(t, composed, NormalizeQuestion(decomposed))
}

func TestBuildPrompt_StableForSameInput(t *testing.T) {
	sch, err := schema.Load()
	require.NoError(t, err)

	a := BuildPrompt(sch, "total steps?")
	b := BuildPrompt(sch, "total steps?")
	assert.Equal(t, a, b)
}
