package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/codemask/core/checksum"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
)

func TestInspect(t *testing.T) {
	good := "a\nb\n"
	src := "head\n" +
		"<< codegen one >>\n" + good + "<< /codegen " + hexPrefix(good, 4) + " >>\n" +
		"mid\n" +
		"<< codegen two >>\nedited\n<< /codegen 0000 >>\n" +
		"<< codegen three >>\n<< /codegen >>\n"

	reports, err := Inspect(src)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "one", reports[0].Identifier)
	assert.Equal(t, 2, reports[0].Line)
	assert.Equal(t, 2, reports[0].Lines)
	assert.Equal(t, 4, reports[0].Stored.Len())
	assert.Equal(t, checksum.Sum([]byte(good)), reports[0].Actual)
	assert.True(t, reports[0].Verified)

	assert.Equal(t, "two", reports[1].Identifier)
	assert.Equal(t, 7, reports[1].Line)
	assert.Equal(t, 1, reports[1].Lines)
	assert.False(t, reports[1].Verified)

	assert.Equal(t, "three", reports[2].Identifier)
	assert.Equal(t, 0, reports[2].Lines)
	assert.True(t, reports[2].Stored.IsEmpty())
	assert.True(t, reports[2].Verified)
}

func TestInspectSyntaxError(t *testing.T) {
	_, err := Inspect("<< /codegen >>\n")
	require.ErrorIs(t, err, apperrors.ErrSyntax)
}

func TestCheck(t *testing.T) {
	code := "x\n"
	src := "<< codegen a >>\n" + code + "<< /codegen " + hexPrefix(code, 8) + " >>\n"

	changed, err := Check(src, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = Check(src, Config{ChecksumBytesToStore: 2})
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = Check("<< codegen a >>\ny\n"+"<< /codegen "+hexPrefix(code, 8)+" >>\n", DefaultConfig())
	require.ErrorIs(t, err, apperrors.ErrWrongChecksum)
}
