// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregm711/aider/pkg/types"
)

func TestParse_SearchReplace_SingleBlock(t *testing.T) {
	response := `I will update the retry count.

config.yaml
<<<<<<< SEARCH
retries: 3
=======
retries: 5
>>>>>>> REPLACE

Done.`

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)

	sr, ok := result.Directives[0].(types.SearchReplace)
	require.True(t, ok)
	assert.Equal(t, "config.yaml", sr.FilePath)
	assert.Equal(t, "retries: 3\n", sr.Search)
	assert.Equal(t, "retries: 5\n", sr.Replace)
	assert.Contains(t, result.ReasoningText, "I will update the retry count.")
	assert.Empty(t, result.Failures)
}

func TestParse_SearchReplace_MultipleBlocksPreserveOrder(t *testing.T) {
	response := "a.go\n<<<<<<< SEARCH\nfirst\n=======\nFIRST\n>>>>>>> REPLACE\n" +
		"a.go\n<<<<<<< SEARCH\nsecond\n=======\nSECOND\n>>>>>>> REPLACE\n" +
		"b.go\n<<<<<<< SEARCH\nthird\n=======\nTHIRD\n>>>>>>> REPLACE\n"

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)
	require.Len(t, result.Directives, 3)

	assert.Equal(t, "first\n", result.Directives[0].(types.SearchReplace).Search)
	assert.Equal(t, "second\n", result.Directives[1].(types.SearchReplace).Search)
	assert.Equal(t, "b.go", result.Directives[2].TargetPath())
}

func TestParse_SearchReplace_MalformedSiblingDoesNotDropValid(t *testing.T) {
	response := `<<<<<<< SEARCH
orphan without path
=======
fix
>>>>>>> REPLACE

b.go
<<<<<<< SEARCH
ok
=======
OK
>>>>>>> REPLACE`

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)

	require.Len(t, result.Directives, 1, "the valid sibling must survive")
	assert.Equal(t, "b.go", result.Directives[0].TargetPath())

	require.Len(t, result.Failures, 1)
	assert.Equal(t, MalformedBlock, result.Failures[0].Kind)
	assert.Equal(t, 2, result.BlocksFound)
	assert.Equal(t, 1, result.BlocksParsed)
}

func TestParse_SearchReplace_TruncatedBlock(t *testing.T) {
	response := `a.go
<<<<<<< SEARCH
old text
=======
new text`

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)
	assert.Empty(t, result.Directives)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, TruncatedInput, result.Failures[0].Kind)
	assert.Equal(t, 2, result.Failures[0].Line)
}

func TestParse_SearchReplace_StrayReplaceMarker(t *testing.T) {
	response := `some reasoning
>>>>>>> REPLACE

a.go
<<<<<<< SEARCH
x
=======
y
>>>>>>> REPLACE`

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)

	var stray bool
	for _, f := range result.Failures {
		if f.Kind == UnknownFormatMarker {
			stray = true
		}
	}
	assert.True(t, stray, "stray REPLACE marker must be reported")
}

func TestParse_SearchReplace_OnlyStrayMarkerStillReportsFailure(t *testing.T) {
	response := "here is my edit\n>>>>>>> REPLACE\n"

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Directives)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, UnknownFormatMarker, result.Failures[0].Kind)
}

func TestParse_SearchReplace_EmptySearchMeansAppend(t *testing.T) {
	response := `notes.txt
<<<<<<< SEARCH
=======
appended line
>>>>>>> REPLACE`

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)

	sr := result.Directives[0].(types.SearchReplace)
	assert.Equal(t, "", sr.Search)
	assert.Equal(t, "appended line\n", sr.Replace)
}

func TestParse_SearchReplace_MarkdownFencedBlock(t *testing.T) {
	response := "Here is the fix:\n\nmain.go\n```go\n<<<<<<< SEARCH\nfoo()\n=======\nbar()\n>>>>>>> REPLACE\n```\n"

	result, err := Parse(response, types.FormatSearchReplace)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)
	assert.Equal(t, "main.go", result.Directives[0].TargetPath())
}

func TestParse_NoEdits(t *testing.T) {
	for _, format := range []types.EditFormat{types.FormatSearchReplace, types.FormatWholeFile, types.FormatUnifiedDiff} {
		t.Run(string(format), func(t *testing.T) {
			_, err := Parse("just some prose, no edits here", format)
			var noEdits *NoEditsFoundError
			assert.ErrorAs(t, err, &noEdits)
		})
	}
}

func TestParse_EmptyResponse(t *testing.T) {
	_, err := Parse("   \n\t\n", types.FormatSearchReplace)
	var noEdits *NoEditsFoundError
	assert.ErrorAs(t, err, &noEdits)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse("anything", types.EditFormat("bogus"))
	assert.Error(t, err)
}

func TestParse_WholeFile(t *testing.T) {
	response := "Rewriting the config.\n\nconfig.yaml\n```yaml\ntimeout: 60\nretries: 5\n```\n"

	result, err := Parse(response, types.FormatWholeFile)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)

	wf, ok := result.Directives[0].(types.WholeFile)
	require.True(t, ok)
	assert.Equal(t, "config.yaml", wf.FilePath)
	assert.Equal(t, "timeout: 60\nretries: 5\n", wf.Content)
}

func TestParse_WholeFile_MissingPath(t *testing.T) {
	response := "Some prose that is clearly not a path\n```\ncontent\n```\n"

	result, err := Parse(response, types.FormatWholeFile)
	require.NoError(t, err)
	assert.Empty(t, result.Directives)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, MalformedBlock, result.Failures[0].Kind)
}

func TestParse_WholeFile_UnclosedFence(t *testing.T) {
	response := "main.go\n```go\npackage main\n"

	result, err := Parse(response, types.FormatWholeFile)
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, TruncatedInput, result.Failures[0].Kind)
}

func TestParse_UnifiedDiff(t *testing.T) {
	response := `--- a/main.go
+++ b/main.go
@@ -3,3 +3,3 @@
 func main() {
-	old()
+	new()
 }
`

	result, err := Parse(response, types.FormatUnifiedDiff)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)

	ud, ok := result.Directives[0].(types.UnifiedDiff)
	require.True(t, ok)
	assert.Equal(t, "main.go", ud.FilePath)
	require.Len(t, ud.Hunks, 1)

	h := ud.Hunks[0]
	assert.Equal(t, 3, h.OldStart)
	require.Len(t, h.Lines, 4)
	assert.Equal(t, types.HunkDelete, h.Lines[1].Op)
	assert.Equal(t, "\told()", h.Lines[1].Text)
	assert.Equal(t, types.HunkAdd, h.Lines[2].Op)
}

func TestParse_UnifiedDiff_MultipleHunksOneDirective(t *testing.T) {
	response := `--- a/f.go
+++ b/f.go
@@ -1,2 +1,2 @@
-a
+A
 b
@@ -10,2 +10,2 @@
 x
-y
+Y
`

	result, err := Parse(response, types.FormatUnifiedDiff)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)
	assert.Len(t, result.Directives[0].(types.UnifiedDiff).Hunks, 2)
}

func TestParse_UnifiedDiff_MissingPlusHeader(t *testing.T) {
	response := "--- a/f.go\n@@ -1 +1 @@\n-a\n+b\n"

	result, err := Parse(response, types.FormatUnifiedDiff)
	require.NoError(t, err)
	assert.Empty(t, result.Directives)
	require.NotEmpty(t, result.Failures)
	assert.Equal(t, MalformedBlock, result.Failures[0].Kind)
}

func TestParse_UnifiedDiff_FencedAndWithProse(t *testing.T) {
	response := "The change:\n\n```diff\n--- a/x.py\n+++ b/x.py\n@@ -1,1 +1,1 @@\n-print(1)\n+print(2)\n```\nThat's it.\n"

	result, err := Parse(response, types.FormatUnifiedDiff)
	require.NoError(t, err)
	require.Len(t, result.Directives, 1)
	assert.Equal(t, "x.py", result.Directives[0].TargetPath())
	assert.Contains(t, result.ReasoningText, "The change:")
}
