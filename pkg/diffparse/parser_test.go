package diffparse_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/m-mizutani/devlens/pkg/diffparse"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func lines(v ...string) string {
	return strings.Join(v, "\n") + "\n"
}

var addedAndDeleted = lines(
	"diff --git a/new.txt b/new.txt",
	"new file mode 100644",
	"index 0000000..e69de29",
	"--- /dev/null",
	"+++ b/new.txt",
	"@@ -0,0 +1,5 @@",
	"+a",
	"+b",
	"+c",
	"+d",
	"+e",
	"diff --git a/old.txt b/old.txt",
	"deleted file mode 100644",
	"index 1111111..0000000",
	"--- a/old.txt",
	"+++ /dev/null",
	"@@ -1,3 +0,0 @@",
	"-x",
	"-y",
	"-z",
)

func TestParseAddedAndDeleted(t *testing.T) {
	stats := gt.R1(diffparse.ParsePullRequestStats(addedAndDeleted)).NoError(t)

	gt.A(t, stats.FilesChanged).Length(2)
	gt.V(t, stats.TotalAdditions).Equal(5)
	gt.V(t, stats.TotalDeletions).Equal(3)
	gt.False(t, stats.MergeCommit)

	gt.V(t, stats.FilesChanged[0]).Equal(model.FileChange{
		Path:       "new.txt",
		LinesAdded: 5,
		ChangeType: types.ChangeAdded,
	})
	gt.V(t, stats.FilesChanged[1]).Equal(model.FileChange{
		Path:         "old.txt",
		LinesDeleted: 3,
		ChangeType:   types.ChangeDeleted,
	})
}

func TestParseModifiedMultipleHunks(t *testing.T) {
	diff := lines(
		"diff --git a/main.go b/main.go",
		"index 83db48f..bf269f4 100644",
		"--- a/main.go",
		"+++ b/main.go",
		"@@ -1,4 +1,5 @@",
		" package main",
		" ",
		`+import "fmt"`,
		" func main() {",
		`-	println("hi")`,
		`+	fmt.Println("hi")`,
		"@@ -10,2 +11,2 @@ func other() {",
		"-	a := 1",
		"+	a := 2",
		" }",
	)

	result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
	gt.A(t, result.Files).Length(1)
	gt.V(t, result.SkippedSections).Equal(0)
	gt.V(t, result.Files[0]).Equal(model.FileChange{
		Path:         "main.go",
		LinesAdded:   3,
		LinesDeleted: 2,
		ChangeType:   types.ChangeModified,
	})
}

func TestParseRename(t *testing.T) {
	t.Run("rename with content change", func(t *testing.T) {
		diff := lines(
			"diff --git a/old/name.go b/new/name.go",
			"similarity index 90%",
			"rename from old/name.go",
			"rename to new/name.go",
			"index 1111111..2222222 100644",
			"--- a/old/name.go",
			"+++ b/new/name.go",
			"@@ -1,1 +1,1 @@",
			"-a",
			"+b",
		)
		result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
		gt.A(t, result.Files).Length(1)
		gt.V(t, result.Files[0]).Equal(model.FileChange{
			Path:         "new/name.go",
			OldPath:      "old/name.go",
			LinesAdded:   1,
			LinesDeleted: 1,
			ChangeType:   types.ChangeRenamed,
		})
	})

	t.Run("pure rename", func(t *testing.T) {
		diff := lines(
			"diff --git a/a.txt b/b.txt",
			"similarity index 100%",
			"rename from a.txt",
			"rename to b.txt",
		)
		result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
		gt.A(t, result.Files).Length(1)
		gt.V(t, result.Files[0].ChangeType).Equal(types.ChangeRenamed)
		gt.V(t, result.Files[0].OldPath).Equal("a.txt")
		gt.V(t, result.Files[0].LinesAdded).Equal(0)
	})

	t.Run("delete and add without markers stay separate", func(t *testing.T) {
		diff := lines(
			"diff --git a/a.txt b/a.txt",
			"deleted file mode 100644",
			"--- a/a.txt",
			"+++ /dev/null",
			"@@ -1 +0,0 @@",
			"-same",
			"diff --git a/b.txt b/b.txt",
			"new file mode 100644",
			"--- /dev/null",
			"+++ b/b.txt",
			"@@ -0,0 +1 @@",
			"+same",
		)
		result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
		gt.A(t, result.Files).Length(2)
		gt.V(t, result.Files[0].ChangeType).Equal(types.ChangeDeleted)
		gt.V(t, result.Files[1].ChangeType).Equal(types.ChangeAdded)
	})
}

func TestParseBinary(t *testing.T) {
	diff := lines(
		"diff --git a/logo.png b/logo.png",
		"new file mode 100644",
		"index 0000000..abcdef1",
		"Binary files /dev/null and b/logo.png differ",
		"diff --git a/icon.png b/icon.png",
		"index 1111111..2222222 100644",
		"GIT binary patch",
		"literal 10",
		"zcmZ?wbhPJ",
		"",
		"literal 0",
		"HcmV?d00001",
		"",
		"diff --git a/README.md b/README.md",
		"--- a/README.md",
		"+++ b/README.md",
		"@@ -1 +1,2 @@",
		" # title",
		"+more",
	)

	result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
	gt.A(t, result.Files).Length(3)
	gt.V(t, result.Files[0]).Equal(model.FileChange{
		Path:       "logo.png",
		ChangeType: types.ChangeAdded,
		Binary:     true,
	})
	gt.True(t, result.Files[1].Binary)
	gt.V(t, result.Files[1].ChangeType).Equal(types.ChangeModified)
	gt.V(t, result.Files[2].LinesAdded).Equal(1)
}

func TestParsePlainUnifiedDiff(t *testing.T) {
	diff := lines(
		"--- a/file.txt\t2024-01-01 00:00:00.000000000 +0000",
		"+++ b/file.txt\t2024-01-02 00:00:00.000000000 +0000",
		"@@ -1 +1,2 @@",
		" keep",
		"+new",
		"--- other.txt",
		"+++ other.txt",
		"@@ -1,2 +1 @@",
		"-gone",
		" stay",
	)

	result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
	gt.A(t, result.Files).Length(2)
	gt.V(t, result.Files[0]).Equal(model.FileChange{
		Path:       "file.txt",
		LinesAdded: 1,
		ChangeType: types.ChangeModified,
	})
	gt.V(t, result.Files[1]).Equal(model.FileChange{
		Path:         "other.txt",
		LinesDeleted: 1,
		ChangeType:   types.ChangeModified,
	})
}

func TestParseCombinedDiff(t *testing.T) {
	diff := lines(
		"diff --cc conflict.go",
		"index 1111111,2222222..3333333",
		"--- a/conflict.go",
		"+++ b/conflict.go",
		"@@@ -1,2 -1,2 +1,3 @@@",
		"  common",
		"- ours",
		" -theirs",
		"++merged",
		"++extra",
	)

	stats := gt.R1(diffparse.ParsePullRequestStats(diff)).NoError(t)
	gt.True(t, stats.MergeCommit)
	gt.A(t, stats.FilesChanged).Length(1)
	gt.V(t, stats.TotalAdditions).Equal(2)
	gt.V(t, stats.TotalDeletions).Equal(2)
	gt.V(t, stats.FilesChanged[0].Path).Equal("conflict.go")
}

func TestParseFormatPatch(t *testing.T) {
	diff := lines(
		"From 5a1b2c3d Mon Sep 17 00:00:00 2001",
		"From: Alice <alice@example.com>",
		"Subject: [PATCH] update",
		"",
		"---",
		" a.go | 2 +-",
		" 1 file changed, 1 insertion(+), 1 deletion(-)",
		"",
		"diff --git a/a.go b/a.go",
		"index 1111111..2222222 100644",
		"--- a/a.go",
		"+++ b/a.go",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"-- ",
		"2.40.0",
	)

	result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
	gt.A(t, result.Files).Length(1)
	gt.V(t, result.Files[0].LinesAdded).Equal(1)
	gt.V(t, result.Files[0].LinesDeleted).Equal(1)
}

func TestParseSkipsBrokenSections(t *testing.T) {
	valid := lines(
		"diff --git a/ok.go b/ok.go",
		"--- a/ok.go",
		"+++ b/ok.go",
		"@@ -1 +1,2 @@",
		" a",
		"+b",
	)

	testCases := map[string]string{
		"truncated before next section": lines(
			"diff --git a/cut.go b/cut.go",
			"--- a/cut.go",
			"+++ b/cut.go",
			"@@ -1,3 +1,3 @@",
			" x",
			"-y",
		) + valid,
		"truncated at end of input": valid + lines(
			"diff --git a/cut.go b/cut.go",
			"--- a/cut.go",
			"+++ b/cut.go",
			"@@ -1,3 +1,4 @@",
			" x",
			"+y",
		),
		"cut inside file header": lines(
			"diff --git a/x.go b/x.go",
			"index 1111111..2222222 100644",
			"--- a/x.go",
		) + valid,
		"cut after index line": valid + lines(
			"diff --git a/x.go b/x.go",
			"index 1111111..2222222 100644",
		),
		"file header without hunks": valid + lines(
			"diff --git a/x.go b/x.go",
			"index 1111111..2222222 100644",
			"--- a/x.go",
			"+++ b/x.go",
		),
		"broken hunk header": lines(
			"diff --git a/bad.go b/bad.go",
			"--- a/bad.go",
			"+++ b/bad.go",
			"@@ broken @@",
			"+x",
		) + valid,
		"invalid body line": lines(
			"diff --git a/bad.go b/bad.go",
			"--- a/bad.go",
			"+++ b/bad.go",
			"@@ -1,2 +1,2 @@",
			"?garbage",
			" x",
		) + valid,
	}

	for name, diff := range testCases {
		t.Run(name, func(t *testing.T) {
			result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
			gt.V(t, result.SkippedSections).Equal(1)
			gt.A(t, result.Files).Length(1)
			gt.V(t, result.Files[0].Path).Equal("ok.go")
			gt.V(t, result.Files[0].LinesAdded).Equal(1)
		})
	}
}

func TestParseHeaderOnlySections(t *testing.T) {
	diff := lines(
		"diff --git a/run.sh b/run.sh",
		"old mode 100644",
		"new mode 100755",
		"diff --git a/x.go b/x.go",
		"index 1111111..2222222 100644",
		"--- a/x.go",
	)

	result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
	gt.A(t, result.Files).Length(1)
	gt.V(t, result.Files[0]).Equal(model.FileChange{
		Path:       "run.sh",
		ChangeType: types.ChangeModified,
	})
	gt.V(t, result.SkippedSections).Equal(1)
}

func TestParseNoNewlineMarker(t *testing.T) {
	diff := lines(
		"diff --git a/a.txt b/a.txt",
		"--- a/a.txt",
		"+++ b/a.txt",
		"@@ -1 +1 @@",
		"-old",
		`\ No newline at end of file`,
		"+new",
		`\ No newline at end of file`,
	)
	result := gt.R1(diffparse.ParseFileChanges(diff)).NoError(t)
	gt.A(t, result.Files).Length(1)
	gt.V(t, result.SkippedSections).Equal(0)
	gt.V(t, result.Files[0].LinesAdded).Equal(1)
	gt.V(t, result.Files[0].LinesDeleted).Equal(1)
}

func TestParseEmptyAndInvalid(t *testing.T) {
	for _, diff := range []string{"", "   \n\t\n"} {
		stats := gt.R1(diffparse.ParsePullRequestStats(diff)).NoError(t)
		gt.A(t, stats.FilesChanged).Length(0)
		gt.V(t, stats.TotalAdditions).Equal(0)
	}

	_, err := diffparse.ParseFileChanges("hello world\nthis is not a diff\n")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, types.ErrParse))
}

func TestParseConcatenatedSectionsSumUp(t *testing.T) {
	var b strings.Builder
	wantAdd, wantDel := 0, 0
	for i := 1; i <= 20; i++ {
		add, del := i%4, i%3
		wantAdd += add
		wantDel += del
		fmt.Fprintf(&b, "diff --git a/f%d.txt b/f%d.txt\n", i, i)
		fmt.Fprintf(&b, "--- a/f%d.txt\n+++ b/f%d.txt\n", i, i)
		fmt.Fprintf(&b, "@@ -1,%d +1,%d @@\n", del+1, add+1)
		b.WriteString(" ctx\n")
		for j := 0; j < del; j++ {
			b.WriteString("-old\n")
		}
		for j := 0; j < add; j++ {
			b.WriteString("+new\n")
		}
	}

	stats := gt.R1(diffparse.ParsePullRequestStats(b.String())).NoError(t)
	gt.A(t, stats.FilesChanged).Length(20)
	gt.V(t, stats.TotalAdditions).Equal(wantAdd)
	gt.V(t, stats.TotalDeletions).Equal(wantDel)

	sumAdd, sumDel := 0, 0
	for _, f := range stats.FilesChanged {
		sumAdd += f.LinesAdded
		sumDel += f.LinesDeleted
	}
	gt.V(t, sumAdd).Equal(stats.TotalAdditions)
	gt.V(t, sumDel).Equal(stats.TotalDeletions)
}
