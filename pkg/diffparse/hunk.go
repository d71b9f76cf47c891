package diffparse

import (
	"regexp"
	"strconv"
	"strings"
)

var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,(\d+))? \+\d+(?:,(\d+))? @@`)

// parseHunkHeader returns the declared old and new line counts of a hunk. An
// omitted count means one line.
func parseHunkHeader(line string) (oldCount, newCount int, ok bool) {
	m := hunkHeader.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	oldCount, ok1 := rangeCount(m[1])
	newCount, ok2 := rangeCount(m[2])
	return oldCount, newCount, ok1 && ok2
}

// parseCombinedHunkHeader parses "@@@ -a,b -c,d +e,f @@@" style headers of a
// combined diff. The number of parents is the marker length minus one.
func parseCombinedHunkHeader(line string) (parents, newCount int, ok bool) {
	at := len(line) - len(strings.TrimLeft(line, "@"))
	if at < 3 {
		return 0, 0, false
	}
	marker := line[:at]
	end := strings.Index(line[at:], " "+marker)
	if end < 0 {
		return 0, 0, false
	}

	fields := strings.Fields(line[at : at+end])
	parents = at - 1
	if len(fields) != parents+1 {
		return 0, 0, false
	}
	for _, f := range fields[:parents] {
		if !strings.HasPrefix(f, "-") {
			return 0, 0, false
		}
	}

	last := fields[parents]
	if !strings.HasPrefix(last, "+") {
		return 0, 0, false
	}
	count := ""
	if idx := strings.IndexByte(last, ','); idx >= 0 {
		count = last[idx+1:]
	}
	newCount, ok = rangeCount(count)
	return parents, newCount, ok
}

// combinedColumns returns the per-parent prefix columns of a combined diff body
// line.
func combinedColumns(line string, parents int) (string, bool) {
	if len(line) < parents {
		return "", false
	}
	cols := line[:parents]
	if strings.Trim(cols, " +-") != "" {
		return "", false
	}
	return cols, true
}

func rangeCount(v string) (int, bool) {
	if v == "" {
		return 1, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
