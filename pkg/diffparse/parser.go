package diffparse

import (
	"strings"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const devNull = "/dev/null"

// ParseFileChanges converts unified diff text into per-file change statistics.
// Truncated or malformed file sections are left out and counted in
// SkippedSections. An empty input yields an empty result.
func ParseFileChanges(diff string) (*model.DiffResult, error) {
	p, err := parse(diff)
	if err != nil {
		return nil, err
	}
	return p.result, nil
}

// ParsePullRequestStats parses diff text and aggregates it into pull request
// statistics. A combined diff marks the stats as a merge commit.
func ParsePullRequestStats(diff string) (*model.PullRequestStats, error) {
	p, err := parse(diff)
	if err != nil {
		return nil, err
	}
	return model.NewPullRequestStats(p.result, p.merge), nil
}

type parser struct {
	lines   []string
	pos     int
	headers int
	merge   bool
	result  *model.DiffResult
}

func parse(diff string) (*parser, error) {
	p := &parser{
		result: &model.DiffResult{Files: []model.FileChange{}},
	}
	if strings.TrimSpace(diff) == "" {
		return p, nil
	}

	p.lines = strings.Split(strings.ReplaceAll(diff, "\r\n", "\n"), "\n")
	if last := len(p.lines) - 1; p.lines[last] == "" {
		p.lines = p.lines[:last]
	}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		switch {
		case strings.HasPrefix(line, "diff --git "):
			p.headers++
			p.pos++
			p.section(gitHeaderPaths(line), false)

		case strings.HasPrefix(line, "diff --cc "), strings.HasPrefix(line, "diff --combined "):
			p.headers++
			p.merge = true
			p.pos++
			name := line[strings.LastIndex(line, " ")+1:]
			p.section(&fileSection{oldPath: name, newPath: name}, true)

		case isPlainHeader(p.lines, p.pos):
			p.headers++
			p.section(&fileSection{}, false)

		default:
			// commit message, format-patch signature or other preamble
			p.pos++
		}
	}

	if p.headers == 0 {
		return nil, goerr.Wrap(types.ErrParse, "no file header found in diff", goerr.V("length", len(diff)))
	}
	return p, nil
}

type fileSection struct {
	oldPath string
	newPath string

	added    bool
	deleted  bool
	renamed  bool
	binary   bool
	linesAdd int
	linesDel int

	// index or ---/+++ lines seen, and whether any marker explains a
	// section without hunks
	content bool
	marker  bool
}

// truncated reports whether a section without hunks announced content it
// never carried.
func (x *fileSection) truncated() bool {
	return x.content && !x.marker
}

func (x *fileSection) fileChange() model.FileChange {
	fc := model.FileChange{
		Path:         x.newPath,
		LinesAdded:   x.linesAdd,
		LinesDeleted: x.linesDel,
		ChangeType:   types.ChangeModified,
		Binary:       x.binary,
	}

	switch {
	case x.deleted:
		fc.Path = x.oldPath
		fc.ChangeType = types.ChangeDeleted
	case x.added:
		fc.ChangeType = types.ChangeAdded
	case x.renamed && x.oldPath != x.newPath:
		fc.OldPath = x.oldPath
		fc.ChangeType = types.ChangeRenamed
	}
	return fc
}

// section consumes the body of one file section and appends its FileChange,
// or counts it as skipped.
func (p *parser) section(sec *fileSection, combined bool) {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]

		switch {
		case strings.HasPrefix(line, "new file mode"):
			sec.added = true
			sec.marker = true
		case strings.HasPrefix(line, "deleted file mode"):
			sec.deleted = true
			sec.marker = true
		case strings.HasPrefix(line, "old mode "), strings.HasPrefix(line, "new mode "):
			sec.marker = true
		case strings.HasPrefix(line, "index "):
			sec.content = true
		case strings.HasPrefix(line, "rename from "):
			sec.renamed = true
			sec.marker = true
			sec.oldPath = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			sec.renamed = true
			sec.marker = true
			sec.newPath = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "copy to "):
			// a copy leaves the source untouched, the target is new
			sec.added = true
			sec.marker = true
			sec.newPath = strings.TrimPrefix(line, "copy to ")
		case strings.HasPrefix(line, "Binary files "):
			sec.binary = true
			sec.marker = true
			if strings.HasSuffix(line, " and "+devNull+" differ") {
				sec.deleted = true
			} else if strings.HasPrefix(line, "Binary files "+devNull+" and ") {
				sec.added = true
			}
		case line == "GIT binary patch":
			sec.binary = true
			p.skipToNextSection()
			p.result.Files = append(p.result.Files, sec.fileChange())
			return

		case strings.HasPrefix(line, "--- ") && p.pos+1 < len(p.lines) && strings.HasPrefix(p.lines[p.pos+1], "+++ "):
			oldName := headerPath(strings.TrimPrefix(line, "--- "), "a/")
			newName := headerPath(strings.TrimPrefix(p.lines[p.pos+1], "+++ "), "b/")
			if oldName == devNull {
				sec.added = true
			} else if !sec.renamed {
				sec.oldPath = oldName
			}
			if newName == devNull {
				sec.deleted = true
			} else if !sec.renamed {
				sec.newPath = newName
			}
			if sec.newPath == "" {
				sec.newPath = sec.oldPath
			}
			sec.content = true
			if oldName == devNull || newName == devNull {
				sec.marker = true
			}
			p.pos += 2
			continue

		case strings.HasPrefix(line, "--- "):
			// file header cut before its +++ line
			p.result.SkippedSections++
			p.pos++
			p.skipToNextSection()
			return

		case strings.HasPrefix(line, "@@"):
			if !p.hunks(sec, combined) {
				p.result.SkippedSections++
				p.skipToNextSection()
				return
			}
			p.result.Files = append(p.result.Files, sec.fileChange())
			return

		case isSectionStart(p.lines, p.pos):
			p.headerOnly(sec)
			return
		}
		p.pos++
	}
	p.headerOnly(sec)
}

// headerOnly closes a section without hunks: a mode change, pure rename,
// binary marker or empty file is kept, anything else was cut off.
func (p *parser) headerOnly(sec *fileSection) {
	if sec.truncated() {
		p.result.SkippedSections++
		return
	}
	p.result.Files = append(p.result.Files, sec.fileChange())
}

// hunks consumes consecutive hunks of one file. It returns false when a hunk is
// truncated, has a broken header or carries an invalid body line.
func (p *parser) hunks(sec *fileSection, combined bool) bool {
	for p.pos < len(p.lines) && strings.HasPrefix(p.lines[p.pos], "@@") {
		var ok bool
		if combined {
			ok = p.combinedHunk(sec)
		} else {
			ok = p.hunk(sec)
		}
		if !ok {
			return false
		}
		for p.pos < len(p.lines) && strings.HasPrefix(p.lines[p.pos], `\`) {
			p.pos++
		}
	}
	return true
}

func (p *parser) hunk(sec *fileSection) bool {
	oldRem, newRem, ok := parseHunkHeader(p.lines[p.pos])
	if !ok {
		return false
	}
	p.pos++

	for oldRem > 0 || newRem > 0 {
		if p.pos >= len(p.lines) {
			return false
		}
		line := p.lines[p.pos]
		if line == "" {
			// context line with its leading space stripped by an editor
			oldRem--
			newRem--
		} else {
			switch line[0] {
			case '+':
				sec.linesAdd++
				newRem--
			case '-':
				sec.linesDel++
				oldRem--
			case ' ':
				oldRem--
				newRem--
			case '\\':
			default:
				return false
			}
		}
		p.pos++
		if oldRem < 0 || newRem < 0 {
			return false
		}
	}
	return true
}

func (p *parser) combinedHunk(sec *fileSection) bool {
	parents, newRem, ok := parseCombinedHunkHeader(p.lines[p.pos])
	if !ok {
		return false
	}
	p.pos++

	// Lines removed from every parent trail the last result line, so removals
	// are still consumed after newRem reaches zero.
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if strings.HasPrefix(line, `\`) {
			p.pos++
			continue
		}
		cols, ok := combinedColumns(line, parents)
		if !ok || (newRem == 0 && (!strings.Contains(cols, "-") || isSectionStart(p.lines, p.pos))) {
			break
		}

		switch {
		case strings.Contains(cols, "+"):
			sec.linesAdd++
			newRem--
		case strings.Contains(cols, "-"):
			sec.linesDel++
		default:
			newRem--
		}
		p.pos++
	}
	return newRem == 0
}

func (p *parser) skipToNextSection() {
	for p.pos < len(p.lines) && !isSectionStart(p.lines, p.pos) {
		p.pos++
	}
}

func isSectionStart(lines []string, pos int) bool {
	line := lines[pos]
	return strings.HasPrefix(line, "diff --git ") ||
		strings.HasPrefix(line, "diff --cc ") ||
		strings.HasPrefix(line, "diff --combined ") ||
		isPlainHeader(lines, pos)
}

// isPlainHeader reports whether a "--- / +++" pair starts at pos without a
// preceding "diff" line.
func isPlainHeader(lines []string, pos int) bool {
	if !strings.HasPrefix(lines[pos], "--- ") || pos+1 >= len(lines) || !strings.HasPrefix(lines[pos+1], "+++ ") {
		return false
	}
	for i := pos - 1; i >= 0; i-- {
		line := lines[i]
		if strings.HasPrefix(line, "diff --") {
			return false
		}
		if strings.HasPrefix(line, "@@") || line == "" || line[0] == ' ' || line[0] == '+' || line[0] == '-' {
			return true
		}
	}
	return true
}

func gitHeaderPaths(line string) *fileSection {
	rest := strings.TrimPrefix(line, "diff --git ")
	sec := &fileSection{}
	if idx := strings.LastIndex(rest, " b/"); idx >= 0 {
		sec.oldPath = strings.TrimPrefix(rest[:idx], "a/")
		sec.newPath = rest[idx+3:]
	} else if fields := strings.Fields(rest); len(fields) == 2 {
		sec.oldPath, sec.newPath = fields[0], fields[1]
	} else {
		sec.oldPath, sec.newPath = rest, rest
	}
	return sec
}

func headerPath(v, prefix string) string {
	if idx := strings.IndexByte(v, '\t'); idx >= 0 {
		v = v[:idx]
	}
	v = strings.Trim(v, `"`)
	if v == devNull {
		return v
	}
	return strings.TrimPrefix(v, prefix)
}
