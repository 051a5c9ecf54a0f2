package memoir

import (
	"regexp"
	"strings"
)

var blankLineSplitter = regexp.MustCompile(`\n{2,}`)

// formatParagraphs は章本文を段落のリストに正規化します。
// 改行コードを統一し、空行区切りのブロックを段落として扱い、
// 段落内の改行はスペースに畳み込みます。
func formatParagraphs(content string) []string {
	if content == "" {
		return nil
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	normalized := strings.Join(lines, "\n")

	blocks := blankLineSplitter.Split(normalized, -1)
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		paragraph := strings.TrimSpace(strings.ReplaceAll(block, "\n", " "))
		if paragraph != "" {
			paragraphs = append(paragraphs, paragraph)
		}
	}
	return paragraphs
}
