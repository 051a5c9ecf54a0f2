// Package memoir は回忆录PDFの生成機能を提供します。
package memoir

import "strings"

// Section は文書スキーマ上の1章を表します。
// Ordinal はスキーマで固定された1始まりの並び順で、保存順には依存しません。
type Section struct {
	Ordinal int    `json:"ordinal"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// IsEmpty は本文が空（空白のみを含む）かどうかを返します。
func (s Section) IsEmpty() bool {
	return strings.TrimSpace(s.Content) == ""
}

// chapterOrder は回忆录を構成する章の固定順序です。
var chapterOrder = []string{
	"background",
	"childhood",
	"education",
	"career",
	"love",
	"family",
	"travel",
	"relationships",
	"laterlife",
	"wisdom",
}

var chapterTitles = map[string]string{
	"background":    "家庭背景",
	"childhood":     "童年时光",
	"education":     "求学生涯",
	"career":        "职业发展",
	"love":          "爱情婚姻",
	"family":        "为人父母",
	"travel":        "旅行见闻",
	"relationships": "人缘际遇",
	"laterlife":     "晚年生活",
	"wisdom":        "人生感悟",
}

// ChapterIDs はスキーマ順の章IDリストを返します。
func ChapterIDs() []string {
	return append([]string(nil), chapterOrder...)
}

// IsChapterID は指定IDがスキーマに含まれるかを返します。
func IsChapterID(id string) bool {
	_, ok := chapterTitles[id]
	return ok
}

// TitleFor は章IDに対応するタイトルを返します。未知のIDはそのまま返します。
func TitleFor(id string) string {
	if title, ok := chapterTitles[id]; ok {
		return title
	}
	return id
}

// BuildSections は保存済みの章テキストからスキーマ順のSectionリストを構築します。
// 未保存の章も空内容のSectionとして必ず含まれます。
func BuildSections(contents map[string]string) []Section {
	sections := make([]Section, len(chapterOrder))
	for i, id := range chapterOrder {
		sections[i] = Section{
			Ordinal: i + 1,
			ID:      id,
			Title:   TitleFor(id),
			Content: contents[id],
		}
	}
	return sections
}
