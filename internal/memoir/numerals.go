package memoir

import "strconv"

// chineseNumerals は章番号表記に使う漢数字です。
var chineseNumerals = []string{"一", "二", "三", "四", "五", "六", "七", "八", "九", "十"}

// chapterNumeral は1始まりの章番号を漢数字にします。
// 対応範囲を超えた場合はアラビア数字にフォールバックします。
func chapterNumeral(ordinal int) string {
	if ordinal >= 1 && ordinal <= len(chineseNumerals) {
		return chineseNumerals[ordinal-1]
	}
	return strconv.Itoa(ordinal)
}

// chapterHeading は「第X章  タイトル」形式の見出しを組み立てます。
func chapterHeading(ordinal int, title string) string {
	return "第" + chapterNumeral(ordinal) + "章  " + title
}
