package memoir

import (
	"log"
	"os"

	"github.com/go-pdf/fpdf"
)

// cjkFontFamily は登録する中文フォントのファミリー名です。
const cjkFontFamily = "MemoirCJK"

// registerPreferredFont は候補リストから利用可能な中文フォントを探して登録します。
// 候補は先頭から順に試し、最初に登録できたもので確定します。
// すべて失敗した場合は false を返し、呼び出し側は既定フォントへ劣化させます（致命的エラーにはしません）。
func registerPreferredFont(doc *fpdf.Fpdf, candidates []string, logger *log.Logger) bool {
	for _, fontPath := range candidates {
		if _, err := os.Stat(fontPath); err != nil {
			continue
		}
		data, err := os.ReadFile(fontPath)
		if err != nil {
			logger.Printf("字体读取失败: %s: %v", fontPath, err)
			continue
		}

		// 壊れたフォントで本体のドキュメントをエラー状態にしないよう、
		// 使い捨てのドキュメントで先にパースを確かめる
		probe := fpdf.New("P", "pt", "A4", "")
		probe.AddUTF8FontFromBytes(cjkFontFamily, "", data)
		if err := probe.Error(); err != nil {
			logger.Printf("字体注册失败: %s: %v", fontPath, err)
			continue
		}

		doc.AddUTF8FontFromBytes(cjkFontFamily, "", data)
		if err := doc.Error(); err != nil {
			logger.Printf("字体注册失败: %s: %v", fontPath, err)
			continue
		}
		return true
	}

	logger.Printf("未找到可用的中文字体，使用默认字体")
	return false
}
