package memoir

import (
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-pdf/fpdf"
)

// 表紙レイアウトの座標（pt単位、A4縦）。
const (
	coverImageWidth  = 220.0
	coverImageHeight = 290.0
	coverImageY      = 120.0
	coverTitleY      = 440.0
	coverSubtitleY   = 500.0
	coverDateY       = 720.0
)

// resolveCoverImage は候補リストから最初に存在する表紙画像のパスを返します。
// 1つも見つからない場合は空文字を返し、表紙は無地のまま組まれます。
func resolveCoverImage(candidates []string) string {
	for _, imagePath := range candidates {
		if _, err := os.Stat(imagePath); err == nil {
			return imagePath
		}
	}
	return ""
}

// coverImageType は画像の実体から fpdf に渡す画像タイプを判定します。
func coverImageType(imagePath string) string {
	mtype, err := mimetype.DetectFile(imagePath)
	if err != nil {
		return ""
	}
	switch mtype.String() {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

// renderCover は表紙ページを組みます。
func (b *builder) renderCover(displayName, dateStr string) {
	doc := b.doc
	doc.AddPage()

	if imagePath := resolveCoverImage(b.coverCandidates); imagePath != "" {
		imageType := coverImageType(imagePath)
		if imageType == "" {
			b.logger.Printf("封面图片格式不受支持，跳过: %s", imagePath)
		} else {
			pageWidth, _ := doc.GetPageSize()
			x := (pageWidth - coverImageWidth) / 2
			opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
			doc.ImageOptions(imagePath, x, coverImageY, coverImageWidth, coverImageHeight, false, opts, 0, "")
			if err := doc.Error(); err != nil {
				// 画像が読めなくても表紙テキストは出す
				b.logger.Printf("加载封面图片失败: %s: %v", imagePath, err)
				doc.ClearError()
			}
		}
	} else {
		b.logger.Printf("封面图片不存在，跳过添加封面图")
	}

	b.setFont(36)
	doc.SetY(coverTitleY)
	doc.CellFormat(0, 42, "回忆录", "", 1, "C", false, 0, "")

	if strings.TrimSpace(displayName) != "" {
		b.setFont(18)
		doc.CellFormat(0, 26, displayName, "", 1, "C", false, 0, "")
	}

	b.setFont(16)
	doc.SetY(coverSubtitleY)
	doc.CellFormat(0, 22, "记录您的人生故事", "", 1, "C", false, 0, "")

	b.setFont(12)
	doc.SetY(coverDateY)
	doc.CellFormat(0, 16, dateStr, "", 1, "C", false, 0, "")
}
