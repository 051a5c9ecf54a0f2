package memoir

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/yourusername/memoir-press/internal/store"
)

// ページレイアウト（pt単位）。
const (
	pageMargin       = 60.0
	tocTitleSize     = 26.0
	tocEntrySize     = 14.0
	headingSize      = 22.0
	bodySize         = 13.0
	bodyLineHeight   = 22.0
	paragraphSpacing = 14.0
)

// 段落の字下げには全角スペース2文字を使います（中文組版の慣例）。
const paragraphIndent = "　　"

// Result は生成された回忆录PDFへの参照です。
type Result struct {
	FileName   string `json:"fileName"`
	OutputPath string `json:"outputPath"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	Pages      int    `json:"pages"`
}

// builder は1つのドキュメントの組版状態を保持します。
type builder struct {
	doc             *fpdf.Fpdf
	hasCJKFont      bool
	coverCandidates []string
	logger          *log.Logger
}

// setFont は登録済みの中文フォント、なければ既定フォントを設定します。
func (b *builder) setFont(size float64) {
	if b.hasCJKFont {
		b.doc.SetFont(cjkFontFamily, "", size)
		return
	}
	b.doc.SetFont("Helvetica", "", size)
}

// Render は（ユーザー, スキーマ順のSectionリスト）から回忆录PDFを1ファイル生成します。
// 出力は一時ファイルへ書き込み、検証が通ってから最終名へリネームするため、
// 途中で失敗しても不完全な成果物が見えることはありません。
func (s *Service) Render(ctx context.Context, owner *store.User, sections []Section) (*Result, error) {
	if owner == nil {
		return nil, newError("OWNER_REQUIRED", "用户信息缺失", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.cfg.PDFOutputDir, 0o750); err != nil {
		return nil, newError("OUTPUT_DIR_FAILED", "无法创建PDF输出目录", err)
	}

	fileName := artifactFileName(owner.ID, s.now())
	outputPath := filepath.Join(s.cfg.PDFOutputDir, fileName)
	tmpPath := outputPath + ".tmp"

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)

	b := &builder{
		doc:             doc,
		coverCandidates: s.cfg.CoverImagePaths,
		logger:          s.logger,
	}
	b.hasCJKFont = registerPreferredFont(doc, s.cfg.FontPaths, s.logger)

	displayName := owner.DisplayName()
	doc.SetTitle("回忆录", true)
	doc.SetAuthor(displayName, true)
	doc.SetSubject("个人回忆录", true)
	doc.SetKeywords("回忆录, Memoir", true)

	now := s.now()
	dateStr := fmt.Sprintf("%d年%d月%d日", now.Year(), int(now.Month()), now.Day())

	b.renderCover(displayName, dateStr)
	b.renderTableOfContents(sections)
	for _, section := range sections {
		b.renderSection(section)
	}

	if err := doc.OutputFileAndClose(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, newError("RENDER_FAILED", "PDF 生成失败", err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}

	// 書き終えたファイルを検証してから公開名に切り替える
	if err := pdfapi.ValidateFile(tmpPath, nil); err != nil {
		_ = os.Remove(tmpPath)
		return nil, newError("RENDER_FAILED", "生成的PDF未通过校验", err)
	}
	pages, err := pdfapi.PageCountFile(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, newError("RENDER_FAILED", "生成的PDF未通过校验", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, newError("RENDER_FAILED", "PDF 保存失败", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, newError("RENDER_FAILED", "PDF 保存失败", err)
	}

	return &Result{
		FileName:   fileName,
		OutputPath: outputPath,
		URL:        strings.TrimRight(s.cfg.PDFPublicBaseURL, "/") + "/" + fileName,
		Size:       info.Size(),
		Pages:      pages,
	}, nil
}

// renderTableOfContents は目次ページを組みます。章はスキーマ順で列挙されます。
func (b *builder) renderTableOfContents(sections []Section) {
	doc := b.doc
	doc.AddPage()

	b.setFont(tocTitleSize)
	doc.CellFormat(0, 34, "目录", "", 1, "C", false, 0, "")
	doc.Ln(28)

	for _, section := range sections {
		b.setFont(tocEntrySize)
		doc.CellFormat(0, 20, chapterHeading(section.Ordinal, section.Title), "", 1, "L", false, 0, "")
		doc.Ln(8)
	}
}

// renderSection は1章を組みます。章は必ず新しいページから始まります。
func (b *builder) renderSection(section Section) {
	doc := b.doc
	doc.AddPage()

	b.setFont(headingSize)
	doc.CellFormat(0, 30, chapterHeading(section.Ordinal, section.Title), "", 1, "C", false, 0, "")
	doc.Ln(36)

	paragraphs := formatParagraphs(section.Content)
	if len(paragraphs) == 0 {
		// 未記入の章はプレースホルダーを中央に出す
		b.setFont(bodySize)
		doc.SetTextColor(153, 153, 153)
		doc.CellFormat(0, 18, "此章节暂无内容", "", 1, "C", false, 0, "")
		doc.SetTextColor(0, 0, 0)
		return
	}

	b.setFont(bodySize)
	for i, paragraph := range paragraphs {
		doc.MultiCell(0, bodyLineHeight, paragraphIndent+paragraph, "", "J", false)
		if i != len(paragraphs)-1 {
			doc.Ln(paragraphSpacing)
		}
	}
}
